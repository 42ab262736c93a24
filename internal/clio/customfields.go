package clio

import (
	"context"
	"encoding/json"
	"net/url"

	"CaseReview/internal/constants"
)

// FetchCustomFieldMeta loads every custom field definition with its picklist
// options.
func (a *API) FetchCustomFieldMeta(ctx context.Context) (CustomFieldMeta, error) {
	params := url.Values{}
	params.Set("fields", customFieldFields)
	rows, err := a.collect(ctx, EndpointCustomFields, params)
	if err != nil {
		return nil, err
	}

	meta := CustomFieldMeta{}
	for _, f := range rows {
		name := str(f["name"])
		if name == "" {
			continue
		}
		opts := map[string]string{}
		for _, raw := range list(f["picklist_options"]) {
			opt := obj(raw)
			if id := str(opt["id"]); id != "" {
				opts[id] = str(opt["option"])
			}
		}
		meta[name] = CustomFieldDef{ID: str(f["id"]), Type: str(f["field_type"]), Options: opts}
	}
	return meta, nil
}

// ResolveCustomFieldValue renders one custom_field_values entry as text.
// Picklists prefer the inline option text, then the option table in meta,
// then the raw value. Empty, false and zero values render as an empty cell.
func ResolveCustomFieldValue(cf map[string]any, meta CustomFieldMeta) string {
	var raw string
	if !isEmptyValue(cf["value"]) {
		raw = str(cf["value"])
	}
	if str(cf["field_type"]) != constants.PicklistType {
		return raw
	}
	if opt := str(obj(cf["picklist_option"])["option"]); opt != "" {
		return opt
	}
	if text, ok := meta[str(cf["field_name"])].Options[raw]; ok && raw != "" {
		return text
	}
	return raw
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

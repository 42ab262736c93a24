package clio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"CaseReview/internal/constants"
)

// CustomFieldUpdate sets one custom field on a matter. ValueID addresses an
// existing value; without it FieldID creates a new one.
type CustomFieldUpdate struct {
	ValueID string
	FieldID string
	Value   any
}

func (u CustomFieldUpdate) payload() map[string]any {
	if u.ValueID != "" {
		return map[string]any{"id": u.ValueID, "value": u.Value}
	}
	return map[string]any{"custom_field": map[string]any{"id": u.FieldID}, "value": u.Value}
}

// UpdateMatterCustomFields patches matters/{id}.json with the given values.
func (a *API) UpdateMatterCustomFields(ctx context.Context, matterID string, updates []CustomFieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	values := make([]map[string]any, 0, len(updates))
	for _, u := range updates {
		values = append(values, u.payload())
	}
	body, err := json.Marshal(map[string]any{
		"data": map[string]any{"custom_field_values": values},
	})
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s/matters/%s.json", a.base, matterID)
	resp, err := a.client.Do(ctx, http.MethodPatch, target, nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(constants.ErrMatterUpdateFailed, matterID, resp.StatusCode, snippet(msg))
	}
	return nil
}

package clio

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CaseReview/internal/constants"

	"go.uber.org/zap"
)

// Collection names, also used as keys of the endpoints: section in the YAML
// config.
const (
	EndpointCustomFields = "custom_fields"
	EndpointMatters      = "matters"
	EndpointBalances     = "outstanding_client_balances"
	EndpointBillable     = "billable_matters"
	EndpointActivities   = "activities"
)

var endpointPaths = map[string]string{
	EndpointCustomFields: "custom_fields.json",
	EndpointMatters:      "matters.json",
	EndpointBalances:     "outstanding_client_balances.json",
	EndpointBillable:     "billable_matters.json",
	EndpointActivities:   "activities",
}

const (
	customFieldFields = "id,name,field_type,picklist_options"
	matterFields      = "id,display_number,number," +
		"client{id,name}," +
		"matter_stage{name}," +
		"responsible_attorney{name}," +
		"account_balances{balance}," +
		"custom_field_values{id,field_name,field_type,value,picklist_option,custom_field}"
	balanceFields  = "contact{id,name},total_outstanding_balance"
	billableFields = "id,display_number,client{id,name},unbilled_amount,unbilled_hours"
	activityFields = "id,date,rounded_quantity,type,matter{id,display_number}"
)

// API binds the Client to a Clio base URL and per-collection paging settings.
type API struct {
	client    *Client
	base      string
	defaults  PageSpec
	overrides map[string]PageSpec
	log       *zap.Logger
}

// NewAPI takes the versioned REST root (e.g. https://app.clio.com/api/v4).
// overrides are keyed by the Endpoint* names.
func NewAPI(client *Client, apiURL string, defaults PageSpec, overrides map[string]PageSpec) *API {
	return &API{
		client:    client,
		base:      strings.TrimRight(apiURL, "/"),
		defaults:  defaults,
		overrides: overrides,
		log:       client.log,
	}
}

func (a *API) url(endpoint string) string {
	return a.base + "/" + endpointPaths[endpoint]
}

func (a *API) spec(endpoint string) PageSpec {
	s, ok := a.overrides[endpoint]
	if !ok {
		return a.defaults
	}
	if s.Limit <= 0 {
		s.Limit = a.defaults.Limit
	}
	s.Strict = s.Strict || a.defaults.Strict
	return s
}

func (a *API) collect(ctx context.Context, endpoint string, params url.Values) ([]map[string]any, error) {
	rows, err := a.client.Paginate(ctx, a.url(endpoint), params, a.spec(endpoint))
	a.log.Info("clio collection fetched", zap.String("endpoint", endpoint), zap.Int("rows", len(rows)))
	return rows, err
}

// FetchOpenMatters returns open and pending matters with custom fields
// resolved through meta.
func (a *API) FetchOpenMatters(ctx context.Context, meta CustomFieldMeta) ([]Matter, error) {
	params := url.Values{}
	params.Set("status", constants.StatusOpenPend)
	params.Set("fields", matterFields)
	rows, err := a.collect(ctx, EndpointMatters, params)
	if err != nil {
		return nil, err
	}

	matters := make([]Matter, 0, len(rows))
	for _, m := range rows {
		client := obj(m["client"])
		matter := Matter{
			ID:                  str(m["id"]),
			DisplayNumber:       firstStr(m["display_number"], m["number"]),
			ClientID:            str(client["id"]),
			ClientName:          str(client["name"]),
			StageName:           str(obj(m["matter_stage"])["name"]),
			ResponsibleAttorney: str(obj(m["responsible_attorney"])["name"]),
			AccountBalances:     list(m["account_balances"]),
			CustomFields:        map[string]string{},
		}
		for _, raw := range list(m["custom_field_values"]) {
			cf := obj(raw)
			name := str(cf["field_name"])
			if cf == nil || name == "" {
				continue
			}
			text := ResolveCustomFieldValue(cf, meta)
			matter.CustomFields[name] = text
			matter.CustomFieldValues = append(matter.CustomFieldValues, CustomFieldValue{
				ID:        str(cf["id"]),
				FieldID:   firstStr(obj(cf["custom_field"])["id"], meta[name].ID),
				FieldName: name,
				FieldType: str(cf["field_type"]),
				Text:      text,
			})
		}
		matters = append(matters, matter)
	}
	return matters, nil
}

func (a *API) FetchOutstandingBalances(ctx context.Context) ([]ClientBalance, error) {
	params := url.Values{}
	params.Set("fields", balanceFields)
	rows, err := a.collect(ctx, EndpointBalances, params)
	if err != nil {
		return nil, err
	}
	out := make([]ClientBalance, 0, len(rows))
	for _, r := range rows {
		contact := obj(r["contact"])
		out = append(out, ClientBalance{
			ClientID:    str(contact["id"]),
			ClientName:  str(contact["name"]),
			Outstanding: r["total_outstanding_balance"],
		})
	}
	return out, nil
}

func (a *API) FetchBillableMatters(ctx context.Context) ([]BillableMatter, error) {
	params := url.Values{}
	params.Set("fields", billableFields)
	rows, err := a.collect(ctx, EndpointBillable, params)
	if err != nil {
		return nil, err
	}
	out := make([]BillableMatter, 0, len(rows))
	for _, r := range rows {
		client := obj(r["client"])
		out = append(out, BillableMatter{
			MatterID:       str(r["id"]),
			DisplayNumber:  str(r["display_number"]),
			ClientID:       str(client["id"]),
			ClientName:     str(client["name"]),
			UnbilledAmount: r["unbilled_amount"],
			UnbilledHours:  r["unbilled_hours"],
		})
	}
	return out, nil
}

// FetchCycleHours sums billable time-entry hours per matter display number.
// rounded_quantity is in seconds.
func (a *API) FetchCycleHours(ctx context.Context, window CycleWindow) (CycleHours, error) {
	params := url.Values{}
	params.Set("start_date", window.StartISO())
	params.Set("end_date", window.EndISO())
	params.Set("status", constants.StatusBillable)
	params.Set("fields", activityFields)
	rows, err := a.collect(ctx, EndpointActivities, params)
	if err != nil {
		return nil, err
	}

	totals := CycleHours{}
	for _, e := range rows {
		if str(e["type"]) != constants.TimeEntryType {
			continue
		}
		if d, err := time.Parse(constants.DateFormat, str(e["date"])); err == nil && !window.Contains(d) {
			continue
		}
		dn := str(obj(e["matter"])["display_number"])
		if dn == "" {
			continue
		}
		secs, err := strconv.ParseFloat(str(e["rounded_quantity"]), 64)
		if err != nil {
			secs = 0
		}
		totals[dn] += secs / 3600.0
	}
	return totals, nil
}

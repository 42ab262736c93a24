package clio

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CaseReview/internal/constants"
)

// Credential is the OAuth state for one run. RefreshToken survives a refresh
// response that omits it.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Matter is an open or pending case with its custom fields already resolved to
// display text.
type Matter struct {
	ID                  string
	DisplayNumber       string
	ClientID            string
	ClientName          string
	StageName           string
	ResponsibleAttorney string
	AccountBalances     []any
	CustomFields        map[string]string
	CustomFieldValues   []CustomFieldValue
}

// CustomFieldValue keeps the ids needed to write a value back.
type CustomFieldValue struct {
	ID        string
	FieldID   string
	FieldName string
	FieldType string
	Text      string
}

type ClientBalance struct {
	ClientID    string
	ClientName  string
	Outstanding any
}

type BillableMatter struct {
	MatterID       string
	DisplayNumber  string
	ClientID       string
	ClientName     string
	UnbilledAmount any
	UnbilledHours  any
}

// CycleHours maps a matter display number to billable hours in the cycle.
type CycleHours map[string]float64

type CustomFieldDef struct {
	ID      string
	Type    string
	Options map[string]string // option id -> option text
}

// OptionID finds the picklist option whose text matches, ignoring case and
// surrounding space.
func (d CustomFieldDef) OptionID(text string) (string, bool) {
	want := strings.TrimSpace(text)
	for id, opt := range d.Options {
		if strings.EqualFold(strings.TrimSpace(opt), want) {
			return id, true
		}
	}
	return "", false
}

// CustomFieldMeta is keyed by field name.
type CustomFieldMeta map[string]CustomFieldDef

// CycleWindow is an inclusive range of calendar dates in a fixed UTC offset.
type CycleWindow struct {
	Start  time.Time
	End    time.Time
	Offset string
}

func (w CycleWindow) StartISO() string {
	return w.Start.Format(constants.DateFormat) + constants.CycleTimeStart + w.Offset
}

func (w CycleWindow) EndISO() string {
	return w.End.Format(constants.DateFormat) + constants.CycleTimeEnd + w.Offset
}

// Label renders the window for column headers, e.g. "07/02/25 - 07/15/25".
func (w CycleWindow) Label() string {
	return w.Start.Format(constants.CycleLabelFmt) + " - " + w.End.Format(constants.CycleLabelFmt)
}

// Contains reports whether the calendar date of t lies within the window.
func (w CycleWindow) Contains(t time.Time) bool {
	d := t.Format(constants.DateFormat)
	return d >= w.Start.Format(constants.DateFormat) && d <= w.End.Format(constants.DateFormat)
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// str renders a scalar the way it appeared in the JSON body; nil is "".
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func firstStr(values ...any) string {
	for _, v := range values {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

package report

import (
	"CaseReview/internal/reconcile"
)

const (
	SheetName  = "Case Review"
	TableName  = "CaseReviewTable"
	TableStyle = "TableStyleMedium9"

	HeaderMatterNumber = "Matter Number"
	HeaderClientName   = "Client Name"
	HeaderNet          = "Net Trust Account Balance"
	HeaderStage        = "Matter Stage"
	HeaderAttorney     = "Responsible Attorney"
)

type ColumnKind int

const (
	KindText ColumnKind = iota
	KindMoney
	KindHours
	// KindCustomField columns carry a matter custom field and can be written
	// back by the sync job.
	KindCustomField
)

type Column struct {
	Header string
	Kind   ColumnKind
	value  func(reconcile.Row) any
}

// Value extracts the cell value for r.
func (c Column) Value(r reconcile.Row) any {
	return c.value(r)
}

// CustomFieldHeaders are the custom fields shown in the report, in column order.
var CustomFieldHeaders = []string{
	"CR ID",
	"Main Paralegal",
	"Supporting Attorney",
	"Supporting Paralegal",
	"Client Notes",
	"Initial Client Goals",
	"Initial Strategy",
	"Has strategy changed Describe",
	"Current action Items",
	"Hearings",
	"Deadlines",
	"DV situation description",
	"Custody Visitation",
	"CS Add ons Extracurricular",
	"Spousal Support",
	"PDDs",
	"Discovery",
	"Judgment Trial",
	"Post Judgment",
	"collection efforts",
}

// CycleHeader is the billing-cycle hours header for a window label such as
// "07/02/25 - 07/15/25".
func CycleHeader(cycleLabel string) string {
	return "Billing Cycle Hours (" + cycleLabel + ")"
}

// Columns returns the report layout. The cycle hours column header embeds
// cycleLabel.
func Columns(cycleLabel string) []Column {
	text := func(header string, f func(reconcile.Row) string) Column {
		return Column{Header: header, Kind: KindText, value: func(r reconcile.Row) any { return f(r) }}
	}
	custom := func(name string) Column {
		return Column{Header: name, Kind: KindCustomField, value: func(r reconcile.Row) any { return r.CustomFields[name] }}
	}

	cols := []Column{
		text(HeaderMatterNumber, func(r reconcile.Row) string { return r.MatterNumber }),
		text(HeaderClientName, func(r reconcile.Row) string { return r.ClientName }),
		custom("CR ID"),
		{Header: HeaderNet, Kind: KindMoney, value: func(r reconcile.Row) any { return r.NetBalance.InexactFloat64() }},
		text(HeaderStage, func(r reconcile.Row) string { return r.Stage }),
		{Header: CycleHeader(cycleLabel), Kind: KindHours, value: func(r reconcile.Row) any { return r.CycleHours }},
		text(HeaderAttorney, func(r reconcile.Row) string { return r.ResponsibleAttorney }),
	}
	for _, name := range CustomFieldHeaders[1:] {
		cols = append(cols, custom(name))
	}
	return cols
}

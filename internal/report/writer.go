package report

import (
	"fmt"

	"CaseReview/internal/reconcile"

	"github.com/xuri/excelize/v2"
)

const (
	moneyFormat = "$#,##0.00"

	fillNegative = "FFC7CE"
	fillLow      = "FFEB9C"
	fillHealthy  = "C6EFCE"

	// Net balances at or above this are healthy.
	healthyThreshold = 1000.0
	hoursNumFmt      = 2 // built-in "0.00"
	defaultColWidth  = 20.0
)

// Workbook is a rendered case review spreadsheet.
type Workbook struct {
	f       *excelize.File
	columns []Column
	rows    int
}

// Render lays rows out on a single "Case Review" sheet with the net balance
// colour bands and a striped table over the data.
func Render(rows []reconcile.Row, cycleLabel string) (*Workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, err
	}
	w := &Workbook{f: f, columns: Columns(cycleLabel), rows: len(rows)}
	if err := w.fill(rows); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Workbook) fill(rows []reconcile.Row) error {
	headers := make([]any, len(w.columns))
	for i, c := range w.columns {
		headers[i] = c.Header
	}
	if err := w.f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return err
	}

	for i, r := range rows {
		values := make([]any, len(w.columns))
		for j, c := range w.columns {
			values[j] = c.Value(r)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(w.columns))
	if err != nil {
		return err
	}
	if err := w.f.SetColWidth(SheetName, "A", lastCol, defaultColWidth); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	if err := w.styleColumns(rows); err != nil {
		return err
	}
	stripes := true
	return w.f.AddTable(SheetName, &excelize.Table{
		Range:          fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1),
		Name:           TableName,
		StyleName:      TableStyle,
		ShowRowStripes: &stripes,
	})
}

func (w *Workbook) styleColumns(rows []reconcile.Row) error {
	numFmt := moneyFormat
	bands := map[string]int{}
	for _, color := range []string{fillNegative, fillLow, fillHealthy} {
		id, err := w.f.NewStyle(&excelize.Style{
			Fill:         excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			CustomNumFmt: &numFmt,
		})
		if err != nil {
			return err
		}
		bands[color] = id
	}
	hoursStyle, err := w.f.NewStyle(&excelize.Style{NumFmt: hoursNumFmt})
	if err != nil {
		return err
	}

	for col, c := range w.columns {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		switch c.Kind {
		case KindMoney:
			for i, r := range rows {
				cell := fmt.Sprintf("%s%d", name, i+2)
				style := bands[NetBand(r.NetBalance.InexactFloat64())]
				if err := w.f.SetCellStyle(SheetName, cell, cell, style); err != nil {
					return err
				}
			}
		case KindHours:
			if err := w.f.SetCellStyle(SheetName, name+"2", fmt.Sprintf("%s%d", name, len(rows)+1), hoursStyle); err != nil {
				return err
			}
		}
	}
	return nil
}

// NetBand returns the fill colour for a net balance: red at or below zero,
// yellow under 1000, green otherwise.
func NetBand(net float64) string {
	switch {
	case net <= 0:
		return fillNegative
	case net < healthyThreshold:
		return fillLow
	default:
		return fillHealthy
	}
}

// Rows is the number of data rows rendered.
func (w *Workbook) Rows() int {
	return w.rows
}

// Bytes serializes the workbook as .xlsx.
func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

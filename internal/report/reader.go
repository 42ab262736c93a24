package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"CaseReview/internal/constants"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Sheet is a header-keyed view of the first worksheet of an edited report.
type Sheet struct {
	Headers []string
	Records []map[string]string
}

// Has reports whether the sheet carries the given header.
func (s *Sheet) Has(header string) bool {
	for _, h := range s.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// ReadWorkbook loads .xlsx files with excelize and legacy .xls files with
// xlsReader.
func ReadWorkbook(path string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", constants.ErrWorkbook, err)
		}
		defer f.Close()
		return ReadXLSX(f)
	case ".xls":
		return readXLS(path)
	default:
		return nil, fmt.Errorf("%w: "+constants.ErrUnsupportedFile, constants.ErrWorkbook, filepath.Ext(path))
	}
}

// ReadXLSX parses an .xlsx stream.
func ReadXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrWorkbook, err)
	}
	defer f.Close()
	return readExcelize(f)
}

func readExcelize(f *excelize.File) (*Sheet, error) {
	sheetName := SheetName
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("%w: %s", constants.ErrWorkbook, constants.ErrNoSheets)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrWorkbook, err)
	}
	return toSheet(rows), nil
}

func readXLS(path string) (*Sheet, error) {
	book, err := xls.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrWorkbook, err)
	}
	sheet, err := book.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrWorkbook, constants.ErrNoSheets)
	}

	var rows [][]string
	for _, xlsRow := range sheet.GetRows() {
		var cells []string
		for _, col := range xlsRow.GetCols() {
			cells = append(cells, col.GetString())
		}
		rows = append(rows, cells)
	}
	return toSheet(rows), nil
}

// toSheet treats the first row as headers and drops blank rows.
func toSheet(rows [][]string) *Sheet {
	s := &Sheet{}
	if len(rows) == 0 {
		return s
	}
	for _, h := range rows[0] {
		s.Headers = append(s.Headers, strings.TrimSpace(h))
	}
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(s.Headers))
		blank := true
		for i, h := range s.Headers {
			if h == "" {
				continue
			}
			v := ""
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			if v != "" {
				blank = false
			}
			rec[h] = v
		}
		if !blank {
			s.Records = append(s.Records, rec)
		}
	}
	return s
}

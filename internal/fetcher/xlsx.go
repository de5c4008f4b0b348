package fetcher

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the sheet to read.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of leading rows to drop
	ISODates   bool   // render date cells as YYYY-MM-DD instead of their number format
}

// ReadXLSX reads one sheet of an XLSX workbook as string rows, with each
// cell's number format applied. Rows whose cells are all blank are dropped.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows || row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		blank := true
		for j, c := range row.Cells {
			cells[j] = cellText(c, f.Date1904, opts.ISODates)
			if strings.TrimSpace(cells[j]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func pickSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName == "" {
		if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
			return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
		}
		return f.Sheets[opts.SheetIndex], nil
	}
	sheet, ok := f.Sheet[opts.SheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
	}
	return sheet, nil
}

// cellText renders c. With iso set, date cells become YYYY-MM-DD, or
// YYYY-MM-DD HH:MM:SS when they carry a time of day.
func cellText(c *xlsx.Cell, date1904, iso bool) string {
	if iso && c.IsTime() {
		if t, err := c.GetTime(date1904); err == nil {
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
				return t.Format(time.DateOnly)
			}
			return t.Format(time.DateTime)
		}
	}
	return c.String()
}

// Package table writes report tables as CSV or XLSX.
package table

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/arcgis-admin-cli/internal/nested"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Table is a header plus rows of cells. Rows shorter than the header are
// padded with empty cells on write.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// FromRecords aligns records on the union of their columns, leading columns
// first. A record without a column gets an empty cell.
func FromRecords(name string, records []nested.Record, leading ...string) Table {
	cols := nested.Columns(records, leading...)
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Row(cols)
	}
	return Table{Name: name, Columns: cols, Rows: rows}
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Append adds the rows of other, which must have the same columns.
func (t *Table) Append(other Table) {
	t.Rows = append(t.Rows, other.Rows...)
}

func (t Table) padded(row []string) []string {
	if len(row) >= len(t.Columns) {
		return row
	}
	out := make([]string, len(t.Columns))
	copy(out, row)
	return out
}

// WriteCSV writes the header and rows to w.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "table: write header")
	}
	for _, row := range t.Rows {
		if err := cw.Write(t.padded(row)); err != nil {
			return eris.Wrap(err, "table: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush csv")
}

// sheetName trims a name to Excel's 31-character limit.
func sheetName(name string) string {
	if name == "" {
		name = "Report"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// WriteXLSX writes the table as a single-sheet workbook at path.
func (t Table) WriteXLSX(path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName(t.Name))
	if err != nil {
		return eris.Wrap(err, "table: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range t.Columns {
		header.AddCell().SetString(c)
	}
	for _, cells := range t.Rows {
		row := sheet.AddRow()
		for _, c := range t.padded(cells) {
			row.AddCell().SetString(c)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "table: save %s", path)
	}
	return nil
}

// OutputPath joins dir and name, switching the extension to match format.
func OutputPath(dir, name, format string) string {
	if format == FormatXLSX {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".xlsx"
	}
	return filepath.Join(dir, name)
}

// Write writes t to path in format, creating the parent directory.
func Write(path string, t Table, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "table: create dir for %s", path)
	}

	switch format {
	case FormatXLSX:
		return t.WriteXLSX(path)
	case FormatCSV, "":
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "table: create %s", path)
		}
		if err := t.WriteCSV(f); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		return eris.Wrapf(f.Close(), "table: close %s", path)
	default:
		return eris.Errorf("table: unknown format %q", format)
	}
}

package usage

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/arcgis-admin-cli/internal/fetcher"
)

// timeLayouts are tried in order. Slash and dash dates are day-first.
var timeLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"2-1-2006",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseTime parses a Time_Slice cell. Ambiguous dates are read day-first.
// Bare numbers are treated as spreadsheet serial dates.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		days := math.Floor(serial)
		secs := math.Round((serial - days) * 86400)
		return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), nil
	}
	return time.Time{}, eris.Errorf("usage: unrecognised time slice %q", s)
}

// parseCount reads a Request_Count cell. Empty, NaN, non-numeric and
// fractional cells are undefined; "5.0" reads as 5.
func parseCount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// layout maps column names to indexes in a header row.
type layout struct {
	site, directory, timeSlice, count int
}

func newLayout(header []string) (layout, error) {
	l := layout{site: -1, directory: -1, timeSlice: -1, count: -1}
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case ColumnSite:
			l.site = i
		case ColumnDirectory:
			l.directory = i
		case ColumnTimeSlice:
			l.timeSlice = i
		case ColumnRequestCount:
			l.count = i
		}
	}
	if l.timeSlice < 0 || l.count < 0 {
		return l, eris.Errorf("usage: header must contain %s and %s, got %v", ColumnTimeSlice, ColumnRequestCount, header)
	}
	return l, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func (l layout) sample(row []string, line int) (Sample, error) {
	t, err := ParseTime(cell(row, l.timeSlice))
	if err != nil {
		return Sample{}, eris.Wrapf(err, "usage: row %d", line)
	}
	count, valid := parseCount(cell(row, l.count))
	return Sample{
		Site:      cell(row, l.site),
		Directory: cell(row, l.directory),
		Time:      t,
		Count:     count,
		Valid:     valid,
	}, nil
}

// ReadCSV reads a usage series from CSV with a header row.
func ReadCSV(ctx context.Context, r io.Reader) (Series, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		series Series
		l      layout
		haveL  bool
		line   = 1
	)
	for row := range rowCh {
		line++
		if !haveL {
			var err error
			if l, err = newLayout(<-headerCh); err != nil {
				drain(rowCh)
				return nil, err
			}
			haveL = true
		}
		s, err := l.sample(row, line)
		if err != nil {
			drain(rowCh)
			return nil, err
		}
		series = append(series, s)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrap(err, "usage: read csv")
		}
	}

	if !haveL {
		select {
		case header := <-headerCh:
			if _, err := newLayout(header); err != nil {
				return nil, err
			}
		default:
			return nil, eris.New("usage: empty csv")
		}
	}
	return series, nil
}

func drain(ch <-chan []string) {
	for range ch {
	}
}

// ReadRows reads a usage series from already-split rows, the first being the
// header.
func ReadRows(rows [][]string) (Series, error) {
	if len(rows) == 0 {
		return nil, eris.New("usage: empty sheet")
	}
	l, err := newLayout(rows[0])
	if err != nil {
		return nil, err
	}
	var series Series
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		s, err := l.sample(row, i+2)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadFile reads a series from a .csv or .xlsx file.
func ReadFile(ctx context.Context, path string) (Series, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{ISODates: true})
		if err != nil {
			return nil, eris.Wrapf(err, "usage: read %s", path)
		}
		return ReadRows(rows)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "usage: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	series, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "usage: read %s", path)
	}
	return series, nil
}

// WriteCSV writes s with its header.
func WriteCSV(w io.Writer, s Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header()); err != nil {
		return eris.Wrap(err, "usage: write header")
	}
	if err := cw.WriteAll(s.Rows()); err != nil {
		return eris.Wrap(err, "usage: write rows")
	}
	return nil
}

// WriteFile writes s as CSV to path, replacing any existing file. The data is
// written to a temporary file in the same directory first and renamed over
// path.
func WriteFile(path string, s Series) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "usage: create temp for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := WriteCSV(tmp, s); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "usage: chmod temp for %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "usage: close temp for %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "usage: replace %s", path)
	}
	return nil
}

// ArchiveName returns the archive file name for a master file:
// {basename}_{YYYYMMDD_HHMMSS}.csv.
func ArchiveName(masterPath string, at time.Time) string {
	base := filepath.Base(masterPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_" + at.Format("20060102_150405") + ".csv"
}

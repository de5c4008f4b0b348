package usage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestParseTime_Formats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02", day("2024-01-02")},
		{"02/01/2024", day("2024-01-02")},
		{"2/1/2024", day("2024-01-02")},
		{"13/01/2024", day("2024-01-13")},
		{"02-01-2024", day("2024-01-02")},
		{"2024/01/02", day("2024-01-02")},
		{"2024-01-02 10:30:00", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{"02/01/2024 10:30", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{"45293", day("2024-01-02")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTime_Invalid(t *testing.T) {
	_, err := ParseTime("not a date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognised time slice")
}

func TestReadCSV_TwoColumn(t *testing.T) {
	in := "Time_Slice,Request_Count\n2024-01-01,5\n02/01/2024,\n2024-01-03,7.0\n2024-01-04,nan\n"

	s, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, s, 4)

	assert.Equal(t, sample("2024-01-01", 5), s[0])
	assert.Equal(t, Sample{Time: day("2024-01-02")}, s[1])
	assert.Equal(t, sample("2024-01-03", 7), s[2])
	assert.False(t, s[3].Valid)
}

func TestReadCSV_Labelled(t *testing.T) {
	in := "Site,Directory,Time_Slice,Request_Count\nprod,Transport,2024-01-01,12\n"

	s, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, "prod", s[0].Site)
	assert.Equal(t, "Transport", s[0].Directory)
	assert.Equal(t, int64(12), s[0].Count)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	s, err := ReadCSV(context.Background(), strings.NewReader("Time_Slice,Request_Count\n"))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	require.Error(t, err)

	_, err = ReadCSV(context.Background(), strings.NewReader("Date,Count\n2024-01-01,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header must contain")

	_, err = ReadCSV(context.Background(), strings.NewReader("Time_Slice,Request_Count\nyesterday,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestWriteCSV_RoundTripsThroughReconcile(t *testing.T) {
	series := Series{sample("2024-01-01", 5), {Time: day("2024-01-02")}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, series))
	assert.Equal(t, "Time_Slice,Request_Count\n2024-01-01,5\n2024-01-02,\n", buf.String())

	read, err := ReadCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, series, read)
}

func TestWriteFile_ReplacesMaster(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usage_master.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	series := Series{{Site: "prod", Directory: "Root", Time: day("2024-01-01"), Count: 3, Valid: true}}
	require.NoError(t, WriteFile(path, series))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Site,Directory,Time_Slice,Request_Count\nprod,Root,2024-01-01,3\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("usage")
	require.NoError(t, err)
	for _, r := range [][]string{{"Time_Slice", "Request_Count"}, {"2024-01-01", "4"}, {"", ""}, {"03/01/2024", "6"}} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))

	s, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Series{sample("2024-01-01", 4), sample("2024-01-03", 6)}, s)
}

func TestReadFile_XLSXDateCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("usage")
	require.NoError(t, err)
	header := sheet.AddRow()
	header.AddCell().SetString("Time_Slice")
	header.AddCell().SetString("Request_Count")
	for _, r := range []struct {
		at    time.Time
		count int
	}{
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 5},
		{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 7},
	} {
		row := sheet.AddRow()
		row.AddCell().SetDate(r.at)
		row.AddCell().SetInt(r.count)
	}
	require.NoError(t, f.Save(path))

	s, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Series{sample("2024-01-02", 5), sample("2024-01-03", 7)}, s)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in    string
		want  int64
		valid bool
	}{
		{"5", 5, true},
		{" 12 ", 12, true},
		{"5.0", 5, true},
		{"0", 0, true},
		{"0.5", 0, false},
		{"2.75", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, valid := parseCount(tt.in)
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcile_FractionalCountsAreDropped(t *testing.T) {
	rows := [][]string{{"Time_Slice", "Request_Count"}, {"2024-01-01", "0.5"}, {"2024-01-02", "3"}}
	incoming, err := ReadRows(rows)
	require.NoError(t, err)

	_, next := Reconcile(nil, incoming)
	assert.Equal(t, Series{sample("2024-01-02", 3)}, next)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "MapServices_Usage_20240506_070809.csv", ArchiveName("/data/master/MapServices_Usage.csv", at))
	assert.Equal(t, "usage_20240506_070809.csv", ArchiveName("usage.xlsx", at))
}

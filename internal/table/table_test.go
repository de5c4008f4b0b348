package table

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/arcgis-admin-cli/internal/fetcher"
	"github.com/sells-group/arcgis-admin-cli/internal/nested"
)

func sample() Table {
	return FromRecords("manifest", []nested.Record{
		nested.RecordOf(
			nested.E("service_name", nested.Scalar("Rivers")),
			nested.E("databases_0_onServerName", nested.Scalar("gisdb")),
		),
		nested.RecordOf(
			nested.E("server_name", nested.Scalar("prod")),
			nested.E("service_name", nested.Scalar("Roads")),
			nested.E("resources_0", nested.Scalar(`\\fs\data`)),
		),
	}, "server_name", "directory", "service_name")
}

func TestFromRecords_AlignsColumns(t *testing.T) {
	tbl := sample()
	assert.Equal(t, []string{"server_name", "directory", "service_name", "databases_0_onServerName", "resources_0"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"", "", "Rivers", "gisdb", ""},
		{"prod", "", "Roads", "", `\\fs\data`},
	}, tbl.Rows)
	assert.Equal(t, 2, tbl.Len())
}

func TestWriteCSV(t *testing.T) {
	tbl := Table{Columns: []string{"Site", "Directory", "Note"}, Rows: [][]string{{"prod", "Hydro, Water"}}}

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, "Site,Directory,Note\nprod,\"Hydro, Water\",\n", buf.String())
}

func TestAppend(t *testing.T) {
	a := Table{Columns: []string{"x"}, Rows: [][]string{{"1"}}}
	a.Append(Table{Columns: []string{"x"}, Rows: [][]string{{"2"}, {"3"}}})
	assert.Equal(t, [][]string{{"1"}, {"2"}, {"3"}}, a.Rows)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "GIS_Services_map_20240105.csv"), OutputPath("out", "GIS_Services_map_20240105.csv", FormatCSV))
	assert.Equal(t, filepath.Join("out", "GIS_Services_map_20240105.xlsx"), OutputPath("out", "GIS_Services_map_20240105.csv", FormatXLSX))
}

func TestWrite_CSVCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.csv")
	require.NoError(t, Write(path, sample(), FormatCSV))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server_name,directory,service_name")
}

func TestWrite_XLSXReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	tbl := Table{Name: "a sheet name that is far longer than excel allows", Columns: []string{"Site", "Count"}, Rows: [][]string{{"prod"}}}
	require.NoError(t, Write(path, tbl, FormatXLSX))

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Site", "Count"}, {"prod", ""}}, rows)
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "r.parquet"), sample(), "parquet")
	assert.ErrorContains(t, err, "unknown format")
}

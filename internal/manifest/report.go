package manifest

import (
	"strings"

	"github.com/sells-group/arcgis-admin-cli/internal/nested"
)

// ReportColumns is the column order of the manifest XML report.
var ReportColumns = []string{
	"Endpoint",
	"ServiceDir",
	"ServiceName",
	"ServiceType",
	"Service_URL",
	"DatasetName",
	"DatasetType",
	"DatasetPath",
	"ResourcePath",
	"DatasetPart1",
	"DatasetPart2",
}

// resourceSeparator joins multiple resource paths into one cell.
const resourceSeparator = "; "

// ReportRow projects one expanded row onto ReportColumns. DatasetPart1 and
// DatasetPart2 are derived from the dataset path.
func ReportRow(r nested.Record) []string {
	path := r.Text(FieldDatasetPath)
	parts := SplitPath(path)

	return []string{
		r.Text(FieldEndpoint),
		r.Text(FieldServiceDir),
		r.Text(FieldServiceName),
		r.Text(FieldServiceType),
		r.Text(FieldServiceURL),
		r.Text(FieldDatasetName),
		r.Text(FieldDatasetType),
		path,
		FormatResourcePaths(r),
		parts.Parent,
		parts.Leaf,
	}
}

// ReportRows projects every row onto ReportColumns.
func ReportRows(rows []nested.Record) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = ReportRow(r)
	}
	return out
}

// FormatResourcePaths renders the resource_paths aggregate of a row as a
// single cell. An empty or missing list renders as "N/A".
func FormatResourcePaths(r nested.Record) string {
	v, ok := r.Get(FieldResourcePaths)
	if !ok {
		return NotAvailable
	}
	paths := make([]string, 0, len(v.Items()))
	for _, item := range v.Items() {
		paths = append(paths, item.String())
	}
	if len(paths) == 0 {
		return NotAvailable
	}
	return strings.Join(paths, resourceSeparator)
}

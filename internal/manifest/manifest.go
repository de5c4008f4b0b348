// Package manifest expands ArcGIS service manifests into report rows.
package manifest

import (
	"github.com/sells-group/arcgis-admin-cli/internal/nested"
)

// Descriptive field columns carried on every expanded row.
const (
	FieldEndpoint    = "Endpoint"
	FieldServiceDir  = "ServiceDir"
	FieldServiceName = "ServiceName"
	FieldServiceType = "ServiceType"
	FieldServiceURL  = "Service_URL"
)

// Columns added by Expand.
const (
	FieldDatasetName   = "dataset_name"
	FieldDatasetType   = "dataset_type"
	FieldDatasetPath   = "dataset_path"
	FieldResourcePaths = "resource_paths"
)

// Manifest describes the data sources behind one published service.
type Manifest struct {
	Endpoint    string
	ServiceDir  string
	ServiceName string
	ServiceType string
	ServiceURL  string
	Databases   []Database
	Resources   []Resource
}

// Database is one SVCDatabase sub-group.
type Database struct {
	Datasets []Dataset
}

// Dataset is one SVCDataset entry. Nil fields were absent in the manifest.
type Dataset struct {
	Name *string
	Type *string
	Path *string
}

// Resource is one SVCResource entry.
type Resource struct {
	Path *string
}

// DatasetCount returns the number of datasets across all databases.
func (m Manifest) DatasetCount() int {
	n := 0
	for _, db := range m.Databases {
		n += len(db.Datasets)
	}
	return n
}

// Fields returns the descriptive fields shared by every row of m.
func (m Manifest) Fields() nested.Record {
	return nested.RecordOf(
		nested.E(FieldEndpoint, nested.Scalar(m.Endpoint)),
		nested.E(FieldServiceDir, nested.Scalar(m.ServiceDir)),
		nested.E(FieldServiceName, nested.Scalar(m.ServiceName)),
		nested.E(FieldServiceType, nested.Scalar(m.ServiceType)),
		nested.E(FieldServiceURL, nested.Scalar(m.ServiceURL)),
	)
}

// ResourcePaths returns the resource paths in manifest order, with "N/A" for
// resources that carry no path.
func (m Manifest) ResourcePaths() []string {
	out := make([]string, len(m.Resources))
	for i, r := range m.Resources {
		out[i] = orNA(r.Path)
	}
	return out
}

// Expand turns a manifest into report rows: one row per dataset across all
// databases, each carrying the full resource list. A manifest with no
// databases yields a single placeholder row. A database with no datasets
// yields no rows.
func Expand(m Manifest) []nested.Record {
	fields := m.Fields()
	resources := nested.Strings(m.ResourcePaths()...)

	row := func(name, typ, path string) nested.Record {
		r := fields.Clone()
		r.Set(FieldDatasetName, nested.Scalar(name))
		r.Set(FieldDatasetType, nested.Scalar(typ))
		r.Set(FieldDatasetPath, nested.Scalar(path))
		r.Set(FieldResourcePaths, resources)
		return r
	}

	if len(m.Databases) == 0 {
		return []nested.Record{row(NotAvailable, NotAvailable, NotAvailable)}
	}

	rows := make([]nested.Record, 0, m.DatasetCount())
	for _, db := range m.Databases {
		for _, ds := range db.Datasets {
			rows = append(rows, row(orNA(ds.Name), orNA(ds.Type), orNA(ds.Path)))
		}
	}
	return rows
}

// ExpandAll expands each manifest in order and concatenates the rows.
func ExpandAll(manifests []Manifest) []nested.Record {
	var rows []nested.Record
	for _, m := range manifests {
		rows = append(rows, Expand(m)...)
	}
	return rows
}

func orNA(s *string) string {
	if s == nil {
		return NotAvailable
	}
	return *s
}

package report

import (
	"bytes"
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/arcgis-admin-cli/internal/manifest"
	"github.com/sells-group/arcgis-admin-cli/internal/nested"
	"github.com/sells-group/arcgis-admin-cli/internal/sites"
	"github.com/sells-group/arcgis-admin-cli/internal/table"
)

// Columns pinned to the front of the manifest JSON report.
const (
	ColServerName  = "server_name"
	ColDirectory   = "directory"
	ColServiceName = "service_name"
)

// Endpoint returns the third-last path segment of a REST services URL:
// "https://gis.example.com/arcgis/rest/services" gives "arcgis". URLs with
// fewer than three segments have no endpoint.
func Endpoint(rest string) string {
	parts := strings.Split(rest, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-3]
}

// ManifestXML builds the dataset report: one row per dataset of every
// service's manifest.xml, or one N/A row for services without databases.
func (r *Runner) ManifestXML(ctx context.Context, list []sites.Site) (*Report, error) {
	units, failures := r.services(ctx, list)
	rep := &Report{Units: len(units)}
	rep.addFailures("manifest-xml", failures)

	results := run(ctx, r.opts.Concurrency, units, ServiceUnit.String, func(ctx context.Context, u ServiceUnit) ([]manifest.Manifest, error) {
		data, err := fetch(ctx, r, u.Site.Name, func(ctx context.Context) ([]byte, error) {
			return r.client.ManifestXML(ctx, u.Site.Admin, u.Ref)
		})
		if err != nil {
			return nil, err
		}
		return manifest.ParseServiceXML(ctx, bytes.NewReader(data), manifest.Manifest{
			Endpoint:    Endpoint(u.Site.REST),
			ServiceDir:  u.Ref.Folder,
			ServiceName: u.Ref.Name,
			ServiceType: u.Ref.Type,
			ServiceURL:  u.Ref.RESTURL(u.Site.REST),
		})
	})

	perService, failures := Partition(results)
	rep.addFailures("manifest-xml", failures)

	var all []manifest.Manifest
	for _, ms := range perService {
		all = append(all, ms...)
	}
	rows := manifest.ExpandAll(all)
	rep.Table = table.Table{
		Name:    NameManifestXML,
		Columns: manifest.ReportColumns,
		Rows:    manifest.ReportRows(rows),
	}
	zap.L().Info("manifest xml report built",
		zap.Int("services", len(units)),
		zap.Int("manifests", len(all)),
		zap.Int("rows", rep.Table.Len()),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, ctx.Err()
}

// ManifestJSON builds one flattened row per service manifest.json, tagged
// with the site, folder and service it came from.
func (r *Runner) ManifestJSON(ctx context.Context, list []sites.Site) (*Report, error) {
	units, failures := r.services(ctx, list)
	rep := &Report{Units: len(units)}
	rep.addFailures("manifest-json", failures)

	results := run(ctx, r.opts.Concurrency, units, ServiceUnit.String, func(ctx context.Context, u ServiceUnit) (nested.Record, error) {
		data, err := fetch(ctx, r, u.Site.Name, func(ctx context.Context) ([]byte, error) {
			return r.client.ManifestJSON(ctx, u.Site.Admin, u.Ref)
		})
		if err != nil {
			return nested.Record{}, err
		}
		doc, err := nested.ParseJSON(data)
		if err != nil {
			return nested.Record{}, err
		}
		if !doc.IsMapping() {
			return nested.Record{}, eris.Errorf("report: manifest.json of %s is a %s, not an object", u, doc.Kind())
		}
		doc = nested.Inject(doc, ColServerName, nested.Scalar(u.Site.Name))
		doc = nested.Inject(doc, ColDirectory, nested.Scalar(u.Ref.Folder))
		doc = nested.Inject(doc, ColServiceName, nested.Scalar(u.Ref.Name))
		return nested.Flatten(doc), nil
	})

	records, failures := Partition(results)
	rep.addFailures("manifest-json", failures)

	rep.Table = table.FromRecords(NameManifestJSON, records, ColServerName, ColDirectory, ColServiceName)
	zap.L().Info("manifest json report built",
		zap.Int("services", len(units)),
		zap.Int("rows", rep.Table.Len()),
		zap.Int("columns", len(rep.Table.Columns)),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, ctx.Err()
}

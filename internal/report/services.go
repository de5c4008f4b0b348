package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/arcgis-admin-cli/internal/sites"
	"github.com/sells-group/arcgis-admin-cli/internal/table"
	"github.com/sells-group/arcgis-admin-cli/pkg/arcgis"
)

// Capabilities reported as columns of the service details report.
var Capabilities = []string{"FeatureServer", "KmlServer", "WFSServer", "WMSServer"}

// ServiceColumns is the column order of the service details report.
var ServiceColumns = []string{
	"Site",
	"Directory",
	"Service_Name",
	"Service_Type",
	"Access",
	"Server_Type",
	"Is_Private",
	"Feature_Server",
	"Kml_Server",
	"WFS_Server",
	"WMS_Server",
	"Create_Date",
	"Service_URL",
}

func boolCell(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Services builds the service details report: one row per service with
// its access, privacy, enabled capabilities and metadata create date.
func (r *Runner) Services(ctx context.Context, list []sites.Site) (*Report, error) {
	units, failures := r.services(ctx, list)
	rep := &Report{Units: len(units)}
	rep.addFailures("services", failures)

	results := run(ctx, r.opts.Concurrency, units, ServiceUnit.String, func(ctx context.Context, u ServiceUnit) ([]string, error) {
		props, err := fetch(ctx, r, u.Site.Name, func(ctx context.Context) (arcgis.ServiceProperties, error) {
			return r.client.Properties(ctx, u.Site.Admin, u.Ref)
		})
		if err != nil {
			return nil, err
		}
		return r.serviceRow(ctx, u, props), nil
	})

	rows, failures := Partition(results)
	rep.addFailures("services", failures)

	rep.Table = table.Table{Name: NameServices, Columns: ServiceColumns, Rows: rows}
	zap.L().Info("service details report built",
		zap.Int("services", len(units)),
		zap.Int("rows", rep.Table.Len()),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, ctx.Err()
}

func (r *Runner) serviceRow(ctx context.Context, u ServiceUnit, props arcgis.ServiceProperties) []string {
	ref := u.Ref
	if props.ServiceName != "" {
		ref.Name = props.ServiceName
	}
	if props.Type != "" {
		ref.Type = props.Type
	}
	caps := props.EnabledExtensions(Capabilities...)

	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}
	created := r.client.CreateDate(ctx, u.Site.REST, ref)

	return []string{
		u.Site.Name,
		DirectoryLabel(ref.Folder),
		ref.Name,
		ref.Type,
		u.Site.Access,
		u.Site.Type,
		boolCell(props.Private),
		boolCell(caps["FeatureServer"]),
		boolCell(caps["KmlServer"]),
		boolCell(caps["WFSServer"]),
		boolCell(caps["WMSServer"]),
		created,
		ref.RESTURL(u.Site.REST),
	}
}

package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/arcgis-admin-cli/internal/sites"
	"github.com/sells-group/arcgis-admin-cli/internal/table"
	"github.com/sells-group/arcgis-admin-cli/internal/usage"
)

// UsageColumns is the column order of the usage report.
var UsageColumns = []string{usage.ColumnSite, usage.ColumnDirectory, usage.ColumnTimeSlice, usage.ColumnRequestCount}

// Usage builds the request count report: one quick report per folder,
// exploded to one row per time slice.
func (r *Runner) Usage(ctx context.Context, list []sites.Site) (*Report, error) {
	units, failures := r.folders(ctx, list)
	rep := &Report{Units: len(units)}
	rep.addFailures("usage", failures)

	results := run(ctx, r.opts.Concurrency, units, FolderUnit.String, func(ctx context.Context, u FolderUnit) (usage.Series, error) {
		data, err := fetch(ctx, r, u.Site.Name, func(ctx context.Context) ([]byte, error) {
			return r.client.QuickReport(ctx, u.Site.Admin, u.Folder, r.opts.Since)
		})
		if err != nil {
			return nil, err
		}
		return usage.ParseQuickReport(u.Site.Name, DirectoryLabel(u.Folder), data)
	})

	perFolder, failures := Partition(results)
	rep.addFailures("usage", failures)

	var series usage.Series
	for _, s := range perFolder {
		series = append(series, s...)
	}
	rep.Table = table.Table{Name: NameUsage, Columns: UsageColumns, Rows: series.Rows()}
	zap.L().Info("usage report built",
		zap.Int("folders", len(units)),
		zap.Int("rows", rep.Table.Len()),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, ctx.Err()
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/arcgis-admin-cli/internal/fetcher"
	"github.com/sells-group/arcgis-admin-cli/internal/report"
	"github.com/sells-group/arcgis-admin-cli/internal/resilience"
	"github.com/sells-group/arcgis-admin-cli/internal/runlog"
	"github.com/sells-group/arcgis-admin-cli/internal/sites"
	"github.com/sells-group/arcgis-admin-cli/internal/table"
	"github.com/sells-group/arcgis-admin-cli/internal/warehouse"
	"github.com/sells-group/arcgis-admin-cli/pkg/arcgis"
)

// reportFlags are shared by every report command. Empty values fall back to
// the report section of the config.
type reportFlags struct {
	outDir      string
	outName     string
	sitesFile   string
	serverType  string
	serverName  string
	format      string
	concurrency int
	warehouse   bool
}

func addReportFlags(cmd *cobra.Command, f *reportFlags, withSites bool) {
	cmd.Flags().StringVar(&f.outDir, "out_dir", "", "output directory (default report.out_dir)")
	cmd.Flags().StringVar(&f.outName, "out_name", "", "output file name (default {report}_{YYYYMMDD}.csv)")
	cmd.Flags().StringVar(&f.format, "format", "", "output format: csv or xlsx (default report.format)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "units fetched in parallel (default report.concurrency)")
	cmd.Flags().BoolVar(&f.warehouse, "warehouse", false, "also load the table into the Postgres warehouse")
	if withSites {
		cmd.Flags().StringVar(&f.sitesFile, "gis_sites_json", "", "site registry file (default report.sites_file)")
		cmd.Flags().StringVar(&f.serverType, "server_type", "map", "server group to report on: map or image")
		cmd.Flags().StringVar(&f.serverName, "server_name", "", "report on this site only")
	}
}

// resolve fills unset flags from the loaded config and copies set ones into
// it, so Validate sees the effective values.
func (f *reportFlags) resolve() {
	if f.outDir == "" {
		f.outDir = cfg.Report.OutDir
	}
	if f.sitesFile == "" {
		f.sitesFile = cfg.Report.SitesFile
	}
	if f.format == "" {
		f.format = cfg.Report.Format
	} else {
		cfg.Report.Format = f.format
	}
	if f.concurrency != 0 {
		cfg.Report.Concurrency = f.concurrency
	}
}

func (f *reportFlags) outputPath(name string) string {
	file := f.outName
	if file == "" {
		file = report.FileName(name, time.Now())
	}
	return table.OutputPath(f.outDir, file, f.format)
}

func (f *reportFlags) sites() ([]sites.Site, error) {
	all, err := sites.Load(f.sitesFile, f.serverType)
	if err != nil {
		return nil, err
	}
	return sites.Select(all, f.serverName)
}

func newClient() *arcgis.Client {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:     cfg.ArcGIS.FetchTimeout(),
		MaxRetries:  cfg.ArcGIS.MaxRetries,
		RatePerHost: rate.Limit(cfg.ArcGIS.RateLimit),
	})
	return arcgis.NewClient(
		arcgis.Credentials{Username: cfg.ArcGIS.Username, Password: cfg.ArcGIS.Password},
		arcgis.WithFetcher(f),
		arcgis.WithTokenTTL(cfg.ArcGIS.TokenTTL()),
		arcgis.WithRetry(cfg.ArcGIS.RetryPolicy()),
	)
}

func newRunner() *report.Runner {
	breakerCfg := cfg.ArcGIS.BreakerPolicy()
	breakerCfg.OnStateChange = func(site string, from, to resilience.CircuitState) {
		zap.L().Warn("site circuit changed state",
			zap.String("site", site),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return report.NewRunner(newClient(), report.Options{
		Concurrency:   cfg.Report.Concurrency,
		FetchTimeout:  cfg.ArcGIS.FetchTimeout(),
		IgnoreFolders: cfg.ArcGIS.IgnoreFolders,
		Since:         cfg.Usage.Since,
		ItemType:      cfg.Portal.ItemType,
		PageSize:      cfg.Portal.PageSize,
		Breakers:      resilience.NewSiteBreakers(breakerCfg),
	})
}

// track records fn as a run in the run log. Failed units are stored with
// the run. With no run log configured fn simply runs.
func track(ctx context.Context, command string, fn func(runID string) (runlog.Summary, []report.Failure, error)) error {
	if cfg.RunLog.Path == "" {
		_, _, err := fn("")
		return err
	}

	rl, err := openRunLog(ctx)
	if err != nil {
		return err
	}
	defer rl.Close() //nolint:errcheck

	run, err := rl.Start(ctx, command, os.Args[1:])
	if err != nil {
		return err
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("command", command))

	sum, failures, err := fn(run.ID)
	for _, f := range failures {
		if rerr := rl.RecordFailure(ctx, run.ID, f.Unit, f.Err); rerr != nil {
			log.Warn("could not record failed unit", zap.String("unit", f.Unit), zap.Error(rerr))
		}
	}
	if err != nil {
		if ferr := rl.Fail(ctx, run.ID, err); ferr != nil {
			log.Warn("could not mark run failed", zap.Error(ferr))
		}
		return err
	}
	return rl.Complete(ctx, run.ID, sum)
}

func openRunLog(ctx context.Context) (*runlog.Log, error) {
	rl, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		return nil, err
	}
	if err := rl.Migrate(ctx); err != nil {
		rl.Close() //nolint:errcheck
		return nil, err
	}
	return rl, nil
}

// runReport builds a report, writes it to disk, optionally loads it into the
// warehouse, and records the run.
func runReport(cmd *cobra.Command, f *reportFlags, name string, build func(ctx context.Context) (*report.Report, error)) error {
	ctx := cmd.Context()
	return track(ctx, cmd.CommandPath(), func(runID string) (runlog.Summary, []report.Failure, error) {
		rep, err := build(ctx)
		if err != nil {
			return runlog.Summary{}, nil, err
		}
		if rep.Table.Len() == 0 {
			zap.L().Warn("report has no rows", zap.String("report", name), zap.Int("failed", len(rep.Failures)))
		}

		path := f.outputPath(name)
		if err := table.Write(path, rep.Table, f.format); err != nil {
			return runlog.Summary{}, rep.Failures, err
		}
		zap.L().Info("report saved",
			zap.String("path", path),
			zap.Int("rows", rep.Table.Len()),
			zap.Int("units", rep.Units),
			zap.Int("failed", len(rep.Failures)),
		)
		fmt.Printf("Saved %d rows to %s (%d of %d units failed)\n", rep.Table.Len(), path, len(rep.Failures), rep.Units)

		if f.warehouse {
			if err := loadWarehouse(ctx, runID, rep.Table); err != nil {
				return runlog.Summary{}, rep.Failures, err
			}
		}

		return runlog.Summary{
			Units:  rep.Units,
			Failed: len(rep.Failures),
			Rows:   rep.Table.Len(),
			Output: path,
		}, rep.Failures, nil
	})
}

func loadWarehouse(ctx context.Context, runID string, t table.Table) error {
	pool, err := warehouse.Connect(ctx, cfg.Warehouse.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := warehouse.NewSink(pool, cfg.Warehouse.Schema).Load(ctx, runID, t); err != nil {
		return eris.Wrap(err, "load warehouse")
	}
	return nil
}

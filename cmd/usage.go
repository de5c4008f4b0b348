package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/arcgis-admin-cli/internal/archive"
	"github.com/sells-group/arcgis-admin-cli/internal/report"
	"github.com/sells-group/arcgis-admin-cli/internal/runlog"
	"github.com/sells-group/arcgis-admin-cli/internal/table"
	"github.com/sells-group/arcgis-admin-cli/internal/usage"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Service request counts and usage history files",
}

var usageReportFlags reportFlags

var usageReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Request counts per folder from the usage quick report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := &usageReportFlags
		f.resolve()
		if err := cfg.Validate("admin"); err != nil {
			return err
		}
		list, err := f.sites()
		if err != nil {
			return err
		}
		return runReport(cmd, f, report.NameUsage, func(ctx context.Context) (*report.Report, error) {
			return newRunner().Usage(ctx, list)
		})
	},
}

var (
	reconcileMaster     string
	reconcileNew        string
	reconcileArchiveDir string
)

var usageReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Append new usage rows to a master file, archiving the master first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}
		dir := reconcileArchiveDir
		if dir == "" {
			dir = cfg.Usage.ArchiveDir
		}
		arch, err := archive.New(cfg.Archive, dir)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		return track(ctx, cmd.CommandPath(), func(string) (runlog.Summary, []report.Failure, error) {
			res, err := reconcileFiles(ctx, arch, reconcileMaster, reconcileNew, time.Now())
			if err != nil {
				return runlog.Summary{}, nil, err
			}
			fmt.Printf("Archived master to %s\n", res.archivedAt)
			fmt.Printf("Appended %d rows (%d dates), removed %d empty rows, saved %s\n",
				len(res.plan.Appended), len(res.plan.AppendedDates()), res.plan.Removed, reconcileMaster)
			return runlog.Summary{
				Units:  len(res.plan.Appended) + res.plan.Skipped,
				Rows:   len(res.plan.Next),
				Output: reconcileMaster,
			}, nil, nil
		})
	},
}

type reconcileResult struct {
	plan       usage.Reconciliation
	archivedAt string
}

// reconcileFiles merges the series at newPath into the master at masterPath.
// The master is archived before it is replaced; an archive failure leaves
// the master untouched.
func reconcileFiles(ctx context.Context, arch archive.Archiver, masterPath, newPath string, now time.Time) (reconcileResult, error) {
	master, err := usage.ReadFile(ctx, masterPath)
	if err != nil {
		return reconcileResult{}, err
	}
	incoming, err := usage.ReadFile(ctx, newPath)
	if err != nil {
		return reconcileResult{}, err
	}

	plan := usage.Plan(master, incoming)

	var buf bytes.Buffer
	if err := usage.WriteCSV(&buf, plan.Archived); err != nil {
		return reconcileResult{}, err
	}
	where, err := arch.Put(ctx, usage.ArchiveName(masterPath, now), buf.Bytes())
	if err != nil {
		return reconcileResult{}, eris.Wrap(err, "reconcile: archive master")
	}

	log := zap.L().With(zap.String("master", masterPath))
	if plan.HasCutoff {
		log.Info("most recent date in master", zap.Time("cutoff", plan.Cutoff))
	} else {
		log.Info("master is empty; appending every incoming row")
	}
	dates := plan.AppendedDates()
	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = usage.FormatTime(d)
	}
	log.Info("reconciling usage",
		zap.String("archive", where),
		zap.Strings("new_dates", labels),
		zap.Int("appended", len(plan.Appended)),
		zap.Int("skipped", plan.Skipped),
		zap.Int("removed", plan.Removed),
	)

	if err := writeMaster(masterPath, plan.Next); err != nil {
		return reconcileResult{}, err
	}
	return reconcileResult{plan: plan, archivedAt: where}, nil
}

// writeMaster replaces the master in its own format.
func writeMaster(path string, s usage.Series) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		t := table.Table{Name: "Usage", Columns: s.Header(), Rows: s.Rows()}
		return table.Write(path, t, table.FormatXLSX)
	}
	return usage.WriteFile(path, s)
}

func init() {
	addReportFlags(usageReportCmd, &usageReportFlags, true)

	usageReconcileCmd.Flags().StringVar(&reconcileMaster, "master", "", "master usage file (.csv or .xlsx)")
	usageReconcileCmd.Flags().StringVar(&reconcileNew, "new", "", "newly exported usage file")
	usageReconcileCmd.Flags().StringVar(&reconcileArchiveDir, "archive_dir", "", "archive directory (default usage.archive_dir)")
	_ = usageReconcileCmd.MarkFlagRequired("master")
	_ = usageReconcileCmd.MarkFlagRequired("new")

	usageCmd.AddCommand(usageReportCmd)
	usageCmd.AddCommand(usageReconcileCmd)
	rootCmd.AddCommand(usageCmd)
}

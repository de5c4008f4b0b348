package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/arcgis-admin-cli/internal/report"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Report the data sources behind published services",
}

var manifestXMLFlags reportFlags

var manifestXMLCmd = &cobra.Command{
	Use:   "xml",
	Short: "One row per dataset from every service's manifest.xml",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := &manifestXMLFlags
		f.resolve()
		if err := cfg.Validate("admin"); err != nil {
			return err
		}
		list, err := f.sites()
		if err != nil {
			return err
		}
		return runReport(cmd, f, report.NameManifestXML, func(ctx context.Context) (*report.Report, error) {
			return newRunner().ManifestXML(ctx, list)
		})
	},
}

var manifestJSONFlags reportFlags

var manifestJSONCmd = &cobra.Command{
	Use:   "json",
	Short: "One flattened row per service manifest.json",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := &manifestJSONFlags
		f.resolve()
		if err := cfg.Validate("admin"); err != nil {
			return err
		}
		list, err := f.sites()
		if err != nil {
			return err
		}
		return runReport(cmd, f, report.NameManifestJSON, func(ctx context.Context) (*report.Report, error) {
			return newRunner().ManifestJSON(ctx, list)
		})
	},
}

func init() {
	addReportFlags(manifestXMLCmd, &manifestXMLFlags, true)
	addReportFlags(manifestJSONCmd, &manifestJSONFlags, true)

	manifestCmd.AddCommand(manifestXMLCmd)
	manifestCmd.AddCommand(manifestJSONCmd)
	rootCmd.AddCommand(manifestCmd)
}

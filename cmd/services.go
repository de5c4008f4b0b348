package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/arcgis-admin-cli/internal/report"
)

var servicesFlags reportFlags

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Service details: access, privacy, capabilities and create date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := &servicesFlags
		f.resolve()
		if err := cfg.Validate("admin"); err != nil {
			return err
		}
		list, err := f.sites()
		if err != nil {
			return err
		}
		return runReport(cmd, f, report.ServicesName(f.serverType), func(ctx context.Context) (*report.Report, error) {
			return newRunner().Services(ctx, list)
		})
	},
}

func init() {
	addReportFlags(servicesCmd, &servicesFlags, true)
	rootCmd.AddCommand(servicesCmd)
}

package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/arcgis-admin-cli/internal/report"
)

var (
	itemsFlags reportFlags
	itemsSite  string
)

// portalURL maps --site to the configured portal.
func portalURL(site string) (string, error) {
	switch site {
	case "agol":
		if cfg.Portal.AGOLURL == "" {
			return "", eris.New("portal.agol_url is not configured")
		}
		return cfg.Portal.AGOLURL, nil
	case "portal":
		if cfg.Portal.URL == "" {
			return "", eris.New("portal.url is not configured")
		}
		return cfg.Portal.URL, nil
	default:
		return "", eris.Errorf("invalid site %q: want agol or portal", site)
	}
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Portal or ArcGIS Online items with every data url they reference",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := &itemsFlags
		f.resolve()
		if err := cfg.Validate("portal"); err != nil {
			return err
		}
		portal, err := portalURL(itemsSite)
		if err != nil {
			return err
		}
		return runReport(cmd, f, report.ItemsName(itemsSite), func(ctx context.Context) (*report.Report, error) {
			return newRunner().Items(ctx, itemsSite, portal)
		})
	},
}

func init() {
	addReportFlags(itemsCmd, &itemsFlags, false)
	itemsCmd.Flags().StringVar(&itemsSite, "site", "", "agol or portal")
	_ = itemsCmd.MarkFlagRequired("site")
	rootCmd.AddCommand(itemsCmd)
}

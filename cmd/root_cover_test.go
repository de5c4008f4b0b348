//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/arcgis-admin-cli/internal/config"
)

// preRunIn runs the root PersistentPreRunE in a temp working directory that
// holds configYAML as config.yaml (none when empty). cfg is restored after.
func preRunIn(t *testing.T, configYAML string) error {
	t.Helper()
	dir := t.TempDir()
	if configYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644))
	}

	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	withConfig(t, nil)
	return rootCmd.PersistentPreRunE(rootCmd, nil)
}

func TestRootCmd_PersistentPreRunE(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, c *config.Config)
	}{
		{
			name: "config file",
			yaml: "report:\n  out_dir: reports\n  concurrency: 8\narcgis:\n  ignore_folders: [System]\nlog:\n  level: debug\n  format: console\n",
			check: func(t *testing.T, c *config.Config) {
				assert.Equal(t, "reports", c.Report.OutDir)
				assert.Equal(t, 8, c.Report.Concurrency)
				assert.Equal(t, []string{"System"}, c.ArcGIS.IgnoreFolders)
			},
		},
		{
			name: "defaults without a config file",
			check: func(t *testing.T, c *config.Config) {
				assert.Equal(t, "gis_sites.json", c.Report.SitesFile)
				assert.Equal(t, "csv", c.Report.Format)
				assert.Equal(t, []string{"System", "Utilities", "/"}, c.ArcGIS.IgnoreFolders)
				assert.Equal(t, "info", c.Log.Level)
			},
		},
		{
			name:    "bad log level",
			yaml:    "log:\n  level: NOT_A_LEVEL\n  format: console\n",
			wantErr: "init logger",
		},
		{
			name:    "invalid yaml",
			yaml:    "invalid: [yaml: bad",
			wantErr: "load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := preRunIn(t, tt.yaml)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestRootCmd_PersistentPostRun_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		rootCmd.PersistentPostRun(rootCmd, nil)
	})
}

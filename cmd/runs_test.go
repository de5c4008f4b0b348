//go:build !integration

package main

import (
	"bytes"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/arcgis-admin-cli/internal/runlog"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []runlog.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Command:    "gisadmin services",
			Status:     runlog.StatusComplete,
			Units:      42,
			Failed:     2,
			Rows:       40,
			StartedAt:  now,
			FinishedAt: sql.NullTime{Time: now.Add(2 * time.Minute), Valid: true},
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Command:   "gisadmin manifest xml",
			Status:    runlog.StatusRunning,
			StartedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "COMMAND")
	assert.Contains(t, output, "gisadmin services")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "gisadmin manifest xml")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

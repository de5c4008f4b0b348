package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/arcgis-admin-cli/internal/resilience"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() }) //nolint:errcheck
	require.NoError(t, l.Migrate(context.Background()))
	return l
}

// clock returns a func that advances by a minute per call.
func clock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func TestRunLifecycle_Complete(t *testing.T) {
	l := newTestLog(t)
	l.now = clock(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	run, err := l.Start(ctx, "services", []string{"--server_type", "map"})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Equal(t, "--server_type map", run.Args)

	require.NoError(t, l.RecordFailure(ctx, run.ID, "prod/Hydro/Rivers.MapServer", resilience.NewTransientError(errors.New("503"), 503)))
	require.NoError(t, l.RecordFailure(ctx, run.ID, "prod/Hydro/Gauges.FeatureServer", errors.New("service not found")))
	require.NoError(t, l.Complete(ctx, run.ID, Summary{Units: 10, Failed: 2, Rows: 8, Output: "out/GIS_Services_map_20240105.csv"}))

	got, err := l.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 10, got.Units)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, 8, got.Rows)
	assert.Equal(t, "out/GIS_Services_map_20240105.csv", got.Output)
	require.True(t, got.FinishedAt.Valid)
	assert.Equal(t, time.Minute, got.Duration())

	failures, err := l.Failures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "transient", failures[0].Kind)
	assert.Equal(t, "permanent", failures[1].Kind)
	assert.Equal(t, "service not found", failures[1].Error)
}

func TestRunLifecycle_Fail(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	run, err := l.Start(ctx, "usage reconcile", nil)
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, run.ID, errors.New("archive: put failed")))

	got, err := l.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "archive: put failed", got.Error)
}

func TestRun_DurationWhileRunning(t *testing.T) {
	assert.Zero(t, Run{StartedAt: time.Now()}.Duration())
}

func TestUnknownRun(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	assert.ErrorContains(t, l.Complete(ctx, "nope", Summary{}), "run not found")
	assert.ErrorContains(t, l.Fail(ctx, "nope", nil), "run not found")
	_, err := l.Get(ctx, "nope")
	assert.ErrorContains(t, err, "run not found")
}

func TestList_NewestFirstWithFilters(t *testing.T) {
	l := newTestLog(t)
	l.now = clock(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	a, err := l.Start(ctx, "services", nil)
	require.NoError(t, err)
	b, err := l.Start(ctx, "usage report", nil)
	require.NoError(t, err)
	c, err := l.Start(ctx, "services", nil)
	require.NoError(t, err)
	require.NoError(t, l.Complete(ctx, c.ID, Summary{}))

	runs, err := l.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = l.List(ctx, Filter{Command: "services", Status: StatusRunning})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, a.ID, runs[0].ID)

	runs, err = l.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_FileAndMigrateTwice(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "gisadmin.db"))
	require.NoError(t, err)
	defer l.Close() //nolint:errcheck

	require.NoError(t, l.Migrate(context.Background()))
	require.NoError(t, l.Migrate(context.Background()))

	var mode string
	require.NoError(t, l.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

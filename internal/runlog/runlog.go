// Package runlog records every report and reconcile run in a local SQLite
// database so operators can see what ran, when, and which units failed.
package runlog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/arcgis-admin-cli/internal/resilience"
)

// Status is the lifecycle state of a run.
type Status string

// Run statuses.
const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Run is one invocation of a report or reconcile command.
type Run struct {
	ID         string
	Command    string
	Args       string
	Status     Status
	Units      int
	Failed     int
	Rows       int
	Output     string
	Error      string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// Duration returns how long the run took, or 0 while it is still running.
func (r Run) Duration() time.Duration {
	if !r.FinishedAt.Valid {
		return 0
	}
	return r.FinishedAt.Time.Sub(r.StartedAt)
}

// Summary is the outcome of a finished run.
type Summary struct {
	Units  int
	Failed int
	Rows   int
	Output string
}

// Failure is a unit of work that failed within a run.
type Failure struct {
	RunID string
	Unit  string
	Kind  string
	Error string
}

// Filter narrows List.
type Filter struct {
	Command string
	Status  Status
	Limit   int
}

// Log is the SQLite-backed run log.
type Log struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the run log at path and configures WAL mode.
// Use ":memory:" for a throwaway log.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	return &Log{db: db, now: time.Now}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	args        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	units       INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	row_count   INTEGER NOT NULL DEFAULT 0,
	output      TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_failures (
	run_id TEXT NOT NULL REFERENCES runs(id),
	unit   TEXT NOT NULL,
	kind   TEXT NOT NULL,
	error  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_failures_run_id ON run_failures(run_id);
`

// Migrate creates the schema if needed.
func (l *Log) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "runlog: migrate")
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Start records a new running run.
func (l *Log) Start(ctx context.Context, command string, args []string) (*Run, error) {
	r := &Run{
		ID:        uuid.New().String(),
		Command:   command,
		Args:      strings.Join(args, " "),
		Status:    StatusRunning,
		StartedAt: l.now().UTC(),
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, args, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Command, r.Args, string(r.Status), r.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: insert run")
	}
	return r, nil
}

// RecordFailure stores a failed unit and classifies it as transient or
// permanent.
func (l *Log) RecordFailure(ctx context.Context, runID, unit string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO run_failures (run_id, unit, kind, error) VALUES (?, ?, ?, ?)`,
		runID, unit, resilience.Classify(cause), msg,
	)
	return eris.Wrapf(err, "runlog: record failure for %s", runID)
}

// Complete marks a run complete with its summary.
func (l *Log) Complete(ctx context.Context, runID string, s Summary) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, units = ?, failed = ?, row_count = ?, output = ?, finished_at = ? WHERE id = ?`,
		string(StatusComplete), s.Units, s.Failed, s.Rows, s.Output, l.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

// Fail marks a run failed.
func (l *Log) Fail(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(StatusFailed), msg, l.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

const runColumns = `id, command, args, status, units, failed, row_count, output, error, started_at, finished_at`

// Get returns one run.
func (l *Log) Get(ctx context.Context, runID string) (*Run, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("runlog: run not found: %s", runID)
	}
	return r, err
}

// List returns runs, newest first.
func (l *Log) List(ctx context.Context, f Filter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if f.Command != "" {
		query += ` AND command = ?`
		args = append(args, f.Command)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "runlog: list runs iterate")
}

// Failures returns the failed units of a run in insertion order.
func (l *Log) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, unit, kind, error FROM run_failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list failures")
	}
	defer rows.Close() //nolint:errcheck

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.RunID, &f.Unit, &f.Kind, &f.Error); err != nil {
			return nil, eris.Wrap(err, "runlog: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "runlog: list failures iterate")
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runlog: rows affected")
	}
	if n == 0 {
		return eris.Errorf("runlog: run not found: %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var status string
	err := row.Scan(&r.ID, &r.Command, &r.Args, &status, &r.Units, &r.Failed, &r.Rows,
		&r.Output, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "runlog: scan run")
	}
	r.Status = Status(status)
	return &r, nil
}

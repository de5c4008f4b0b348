// Package warehouse loads report tables into PostgreSQL with the COPY
// protocol. Every column is stored as text with the run id and load time
// appended.
package warehouse

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/arcgis-admin-cli/internal/table"
)

// Pool is the subset of pgxpool.Pool the sink needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Trailing columns added to every loaded table.
const (
	ColRunID    = "run_id"
	ColLoadedAt = "loaded_at"
)

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// Ident folds a report name or column header into a lower-case SQL
// identifier: "Service_URL" -> "service_url", "GIS Services (map)" ->
// "gis_services_map".
func Ident(s string) string {
	s = nonIdent.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "col"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "c_" + s
	}
	return s
}

// Connect opens a pool and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, eris.New("warehouse: no database_url configured (set warehouse.database_url)")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping database")
	}
	return pool, nil
}

// Sink copies tables into one schema.
type Sink struct {
	pool   Pool
	schema string
	now    func() time.Time
}

// NewSink returns a sink writing into schema.
func NewSink(pool Pool, schema string) *Sink {
	return &Sink{pool: pool, schema: Ident(schema), now: time.Now}
}

// columns maps the table header to unique identifiers plus the trailing
// run columns. Repeated headers get a numeric suffix.
func columns(t table.Table) []string {
	seen := make(map[string]int, len(t.Columns)+2)
	seen[ColRunID] = 1
	seen[ColLoadedAt] = 1
	cols := make([]string, 0, len(t.Columns)+2)
	for _, c := range t.Columns {
		id := Ident(c)
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = fmt.Sprintf("%s_%d", id, n+1)
		}
		seen[id]++
		cols = append(cols, id)
	}
	return append(cols, ColRunID, ColLoadedAt)
}

// Ensure creates the schema and the table when missing.
func (s *Sink) Ensure(ctx context.Context, name string, cols []string) error {
	schema := pgx.Identifier{s.schema}.Sanitize()
	if _, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		return eris.Wrapf(err, "warehouse: create schema %s", s.schema)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		typ := "TEXT"
		if c == ColLoadedAt {
			typ = "TIMESTAMPTZ NOT NULL"
		}
		defs[i] = pgx.Identifier{c}.Sanitize() + " " + typ
	}
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{s.schema, name}.Sanitize(), strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "warehouse: create table %s.%s", s.schema, name)
	}
	return nil
}

// Load creates the target table if needed and copies every row of t into
// it, tagged with runID. It returns the number of rows copied.
func (s *Sink) Load(ctx context.Context, runID string, t table.Table) (int64, error) {
	if t.Len() == 0 {
		return 0, nil
	}
	name := Ident(t.Name)
	cols := columns(t)
	if err := s.Ensure(ctx, name, cols); err != nil {
		return 0, err
	}

	loadedAt := s.now().UTC()
	width := len(t.Columns)
	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, 0, width+2)
		for j := range width {
			if j < len(r) {
				row = append(row, r[j])
			} else {
				row = append(row, "")
			}
		}
		rows[i] = append(row, runID, loadedAt)
	}

	n, err := copyFromSchema(ctx, s.pool, s.schema, name, cols, rows)
	if err != nil {
		return 0, err
	}
	zap.L().Info("warehouse: loaded table",
		zap.String("schema", s.schema),
		zap.String("table", name),
		zap.Int64("rows", n),
	)
	return n, nil
}

// copyFromSchema bulk-inserts rows into a schema-qualified table.
func copyFromSchema(ctx context.Context, pool Pool, schema, name string, cols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := pool.CopyFrom(ctx, pgx.Identifier{schema, name}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: COPY INTO %s.%s", schema, name)
	}
	return n, nil
}

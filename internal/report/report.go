// Package report runs ArcGIS admin reports across a set of sites. Each unit
// of work (a site, a folder, a service, or a portal item) is fetched
// independently; a failing unit is recorded and the run continues.
package report

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/arcgis-admin-cli/internal/resilience"
	"github.com/sells-group/arcgis-admin-cli/internal/table"
	"github.com/sells-group/arcgis-admin-cli/pkg/arcgis"
)

// Server is the ArcGIS Server admin surface the reports read.
type Server interface {
	Folders(ctx context.Context, admin string, ignore []string) ([]string, error)
	Services(ctx context.Context, admin, folder string) ([]arcgis.ServiceRef, error)
	Properties(ctx context.Context, admin string, ref arcgis.ServiceRef) (arcgis.ServiceProperties, error)
	ManifestXML(ctx context.Context, admin string, ref arcgis.ServiceRef) ([]byte, error)
	ManifestJSON(ctx context.Context, admin string, ref arcgis.ServiceRef) ([]byte, error)
	QuickReport(ctx context.Context, admin, folder, since string) ([]byte, error)
	CreateDate(ctx context.Context, rest string, ref arcgis.ServiceRef) string
}

// Portal is the portal content surface the items report reads.
type Portal interface {
	SearchItems(ctx context.Context, portal, itemType string, pageSize int) ([]arcgis.Item, error)
	ItemData(ctx context.Context, portal, id string) ([]byte, error)
}

// Client is everything a Runner needs; *arcgis.Client satisfies it.
type Client interface {
	Server
	Portal
}

// Options configures a Runner.
type Options struct {
	Concurrency   int
	FetchTimeout  time.Duration
	IgnoreFolders []string
	Since         string // quick report window, e.g. LAST_YEAR
	ItemType      string
	PageSize      int
	Breakers      *resilience.SiteBreakers
}

// Runner executes reports.
type Runner struct {
	client Client
	opts   Options
}

// NewRunner returns a Runner. Zero options fall back to defaults.
func NewRunner(client Client, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Since == "" {
		opts.Since = "LAST_YEAR"
	}
	if opts.ItemType == "" {
		opts.ItemType = "Web Map"
	}
	if opts.Breakers == nil {
		opts.Breakers = resilience.NewSiteBreakers(resilience.DefaultBreakerConfig())
	}
	return &Runner{client: client, opts: opts}
}

// Result is the outcome of one unit of work.
type Result[T any] struct {
	Unit  string
	Value T
	Err   error
}

// Failure is a unit that could not be fetched or parsed.
type Failure struct {
	Unit string
	Err  error
}

// Partition splits results into values and failures, both in unit order.
func Partition[T any](results []Result[T]) ([]T, []Failure) {
	var (
		values   []T
		failures []Failure
	)
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, Failure{Unit: r.Unit, Err: r.Err})
			continue
		}
		values = append(values, r.Value)
	}
	return values, failures
}

// Report is a finished report table plus the units that fed it.
type Report struct {
	Table    table.Table
	Units    int
	Failures []Failure
}

func (r *Report) addFailures(kind string, fs []Failure) {
	for _, f := range fs {
		zap.L().Warn("report unit failed",
			zap.String("report", kind),
			zap.String("unit", f.Unit),
			zap.String("kind", resilience.Classify(f.Err)),
			zap.Error(f.Err),
		)
	}
	r.Failures = append(r.Failures, fs...)
}

// run applies fn to every input with at most limit in flight. Results are
// indexed by input position, so output order matches input order whatever
// order the units finish in.
func run[I, T any](ctx context.Context, limit int, inputs []I, unit func(I) string, fn func(context.Context, I) (T, error)) []Result[T] {
	results := make([]Result[T], len(inputs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			r := Result[T]{Unit: unit(in)}
			if err := ctx.Err(); err != nil {
				r.Err = err
			} else {
				r.Value, r.Err = fn(ctx, in)
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fetch runs fn under the per-fetch deadline and the site's circuit breaker.
func fetch[T any](ctx context.Context, r *Runner, site string, fn func(context.Context) (T, error)) (T, error) {
	if r.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
	}
	return resilience.ExecuteVal(ctx, r.opts.Breakers.Get(site), fn)
}

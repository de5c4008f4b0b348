// Package resilience provides retry and circuit breaking for calls to GIS
// servers. Each site gets its own breaker so one unreachable server stops
// consuming the report's worker slots without affecting the others.
package resilience

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState represents the state of a site's circuit.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown has passed.
	CircuitOpen
	// CircuitHalfOpen lets a trial call through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the site's
// circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls the per-site breakers.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens a site.
	// Default: 5.
	Threshold int

	// Cooldown is how long an open site rejects calls. Default: 30s.
	Cooldown time.Duration

	// ShouldTrip decides which errors count as failures. Default: IsTransient,
	// so a missing service (404) or a bad manifest never opens the circuit.
	ShouldTrip func(err error) bool

	// OnStateChange is called on every transition.
	OnStateChange func(site string, from, to CircuitState)
}

// DefaultBreakerConfig returns the defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}
	if c.ShouldTrip == nil {
		c.ShouldTrip = IsTransient
	}
	return c
}

// Breaker guards calls to one site. One successful trial call closes a half-open
// circuit; a failed one opens it again for another cooldown.
type Breaker struct {
	site string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	now      func() time.Time
}

func newBreaker(site string, cfg BreakerConfig) *Breaker {
	return &Breaker{site: site, cfg: cfg.withDefaults(), now: time.Now}
}

// Site returns the site this breaker guards.
func (b *Breaker) Site() string { return b.site }

// State returns the current state. An open circuit whose cooldown has passed
// reports half-open.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.cooledDown() {
		return CircuitHalfOpen
	}
	return b.state
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// ExecuteVal runs fn unless b's site is open.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

func (b *Breaker) cooledDown() bool {
	return b.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return nil
	}
	if !b.cooledDown() {
		return ErrCircuitOpen
	}
	b.transition(CircuitHalfOpen)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.ShouldTrip(err) {
		b.failures = 0
		if b.state == CircuitHalfOpen {
			b.transition(CircuitClosed)
		}
		return
	}

	b.failures++
	if b.state == CircuitHalfOpen || (b.state == CircuitClosed && b.failures >= b.cfg.Threshold) {
		b.openedAt = b.now()
		b.transition(CircuitOpen)
	}
}

func (b *Breaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.site, from, to)
	}
}

// SiteBreakers holds one breaker per site name.
type SiteBreakers struct {
	cfg BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewSiteBreakers creates an empty registry; breakers are created on first use.
func NewSiteBreakers(cfg BreakerConfig) *SiteBreakers {
	return &SiteBreakers{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for site, creating it if needed.
func (sb *SiteBreakers) Get(site string) *Breaker {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	b, ok := sb.breakers[site]
	if !ok {
		b = newBreaker(site, sb.cfg)
		sb.breakers[site] = b
	}
	return b
}

// Open returns the sites whose circuits are currently open, sorted.
func (sb *SiteBreakers) Open() []string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	var open []string
	for site, b := range sb.breakers {
		if b.State() == CircuitOpen {
			open = append(open, site)
		}
	}
	slices.Sort(open)
	return open
}

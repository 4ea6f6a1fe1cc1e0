package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/merchops/telemetry/observe"
)

// Aggregate status values. A report is healthy only when every individual
// check completed within its timeout and returned true.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc is a named boolean health predicate over a dependency's
// availability. It returns the check outcome, or an error when the
// dependency could not be probed at all.
type CheckFunc func(ctx context.Context) (bool, error)

// Report is the aggregate outcome of one run. It is computed fresh on every
// run and never cached.
type Report struct {
	Status string          `json:"status"`
	Checks map[string]bool `json:"checks"`
}

// Config configures the checker.
type Config struct {
	// Timeout is the per-check time bound, measured from when each
	// individual check begins. Default: 5 seconds
	Timeout time.Duration
}

// Checker holds the registry of health checks and runs them on demand.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent RunChecks callers
//   share one in-flight run.
// - Errors: RunChecks never fails; a check's failure is folded into its
//   boolean result.
type Checker struct {
	config  Config
	logger  *observe.Logger
	metrics *observe.MetricsCollector

	mu     sync.RWMutex
	checks map[string]CheckFunc
	order  []string // Maintains registration order

	group singleflight.Group
}

// New creates a checker.
func New(config Config, logger *observe.Logger, metrics *observe.MetricsCollector) *Checker {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Checker{
		config:  config,
		logger:  logger,
		metrics: metrics,
		checks:  make(map[string]CheckFunc),
	}
}

// Register installs a named check. Registering an existing name overwrites
// the prior check; the name keeps its original position.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.checks[name]; !exists {
		c.order = append(c.order, name)
	}
	c.checks[name] = fn
}

// Unregister removes a named check.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.checks, name)

	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Names returns the names of all registered checks in registration order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// RunChecks runs every registered check concurrently and returns the
// aggregate report. Concurrent callers are coalesced onto one in-flight
// run; a completed run is never reused.
func (c *Checker) RunChecks(ctx context.Context) Report {
	v, _, _ := c.group.Do("run", func() (any, error) {
		return c.runAll(ctx), nil
	})
	return v.(Report)
}

func (c *Checker) runAll(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	results := make(map[string]bool, len(checks))
	var mu sync.Mutex
	var g errgroup.Group

	for name, fn := range checks {
		g.Go(func() error {
			ok := c.runCheck(ctx, name, fn)
			mu.Lock()
			results[name] = ok
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	status := StatusHealthy
	for _, ok := range results {
		if !ok {
			status = StatusUnhealthy
			break
		}
	}

	return Report{Status: status, Checks: results}
}

// runCheck races one check against its timeout. A check that fails or times
// out is recorded as false and logged; the timeout is a synthetic error, so
// a timed-out check is indistinguishable from a failed one in the report.
// A check that keeps running past its timeout is abandoned; its stale result
// is discarded.
func (c *Checker) runCheck(ctx context.Context, name string, fn CheckFunc) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	type outcome struct {
		ok  bool
		err error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		ok, err := fn(ctx)
		resultCh <- outcome{ok: ok, err: err}
	}()

	var ok bool
	select {
	case result := <-resultCh:
		ok = result.ok && result.err == nil
		if result.err != nil {
			c.logger.Error("health check failed", &observe.Context{Extra: map[string]any{
				"check": name,
			}}, result.err)
		}
	case <-ctx.Done():
		ok = false
		c.logger.Error("health check failed", &observe.Context{Extra: map[string]any{
			"check": name,
		}}, ErrCheckTimeout)
	}

	gauge := 0.0
	if ok {
		gauge = 1.0
	}
	c.metrics.Gauge("health."+name, gauge, nil)

	return ok
}

// Package health reports whether the capture pipeline is keeping up.
//
// Features:
//   - Liveness probe (process is up)
//   - Readiness probe (pipeline is running)
//   - Component checks run concurrently with per-check timeouts
//   - Ring buffer and drop-rate checks
//   - JSON HTTP endpoints
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"focusd/internal/ring"
	"focusd/internal/transport"
)

// DefaultTimeout bounds a single component check.
const DefaultTimeout = time.Second

// Status is the health of one component or of the whole process.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ns"`
	Error       string         `json:"error,omitempty"`
}

// Check inspects one component.
type Check func(ctx context.Context) CheckResult

// Component is a named check. A failing critical component makes the
// process unhealthy; a failing non-critical one only degrades it.
type Component struct {
	Name     string
	Critical bool
	Check    Check
	Timeout  time.Duration
}

// Checker runs registered checks and remembers their last results.
type Checker struct {
	mu         sync.RWMutex
	components map[string]*Component
	results    map[string]CheckResult
	startTime  time.Time
	ready      bool
}

// NewChecker creates a checker that is not yet ready.
func NewChecker() *Checker {
	return &Checker{
		components: make(map[string]*Component),
		results:    make(map[string]CheckResult),
		startTime:  time.Now(),
	}
}

// Register adds or replaces a component.
func (c *Checker) Register(comp *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if comp.Timeout <= 0 {
		comp.Timeout = DefaultTimeout
	}
	c.components[comp.Name] = comp
	c.results[comp.Name] = CheckResult{Status: StatusUnknown}
}

// RegisterFunc registers check under name with the default timeout.
func (c *Checker) RegisterFunc(name string, critical bool, check Check) {
	c.Register(&Component{Name: name, Critical: critical, Check: check})
}

// Unregister removes a component.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.components, name)
	delete(c.results, name)
}

// SetReady sets the readiness state.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady returns the readiness state.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Check runs every component concurrently and returns the results.
func (c *Checker) Check(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	comps := make([]*Component, 0, len(c.components))
	for _, comp := range c.components {
		comps = append(comps, comp)
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(comps))
	var resMu sync.Mutex
	var wg conc.WaitGroup
	for _, comp := range comps {
		wg.Go(func() {
			res := run(ctx, comp)
			resMu.Lock()
			results[comp.Name] = res
			resMu.Unlock()
		})
	}
	wg.Wait()

	c.mu.Lock()
	for name, res := range results {
		if _, ok := c.components[name]; ok {
			c.results[name] = res
		}
	}
	c.mu.Unlock()
	return results
}

// run executes one check under its timeout. A panicking check is unhealthy.
func run(ctx context.Context, comp *Component) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, comp.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan CheckResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- CheckResult{
					Status:  StatusUnhealthy,
					Message: "check panicked",
					Error:   fmt.Sprint(r),
				}
			}
		}()
		done <- comp.Check(ctx)
	}()

	var res CheckResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = CheckResult{
			Status:  StatusUnhealthy,
			Message: "check timed out",
			Error:   ctx.Err().Error(),
		}
	}
	res.LastChecked = start
	res.Duration = time.Since(start)
	return res
}

// Results returns the last result of every component.
func (c *Checker) Results() map[string]CheckResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]CheckResult, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// OverallStatus aggregates the last results.
func (c *Checker) OverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var unknown, degraded bool
	for name, res := range c.results {
		comp := c.components[name]
		if comp == nil {
			continue
		}
		switch res.Status {
		case StatusUnhealthy:
			if comp.Critical {
				return StatusUnhealthy
			}
			degraded = true
		case StatusDegraded:
			degraded = true
		case StatusUnknown:
			if comp.Critical {
				unknown = true
			}
		}
	}

	switch {
	case unknown:
		return StatusUnknown
	case degraded:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// Report is the body of the health endpoint.
type Report struct {
	Status     Status                 `json:"status"`
	Ready      bool                   `json:"ready"`
	Uptime     string                 `json:"uptime"`
	Components map[string]CheckResult `json:"components,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Report runs the checks and summarizes them. Components are listed only
// when full is set.
func (c *Checker) Report(ctx context.Context, full bool) Report {
	results := c.Check(ctx)
	if !full {
		results = nil
	}

	c.mu.RLock()
	ready := c.ready
	uptime := time.Since(c.startTime).Round(time.Second)
	c.mu.RUnlock()

	return Report{
		Status:     c.OverallStatus(),
		Ready:      ready,
		Uptime:     uptime.String(),
		Components: results,
		Timestamp:  time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// LivenessHandler always answers 200 while the process serves requests.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	})
}

// ReadinessHandler answers 503 until SetReady(true) and while a critical
// component is unhealthy.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "not ready",
				"timestamp": time.Now(),
			})
			return
		}

		c.Check(r.Context())
		status := c.OverallStatus()
		code := http.StatusOK
		if status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":    status,
			"ready":     true,
			"timestamp": time.Now(),
		})
	})
}

// HealthHandler serves a Report; ?full=true includes component results.
func (c *Checker) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rep := c.Report(r.Context(), r.URL.Query().Get("full") == "true")
		code := http.StatusOK
		if rep.Status == StatusUnhealthy || rep.Status == StatusUnknown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, rep)
	})
}

// Routes registers the three handlers on mux under /health.
func (c *Checker) Routes(mux *http.ServeMux) {
	mux.Handle("/health", c.HealthHandler())
	mux.Handle("/health/live", c.LivenessHandler())
	mux.Handle("/health/ready", c.ReadinessHandler())
}

// StatsSource is anything that reports ring buffer statistics.
type StatsSource interface {
	Stats() ring.Stats
}

// BufferCheck maps the buffer's health band to a status: Lagging is
// degraded and NearDrop is unhealthy.
func BufferCheck(src StatsSource) Check {
	return func(ctx context.Context) CheckResult {
		s := src.Stats()
		res := CheckResult{
			Message: "buffer " + s.Health.String(),
			Details: map[string]any{
				"len":         s.Len,
				"cap":         s.Cap,
				"utilization": s.Utilization,
			},
		}
		switch s.Health {
		case ring.Healthy:
			res.Status = StatusHealthy
		case ring.Lagging:
			res.Status = StatusDegraded
		default:
			res.Status = StatusUnhealthy
		}
		return res
	}
}

// DropRateCheck reports unhealthy when more than maxRate of the publishes
// since the previous check were dropped.
func DropRateCheck(counts func() transport.ProducerCounts, maxRate float64) Check {
	var (
		mu   sync.Mutex
		prev transport.ProducerCounts
	)
	return func(ctx context.Context) CheckResult {
		cur := counts()
		mu.Lock()
		delta := cur.Sub(prev)
		prev = cur
		mu.Unlock()

		rate := delta.DropRate()
		res := CheckResult{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%.2f%% dropped since last check", rate*100),
			Details: map[string]any{
				"attempted": delta.Attempted(),
				"dropped":   delta.Dropped,
				"max_rate":  maxRate,
			},
		}
		if rate > maxRate {
			res.Status = StatusUnhealthy
		}
		return res
	}
}

// CustomCheck wraps fn; a non-nil error is unhealthy.
func CustomCheck(fn func() error) Check {
	return func(ctx context.Context) CheckResult {
		if err := fn(); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: "check failed",
				Error:   err.Error(),
			}
		}
		return CheckResult{Status: StatusHealthy, Message: "check passed"}
	}
}

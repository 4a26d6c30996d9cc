// Package metrics provides Prometheus metrics for focusd.
//
// Features:
//   - Counters for published, dropped, rejected, and consumed events
//   - Gauges for ring buffer length, capacity, utilization, and health band
//   - Histogram for capture-to-consume latency
//   - Focus tracker state and transition counters
//   - Optional HTTP endpoint for scraping
//
// Collectors are registered against a caller-supplied registry so tests can
// use a fresh one per case.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "focusd"

// LatencyBuckets are capture-to-consume latency buckets in seconds,
// from 1µs to 1s.
var LatencyBuckets = []float64{
	1e-6, 5e-6, 10e-6, 25e-6, 50e-6, 100e-6, 250e-6, 500e-6,
	1e-3, 5e-3, 10e-3, 50e-3, 100e-3, 1,
}

// Registry couples a Prometheus registry with the focusd collectors
// registered on it.
type Registry struct {
	reg *prometheus.Registry

	Transport *Transport
	Tracker   *Tracker
}

// NewRegistry creates a registry holding the Go runtime and process
// collectors plus all focusd metrics under namespace.
func NewRegistry(namespace string) *Registry {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:       reg,
		Transport: NewTransport(reg, namespace),
		Tracker:   NewTracker(reg, namespace),
	}
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// HTTPHandler returns an HTTP handler serving the registry in the
// Prometheus exposition format.
func (r *Registry) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		Registry: r.reg,
	})
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transport holds the event transport metrics. Counters are fed with deltas
// by the sampler so the capture path never touches a collector.
type Transport struct {
	EventsPublished prometheus.Counter
	EventsDropped   prometheus.Counter
	EventsRejected  prometheus.Counter
	EventsConsumed  prometheus.Counter

	BufferLength      prometheus.Gauge
	BufferCapacity    prometheus.Gauge
	BufferUtilization prometheus.Gauge
	BufferHealth      prometheus.Gauge

	DeliveryLatency prometheus.Histogram
}

// NewTransport creates and registers the transport metrics.
func NewTransport(reg prometheus.Registerer, namespace string) *Transport {
	f := promauto.With(reg)
	return &Transport{
		EventsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events accepted by the ring buffer",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events discarded because the ring buffer was full",
		}),
		EventsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Total number of invalid events rejected before publishing",
		}),
		EventsConsumed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total number of events drained by the sink",
		}),
		BufferLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_length",
			Help:      "Events waiting in the ring buffer",
		}),
		BufferCapacity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_capacity",
			Help:      "Fixed capacity of the ring buffer",
		}),
		BufferUtilization: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_utilization_ratio",
			Help:      "Ring buffer length divided by capacity",
		}),
		BufferHealth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_health",
			Help:      "Health band: 0 healthy, 1 lagging, 2 near drop",
		}),
		DeliveryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_latency_seconds",
			Help:      "Time from event capture to consumption",
			Buckets:   LatencyBuckets,
		}),
	}
}

// TransportSample carries counter deltas and gauge readings for one
// sampling pass.
type TransportSample struct {
	Published, Dropped, Rejected, Consumed uint64

	Length, Capacity uint64
	Utilization      float64
	Health           int
}

// Record applies a sample.
func (m *Transport) Record(s TransportSample) {
	if m == nil {
		return
	}
	m.EventsPublished.Add(float64(s.Published))
	m.EventsDropped.Add(float64(s.Dropped))
	m.EventsRejected.Add(float64(s.Rejected))
	m.EventsConsumed.Add(float64(s.Consumed))
	m.BufferLength.Set(float64(s.Length))
	m.BufferCapacity.Set(float64(s.Capacity))
	m.BufferUtilization.Set(s.Utilization)
	m.BufferHealth.Set(float64(s.Health))
}

// ObserveDelivery records the capture-to-consume latency of one event.
func (m *Transport) ObserveDelivery(d time.Duration) {
	if m == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	m.DeliveryLatency.Observe(d.Seconds())
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tracker holds the focus tracker metrics.
type Tracker struct {
	Transitions *prometheus.CounterVec
	State       *prometheus.GaugeVec
	Recoveries  prometheus.Counter
	Snapshots   prometheus.Counter
}

// TrackerStates are the label values used for the state gauge.
var TrackerStates = []string{"focused", "distracted", "recovering"}

// NewTracker creates and registers the tracker metrics.
func NewTracker(reg prometheus.Registerer, namespace string) *Tracker {
	f := promauto.With(reg)
	return &Tracker{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "transitions_total",
			Help:      "Focus state transitions by source and destination state",
		}, []string{"from", "to"}),
		State: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "state",
			Help:      "1 for the current focus state, 0 otherwise",
		}, []string{"state"}),
		Recoveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "recoveries_total",
			Help:      "Recovery contexts emitted after a distraction",
		}),
		Snapshots: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "snapshots_total",
			Help:      "Context snapshots added to the history",
		}),
	}
}

// ObserveTransition counts a state change and updates the state gauge.
func (m *Tracker) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
	for _, s := range TrackerStates {
		v := 0.0
		if s == to {
			v = 1
		}
		m.State.WithLabelValues(s).Set(v)
	}
}

// ObserveRecovery counts an emitted recovery context.
func (m *Tracker) ObserveRecovery() {
	if m == nil {
		return
	}
	m.Recoveries.Inc()
}

// ObserveSnapshot counts a snapshot pushed to history.
func (m *Tracker) ObserveSnapshot() {
	if m == nil {
		return
	}
	m.Snapshots.Inc()
}

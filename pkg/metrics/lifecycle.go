package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics counts asset lifecycle mutations.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	events      *prometheus.CounterVec
}

func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "item_status_transitions_total",
		Help: "Item status transitions by source and target status.",
	}, []string{"from", "to"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "asset_lifecycle_events_total",
		Help: "Assignment, maintenance and discount lifecycle events.",
	}, []string{"event"})
	reg.MustRegister(transitions, events)
	return &LifecycleMetrics{transitions: transitions, events: events}
}

// IncTransition records an item moving from one status to another. An empty
// from marks the initial status of a new item.
func (m *LifecycleMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.transitions.WithLabelValues(from, normalizeLabel(to)).Inc()
}

// IncEvent records a named lifecycle event such as assignment_returned.
func (m *LifecycleMetrics) IncEvent(event string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(event)).Inc()
}

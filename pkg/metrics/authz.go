package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuthzMetrics counts authorization gate denials.
type AuthzMetrics struct {
	denials *prometheus.CounterVec
}

func NewAuthzMetrics(reg prometheus.Registerer) *AuthzMetrics {
	if reg == nil {
		return &AuthzMetrics{}
	}
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_denials_total",
		Help: "Requests denied by the authorization gate.",
	}, []string{"capability", "reason"})
	reg.MustRegister(denials)
	return &AuthzMetrics{denials: denials}
}

// IncDenied records one denial of capability for reason.
func (m *AuthzMetrics) IncDenied(capability, reason string) {
	if m == nil || m.denials == nil {
		return
	}
	m.denials.WithLabelValues(normalizeLabel(capability), normalizeLabel(reason)).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit creation and lifecycle transitions.
type Metrics struct {
	AuditsCreated       prometheus.Counter
	NoApplicableRejects prometheus.Counter
	Transitions         *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		AuditsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qara_audits_created_total",
			Help: "Total number of audits created",
		}),
		NoApplicableRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qara_audits_no_applicable_questions_total",
			Help: "Audit creations rejected because no question applied",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qara_audit_transitions_total",
			Help: "Audit lifecycle transitions by target status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.AuditsCreated.Inc()
}

func (m *Metrics) IncrementNoApplicable() {
	if m == nil {
		return
	}
	m.NoApplicableRejects.Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

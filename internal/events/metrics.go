package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts produced events by type and outcome.
type Metrics struct {
	Published *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qara_events_published_total",
			Help: "Lifecycle events produced to the broker by type and outcome",
		}, []string{"type", "outcome"}),
	}
}

func (m *Metrics) IncPublished(t Type) {
	if m == nil {
		return
	}
	m.Published.WithLabelValues(string(t), "ok").Inc()
}

func (m *Metrics) IncPublishFailure(t Type) {
	if m == nil {
		return
	}
	m.Published.WithLabelValues(string(t), "error").Inc()
}

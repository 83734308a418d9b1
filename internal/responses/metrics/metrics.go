package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSaved   = "saved"
	OutcomePending = "pending"
	OutcomeStale   = "stale"
)

// Metrics tracks response saves and the draft cache.
type Metrics struct {
	Saves          *prometheus.CounterVec
	WriteLatency   prometheus.Histogram
	CacheFallbacks prometheus.Counter
	PendingDrafts  prometheus.Gauge
	Retried        *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Saves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qara_response_saves_total",
			Help: "Response saves by outcome",
		}, []string{"outcome"}),
		WriteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "qara_response_remote_write_seconds",
			Help:    "Latency of remote response writes",
			Buckets: prometheus.DefBuckets,
		}),
		CacheFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qara_response_cache_fallbacks_total",
			Help: "Draft cache writes that fell back to memory",
		}),
		PendingDrafts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "qara_response_pending_drafts",
			Help: "Drafts waiting for a remote write, as of the last retry pass",
		}),
		Retried: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qara_response_retries_total",
			Help: "Pending draft replays by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncSave(outcome string) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWrite(start time.Time) {
	if m == nil {
		return
	}
	m.WriteLatency.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncCacheFallback() {
	if m == nil {
		return
	}
	m.CacheFallbacks.Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingDrafts.Set(float64(n))
}

func (m *Metrics) IncRetry(outcome string) {
	if m == nil {
		return
	}
	m.Retried.WithLabelValues(outcome).Inc()
}

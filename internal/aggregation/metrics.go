package aggregation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks aggregation queries and cache effectiveness.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qara_aggregation_query_seconds",
			Help:    "Aggregation query latency by kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qara_aggregation_cache_lookups_total",
			Help: "Aggregation cache lookups by kind and result",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) ObserveQuery(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

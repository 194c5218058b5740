package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors emitted during a collection run.
type Metrics struct {
	CollectionDuration *prometheus.HistogramVec
	UpstreamRetries    *prometheus.CounterVec
	RepoCacheHits      prometheus.Counter
	RepoCacheMisses    prometheus.Counter
}

// NewMetrics registers and returns the run's metric collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CollectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pulse",
			Subsystem: "collect",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each collection phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		UpstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Number of retried upstream requests.",
		}, []string{"source"}),
		RepoCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "repocache",
			Name:      "hits_total",
			Help:      "Repository list cache hits.",
		}),
		RepoCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "repocache",
			Name:      "misses_total",
			Help:      "Repository list cache misses.",
		}),
	}

	reg.MustRegister(m.CollectionDuration, m.UpstreamRetries, m.RepoCacheHits, m.RepoCacheMisses)

	return m
}

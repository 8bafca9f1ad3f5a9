package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync cycle outcomes used as the result label.
const (
	SyncResultChanged   = "changed"
	SyncResultUnchanged = "unchanged"
	SyncResultEmpty     = "empty"
	SyncResultFailed    = "failed"
	SyncResultSkipped   = "skipped"
)

// Metrics holds the Prometheus collectors for the quote collection and the sync engine.
type Metrics struct {
	SyncCycles     *prometheus.CounterVec
	SyncDuration   prometheus.Histogram
	CollectionSize prometheus.Gauge
}

// NewMetrics registers the collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SyncCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quote_sync_cycles_total",
			Help: "Remote sync cycles by outcome.",
		}, []string{"result"}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quote_sync_cycle_duration_seconds",
			Help:    "Duration of remote sync cycles that ran.",
			Buckets: prometheus.DefBuckets,
		}),
		CollectionSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quote_collection_size",
			Help: "Number of quotes currently held in memory.",
		}),
	}
}

func (m *Metrics) observeCycle(result string, seconds float64) {
	if m == nil {
		return
	}

	m.SyncCycles.WithLabelValues(result).Inc()

	if result != SyncResultSkipped {
		m.SyncDuration.Observe(seconds)
	}
}

func (m *Metrics) setCollectionSize(n int) {
	if m == nil {
		return
	}

	m.CollectionSize.Set(float64(n))
}

package embedding

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sousschef/metric"
)

// tieredMetrics holds Prometheus counters for the tiered cache.
type tieredMetrics struct {
	hits       *prometheus.CounterVec // Hits by tier
	misses     prometheus.Counter
	downgrades prometheus.Counter
}

// newTieredMetrics creates and registers cache metrics with the provided
// registry. A nil registry disables metrics; all recording methods are
// nil-receiver safe.
func newTieredMetrics(registry *metric.MetricsRegistry) (*tieredMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &tieredMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sousschef",
			Subsystem: "embedding_cache",
			Name:      "hits_total",
			Help:      "Embedding cache hits by tier",
		}, []string{"tier"}),

		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sousschef",
			Subsystem: "embedding_cache",
			Name:      "misses_total",
			Help:      "Embedding cache misses in the active tier",
		}),

		downgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sousschef",
			Subsystem: "embedding_cache",
			Name:      "downgrades_total",
			Help:      "Permanent downgrades to the local tier",
		}),
	}

	if err := registry.RegisterCounterVec("embedding_cache", "hits", m.hits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("embedding_cache", "misses", m.misses); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("embedding_cache", "downgrades", m.downgrades); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *tieredMetrics) recordHit(tier string) {
	if m != nil {
		m.hits.WithLabelValues(tier).Inc()
	}
}

func (m *tieredMetrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *tieredMetrics) recordDowngrade() {
	if m != nil {
		m.downgrades.Inc()
	}
}

package natsclient

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sousschef/metric"
)

// kvMetrics holds Prometheus metrics for JetStream KV operations.
// Tracks only buckets that are created/accessed through this client.
type kvMetrics struct {
	// Per-key operation metrics
	operations *prometheus.CounterVec   // Operations by operation and status
	durations  *prometheus.HistogramVec // Operation latency by operation

	// Bucket state metrics
	bucketKeys  *prometheus.GaugeVec // Current key count by bucket
	bucketBytes *prometheus.GaugeVec // Storage bytes by bucket
	bucketState *prometheus.GaugeVec // Bucket state (1=reachable, 0=unreachable)

	// Bucket management errors
	errors *prometheus.CounterVec // Bucket operation errors

	// Tracked resources (only what we create/use)
	mu      sync.RWMutex
	buckets map[string]jetstream.KeyValue // Buckets we've created/accessed
}

// newKVMetrics creates and registers KV metrics with the provided registry.
func newKVMetrics(registry *metric.MetricsRegistry) (*kvMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &kvMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sousschef",
			Subsystem: "kv",
			Name:      "operations_total",
			Help:      "Total KV operations by operation and status",
		}, []string{"operation", "status"}),

		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sousschef",
			Subsystem: "kv",
			Name:      "operation_duration_seconds",
			Help:      "KV operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		bucketKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sousschef",
			Subsystem: "kv",
			Name:      "bucket_keys",
			Help:      "Current number of keys in bucket",
		}, []string{"bucket"}),

		bucketBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sousschef",
			Subsystem: "kv",
			Name:      "bucket_bytes",
			Help:      "Storage bytes used by bucket",
		}, []string{"bucket"}),

		bucketState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sousschef",
			Subsystem: "kv",
			Name:      "bucket_state",
			Help:      "Bucket state (1=reachable, 0=unreachable)",
		}, []string{"bucket"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sousschef",
			Subsystem: "kv",
			Name:      "bucket_errors_total",
			Help:      "Total number of bucket management errors",
		}, []string{"operation"}),

		buckets: make(map[string]jetstream.KeyValue),
	}

	// Register all metrics
	if err := registry.RegisterCounterVec("kv", "operations", m.operations); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("kv", "durations", m.durations); err != nil {
		return nil, err
	}
	if err := registry.RegisterGaugeVec("kv", "bucket_keys", m.bucketKeys); err != nil {
		return nil, err
	}
	if err := registry.RegisterGaugeVec("kv", "bucket_bytes", m.bucketBytes); err != nil {
		return nil, err
	}
	if err := registry.RegisterGaugeVec("kv", "bucket_state", m.bucketState); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("kv", "errors", m.errors); err != nil {
		return nil, err
	}

	return m, nil
}

// trackBucket adds a bucket to the tracking list for metrics collection.
func (m *kvMetrics) trackBucket(name string, bucket jetstream.KeyValue) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[name] = bucket
	m.bucketState.WithLabelValues(name).Set(1) // Mark as reachable
}

// untrackBucket removes a deleted bucket from tracking.
func (m *kvMetrics) untrackBucket(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, name)
	m.bucketState.WithLabelValues(name).Set(0)
}

// recordOp records a per-key operation outcome with its latency.
func (m *kvMetrics) recordOp(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// recordError records a bucket management error.
func (m *kvMetrics) recordError(operation string) {
	if m != nil {
		m.errors.WithLabelValues(operation).Inc()
	}
}

// updateStats updates all tracked bucket statistics.
// Called periodically by the background poller. Fails gracefully if stats unavailable.
func (m *kvMetrics) updateStats(ctx context.Context) {
	if m == nil {
		return
	}

	m.mu.RLock()
	buckets := make(map[string]jetstream.KeyValue, len(m.buckets))
	for k, v := range m.buckets {
		buckets[k] = v
	}
	m.mu.RUnlock()

	for name, bucket := range buckets {
		status, err := bucket.Status(ctx)
		if err != nil {
			// Bucket might be deleted or unavailable - fail gracefully
			m.bucketState.WithLabelValues(name).Set(0)
			continue
		}

		m.bucketKeys.WithLabelValues(name).Set(float64(status.Values()))
		m.bucketBytes.WithLabelValues(name).Set(float64(status.Bytes()))
		m.bucketState.WithLabelValues(name).Set(1)
	}
}

// startPoller starts a background goroutine that polls bucket stats periodically.
// Returns a cancel function to stop the poller.
func (m *kvMetrics) startPoller(ctx context.Context, interval time.Duration) context.CancelFunc {
	if m == nil {
		return func() {} // No-op if metrics disabled
	}

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// Update stats, but don't let errors crash the poller
				m.updateStats(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	return cancel
}

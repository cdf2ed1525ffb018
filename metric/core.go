package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not domain-specific)
type Metrics struct {
	// Service metrics
	ServiceStatus     *prometheus.GaugeVec
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec

	// Router metrics
	ClassificationsTotal *prometheus.CounterVec
	HandlerFailuresTotal *prometheus.CounterVec

	// Provider metrics
	ProviderRequests *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Service metrics
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sousschef",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"service"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sousschef",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sousschef",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		// Router metrics
		ClassificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sousschef",
				Subsystem: "router",
				Name:      "classifications_total",
				Help:      "Total number of query classifications by category",
			},
			[]string{"category", "method"},
		),

		HandlerFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sousschef",
				Subsystem: "router",
				Name:      "handler_failures_total",
				Help:      "Total number of handler failures by category",
			},
			[]string{"category", "reason"},
		),

		// Provider metrics
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sousschef",
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total number of provider requests",
			},
			[]string{"provider", "operation", "status"},
		),

		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sousschef",
				Subsystem: "provider",
				Name:      "request_duration_seconds",
				Help:      "Provider request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sousschef",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sousschef",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sousschef",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordError increments error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}

// RecordClassification increments the classification counter. The method
// label distinguishes provider, keyword, and image classifications.
func (c *Metrics) RecordClassification(category, method string) {
	c.ClassificationsTotal.WithLabelValues(category, method).Inc()
}

// RecordHandlerFailure increments the handler failure counter
func (c *Metrics) RecordHandlerFailure(category, reason string) {
	c.HandlerFailuresTotal.WithLabelValues(category, reason).Inc()
}

// RecordProviderRequest increments the provider request counter
func (c *Metrics) RecordProviderRequest(provider, operation, status string) {
	c.ProviderRequests.WithLabelValues(provider, operation, status).Inc()
}

// RecordProviderDuration records provider request time
func (c *Metrics) RecordProviderDuration(provider, operation string, duration time.Duration) {
	c.ProviderDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

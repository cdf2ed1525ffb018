// Package metric provides Prometheus-based metrics collection and an HTTP
// server for SousChef monitoring and observability.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (service status, query classification, provider calls,
// NATS health) and custom component-specific metrics. Metrics are exposed
// in Prometheus format either through the standalone Server or by mounting
// MetricsRegistry.Handler on an existing mux.
//
// # Basic Usage
//
// Setting up metrics collection and an HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil && err != http.ErrServerClosed {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core platform metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("router", 2)
//	coreMetrics.RecordClassification("recipe_search", "provider")
//	coreMetrics.RecordNATSStatus(true)
//
// # Core Metrics
//
// All core metrics use the namespace "sousschef":
//
//   - sousschef_service_status{service}: lifecycle (0=stopped .. 4=failed)
//   - sousschef_router_classifications_total{category,method}
//   - sousschef_router_handler_failures_total{category,reason}
//   - sousschef_provider_requests_total{provider,operation,status}
//   - sousschef_provider_request_duration_seconds{provider,operation}
//   - sousschef_errors_total{service,type}
//   - sousschef_health_status{service}
//   - sousschef_nats_connected, sousschef_nats_rtt_milliseconds,
//     sousschef_nats_reconnects_total
//
// # Component-Specific Metrics
//
// Components register their own metrics through the MetricsRegistrar
// interface:
//
//	searches := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "sousschef",
//	    Subsystem: "recipes",
//	    Name:      "searches_total",
//	    Help:      "Total number of recipe searches",
//	})
//	err := registry.RegisterCounter("recipes", "searches_total", searches)
//
// Registration is thread-safe. Duplicate names, both at the registry level
// and at the Prometheus level, return invalid-class errors rather than
// panicking.
package metric

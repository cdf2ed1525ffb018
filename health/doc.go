// Package health provides health monitoring for service subsystems.
//
// The package has two core types: Status, an immutable snapshot of one
// subsystem's health, and Monitor, a thread-safe registry that collects
// statuses and aggregates them into a single system-level view for the
// /healthz endpoint.
//
// # Status Levels
//
// Three levels are supported:
//
//   - healthy: the subsystem is fully operational
//   - degraded: the subsystem is serving with reduced capability, for
//     example the embedding cache running on its local tier after the
//     shared KV tier became unavailable
//   - unhealthy: the subsystem is not operational
//
// Aggregation is pessimistic: any unhealthy subsystem makes the system
// unhealthy, otherwise any degraded subsystem makes it degraded.
//
// # Push Updates
//
// Subsystems can push status changes as they happen:
//
//	monitor := health.NewMonitor()
//	monitor.UpdateHealthy("nats", "connected")
//	monitor.UpdateDegraded("embedding-cache", "local tier only")
//
//	system := monitor.AggregateHealth("sousschef")
//	// system.IsDegraded() == true
//
// # Registered Checks
//
// Alternatively, register check functions that run on demand when the
// health endpoint is hit:
//
//	monitor.RegisterCheck("nats", func(ctx context.Context) health.Status {
//		if client.IsHealthy() {
//			return health.NewHealthy("nats", "connected")
//		}
//		return health.NewUnhealthy("nats", client.Status().String())
//	})
//
//	status := monitor.RunChecks(ctx, "sousschef")
//
// FromError converts a probe error directly into a status:
//
//	monitor.Update("recipe-api", health.FromError("recipe-api", err))
//
// # Message Sanitization
//
// Statuses built through FromError have their messages sanitized before
// exposure: URLs, file paths, IP addresses, ports, and credential-looking
// fragments are replaced with placeholders so connection strings never
// leak through the health endpoint.
package health

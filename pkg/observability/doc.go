// Package observability provides structured logging, Prometheus metrics,
// health probes and OpenTelemetry tracing for the sentry service.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("roots", len(roots)).Info("Scan started")
//
// Loggers flow through context; scan cycles attach a scan_id so every log
// line of one rebuild can be correlated:
//
//	ctx = observability.WithScanID(ctx, scanID)
//	observability.FromContext(ctx).Info("Publishing snapshot")
//
// # Metrics
//
// NewMetrics registers the scan, graph and HTTP metrics on a Prometheus
// registry; RegisterMetricsEndpoint exposes /metrics on the health mux.
//
// # Health
//
// The HealthChecker serves liveness (process up) and readiness (a graph
// snapshot has been published and is not stale) probes on the health port.
package observability

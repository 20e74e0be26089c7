package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the sentry service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Scan metrics
	ScansTotal      *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	ScanRootsFound  prometheus.Gauge
	LastScanSuccess prometheus.Gauge

	// Graph metrics
	ComponentsTotal       prometheus.Gauge
	PackagesTotal         prometheus.Gauge
	ParseErrorsTotal      prometheus.Gauge
	HighRiskPackagesTotal prometheus.Gauge
	ConflictsTotal        prometheus.Gauge

	// Update metrics
	PendingUpdatesTotal prometheus.Gauge
	AnalysesTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentry_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentry_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentry_scans_total",
				Help: "Total number of scan cycles",
			},
			[]string{"status"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentry_scan_duration_seconds",
				Help:    "Scan cycle duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ScanRootsFound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_scan_roots_found",
				Help: "Number of roots that contained component descriptors in the last scan",
			},
		),
		LastScanSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_last_scan_success_timestamp_seconds",
				Help: "Unix timestamp of the last successful scan",
			},
		),

		ComponentsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_components_total",
				Help: "Components in the published graph snapshot",
			},
		),
		PackagesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_packages_total",
				Help: "Unique packages in the published graph snapshot",
			},
		),
		ParseErrorsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_parse_errors_total",
				Help: "Components with descriptor parse errors in the published snapshot",
			},
		),
		HighRiskPackagesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_high_risk_packages_total",
				Help: "High-risk packages present in the published snapshot",
			},
		),
		ConflictsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_conflicts_total",
				Help: "Version-constraint conflicts detected in the published snapshot",
			},
		),

		PendingUpdatesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentry_pending_updates_total",
				Help: "Pending updates reported by the last update check",
			},
		),
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentry_update_analyses_total",
				Help: "Update analyses performed, by kind and verdict",
			},
			[]string{"kind", "safe"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ScansTotal,
		m.ScanDuration,
		m.ScanRootsFound,
		m.LastScanSuccess,
		m.ComponentsTotal,
		m.PackagesTotal,
		m.ParseErrorsTotal,
		m.HighRiskPackagesTotal,
		m.ConflictsTotal,
		m.PendingUpdatesTotal,
		m.AnalysesTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

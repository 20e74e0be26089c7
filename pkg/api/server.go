package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/httputil"
	"github.com/hasentry/sentry/pkg/observability"
	"github.com/hasentry/sentry/pkg/updates"
)

// StatusProvider exposes the result of the latest update check. Nil means no
// check has completed yet.
type StatusProvider interface {
	LatestUpdateStatus() *updates.Status
}

// Server is the HTTP API over the dependency graph and update analysis.
type Server struct {
	store   *graph.Store
	status  StatusProvider
	logger  *observability.Logger
	metrics *observability.Metrics
	router  *mux.Router
}

// NewServer creates the API server. metrics and status may be nil.
func NewServer(store *graph.Store, status StatusProvider, logger *observability.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		store:   store,
		status:  status,
		logger:  logger,
		metrics: metrics,
		router:  mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.LoggingMiddleware(s.logger))
	s.router.Use(httputil.RecoveryMiddleware(s.logger))
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/graph", s.handleGraph).Methods("GET")
	api.HandleFunc("/summary", s.handleSummary).Methods("GET")
	api.HandleFunc("/shared", s.handleShared).Methods("GET")
	api.HandleFunc("/conflicts", s.handleConflicts).Methods("GET")
	api.HandleFunc("/change-impact", s.handleChangeImpact).Methods("GET")
	api.HandleFunc("/dependency-tree/{component}", s.handleDependencyTree).Methods("GET")
	api.HandleFunc("/where-used/{package}", s.handleWhereUsed).Methods("GET")
	api.HandleFunc("/updates", s.handleUpdates).Methods("GET")
	api.HandleFunc("/analysis", s.handleAnalysis).Methods("GET")
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// snapshot fetches the current graph snapshot, writing a 503 when none has
// been published yet.
func (s *Server) snapshot(w http.ResponseWriter) (*graph.Graph, bool) {
	g := s.store.Current()
	if g == nil {
		httputil.WriteServiceUnavailable(w, "no graph snapshot published yet")
		return nil, false
	}
	return g, true
}

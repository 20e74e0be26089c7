package observability

import (
	"encoding/json"
	"net/http"
	"time"
)

// SnapshotInfo describes the currently published dependency graph snapshot.
type SnapshotInfo struct {
	Published  bool
	BuiltAt    time.Time
	Components int
}

// SnapshotProvider reports the current snapshot state. The graph store
// satisfies this through a small adapter in the service wiring.
type SnapshotProvider interface {
	SnapshotInfo() SnapshotInfo
}

// HealthChecker provides liveness and readiness probes. Readiness requires a
// published graph snapshot that is not older than MaxSnapshotAge.
type HealthChecker struct {
	snapshots      SnapshotProvider
	maxSnapshotAge time.Duration
	now            func() time.Time
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// NewHealthChecker creates a new health checker. maxSnapshotAge zero disables
// the staleness check.
func NewHealthChecker(snapshots SnapshotProvider, maxSnapshotAge time.Duration) *HealthChecker {
	return &HealthChecker{
		snapshots:      snapshots,
		maxSnapshotAge: maxSnapshotAge,
		now:            time.Now,
	}
}

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe based on snapshot availability
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check evaluates the snapshot state
func (h *HealthChecker) Check() HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    h.now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	snapshot := h.checkSnapshot()
	status.Dependencies["graph_snapshot"] = snapshot
	switch snapshot.Status {
	case StatusUnhealthy:
		status.Status = StatusUnhealthy
	case StatusDegraded:
		status.Status = StatusDegraded
	}

	return status
}

func (h *HealthChecker) checkSnapshot() DependencyStatus {
	status := DependencyStatus{
		Status:    StatusHealthy,
		Timestamp: h.now(),
	}

	if h.snapshots == nil {
		status.Status = StatusUnhealthy
		status.Message = "no snapshot provider configured"
		return status
	}

	info := h.snapshots.SnapshotInfo()
	if !info.Published {
		status.Status = StatusUnhealthy
		status.Message = "no graph snapshot published yet"
		return status
	}

	if h.maxSnapshotAge > 0 {
		if age := h.now().Sub(info.BuiltAt); age > h.maxSnapshotAge {
			status.Status = StatusDegraded
			status.Message = "snapshot is stale: built " + age.Round(time.Second).String() + " ago"
		}
	}

	return status
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}

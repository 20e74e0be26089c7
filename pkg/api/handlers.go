package api

import (
	"fmt"
	"net/http"

	"github.com/hasentry/sentry/pkg/conflicts"
	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/httputil"
	"github.com/hasentry/sentry/pkg/impact"
	"github.com/hasentry/sentry/pkg/updates"
)

// handleGraph handles GET /api/graph
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, ok := s.snapshot(w)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, g)
}

// handleSummary handles GET /api/summary. format=text returns the plain-text
// report; the default is a JSON overview.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	g, ok := s.snapshot(w)
	if !ok {
		return
	}

	if httputil.ParseQueryString(r, "format", "json") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, graph.HumanSummary(g))
		return
	}

	records := conflicts.Detect(g)
	httputil.WriteSuccess(w, map[string]interface{}{
		"built_at":    g.BuiltAt,
		"statistics":  g.Stats,
		"conflicts":   len(records),
		"empty":       g.Empty(),
		"diagnostics": g.Diagnostics,
	})
}

// handleShared handles GET /api/shared
func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	g, ok := s.snapshot(w)
	if !ok {
		return
	}

	shared := conflicts.Shared(g)
	httputil.WriteSuccess(w, map[string]interface{}{
		"shared": shared,
		"count":  len(shared),
	})
}

// handleConflicts handles GET /api/conflicts
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	g, ok := s.snapshot(w)
	if !ok {
		return
	}

	records := conflicts.Detect(g)
	httputil.WriteSuccess(w, map[string]interface{}{
		"conflicts": records,
		"count":     len(records),
	})
}

// handleChangeImpact handles GET /api/change-impact?components=a,b
func (s *Server) handleChangeImpact(w http.ResponseWriter, r *http.Request) {
	g, ok := s.snapshot(w)
	if !ok {
		return
	}

	components := httputil.ParseQueryList(r, "components")
	if len(components) == 0 {
		httputil.WriteBadRequest(w, "components query parameter is required")
		return
	}

	httputil.WriteSuccess(w, impact.Analyze(g, components))
}

// handleDependencyTree handles GET /api/dependency-tree/{component}
func (s *Server) handleDependencyTree(w http.ResponseWriter, r *http.Request) {
	g, ok := s.snapshot(w)
	if !ok {
		return
	}

	id, ok := httputil.ParsePathStringOrError(w, r, "component")
	if !ok {
		return
	}

	component, found := g.Component(id)
	if !found {
		httputil.WriteNotFoundError(w, "component not found: "+id)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"component":    component,
		"requirements": component.Requirements,
		"count":        len(component.Requirements),
	})
}

// handleWhereUsed handles GET /api/where-used/{package}
func (s *Server) handleWhereUsed(w http.ResponseWriter, r *http.Request) {
	g, ok := s.snapshot(w)
	if !ok {
		return
	}

	pkg, ok := httputil.ParsePathStringOrError(w, r, "package")
	if !ok {
		return
	}

	usages := g.Usages(pkg)
	if usages == nil {
		httputil.WriteNotFoundError(w, "package not found: "+pkg)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"package": pkg,
		"usages":  usages,
		"count":   len(usages),
	})
}

// handleUpdates handles GET /api/updates
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	status := s.latestStatus()
	if status == nil {
		httputil.WriteNotFoundError(w, "no update check has completed yet")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"checked_at":     status.CheckedAt,
		"addon_updates":  status.AddonUpdates,
		"custom_updates": status.CustomUpdates,
		"total":          status.Total(),
	})
}

// handleAnalysis handles GET /api/analysis
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	status := s.latestStatus()
	if status == nil || status.Analysis == nil {
		httputil.WriteNotFoundError(w, "no update analysis available yet")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"checked_at": status.CheckedAt,
		"analysis":   status.Analysis,
	})
}

func (s *Server) latestStatus() *updates.Status {
	if s.status == nil {
		return nil
	}
	return s.status.LatestUpdateStatus()
}

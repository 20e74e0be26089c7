// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON responses, error responses,
// parameter parsing, and common HTTP middleware used by the API server.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, data)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteNotFoundError(w, "component not found")
//	httputil.WriteServiceUnavailable(w, "no graph snapshot yet")
//
// # Request Parsing
//
// Path parameters:
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "component")
//
// Query parameters:
//
//	components := httputil.ParseQueryList(r, "components")
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//	)
//
// # Related Packages
//
//   - pkg/api: Uses these helpers for all handlers
package httputil

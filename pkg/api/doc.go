// Package api exposes the dependency graph and update analysis over HTTP.
//
// All /api endpoints read the current published graph snapshot and return
// 503 until the first scan completes. Endpoints:
//
//	GET /                                  status page
//	GET /api/graph                         full graph snapshot
//	GET /api/summary                       statistics overview (format=text for the report)
//	GET /api/shared                        packages used by more than one component
//	GET /api/conflicts                     version-constraint conflicts with severity
//	GET /api/change-impact?components=a,b  blast radius of changing components
//	GET /api/dependency-tree/{component}   a component's requirement list
//	GET /api/where-used/{package}          reverse lookup for a package
//	GET /api/updates                       pending updates from the last check
//	GET /api/analysis                      risk analysis of the pending updates
//
// Requests flow through request-ID, logging, panic-recovery and Prometheus
// middleware.
package api

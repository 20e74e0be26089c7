// Package manifest discovers component descriptors on disk and parses
// declared requirement strings.
//
// # Overview
//
// Each installed component (integration or add-on) occupies its own directory
// with a manifest.json descriptor at its root. The Scanner walks a configured
// list of candidate roots (glob patterns allowed), deduplicates them, and
// returns one descriptor location per component along with diagnostics that
// distinguish missing roots from existing-but-empty ones. When nothing is
// found anywhere, a bounded fallback search of well-known alternate locations
// runs so the caller can suggest a reconfiguration.
//
// Requirement parsing is a pure function: a well-formed string like
// "aiohttp>=3.9,<4.0" yields the package name, the constraint expression
// verbatim and a high-risk flag; a malformed string falls back to a permissive
// leading-identifier extraction so that every declared dependency still
// becomes a Requirement.
package manifest

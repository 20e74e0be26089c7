// Package updates analyzes pending version updates with heuristic rules.
//
// The analyzer consumes two lists of pending updates (platform add-ons and
// custom components) and, optionally, a graph snapshot. Its rules are
// additive: update volume, known critical stateful services, simultaneous
// critical updates, pre-release versions, large major-version jumps and
// shared-dependency amplification each contribute zero or more issues and
// recommendations. The result carries a confidence score deliberately capped
// below what a model-assisted analysis may report, so callers can tell the
// two apart.
//
// Version parsing is best-effort and never fails an analysis: an unparseable
// version string degrades to "no signal" and the fallback is explicit in the
// Version type rather than hidden behind a boolean.
package updates

// Package ai provides model-assisted update risk analysis.
//
// The Analyzer sends pending updates and dependency conflict context to an
// OpenAI-compatible chat endpoint and parses the structured verdict back into
// an updates.Analysis. Verdicts are cached in an LRU keyed by a fingerprint
// of the pending update set. Every failure path degrades to the heuristic
// analyzer, so callers always get an answer.
package ai

// Package conflicts finds packages shared across components and classifies
// version-constraint conflicts.
//
// A package is shared when more than one component declares it, and
// conflicting when its declaring components carry more than one distinct
// constraint string (ignoring the "any" and "unknown" sentinels). Divergence
// is purely literal: no semantic version-range intersection is attempted, so
// ">=1.0" and ">=1.5" count as conflicting. Treat the results as a
// conservative heuristic, not a resolver.
//
// Severity is a closed enumeration with a total order, so escalation rules
// are enum comparisons rather than string chains.
package conflicts

// Package impact computes the blast radius of changing a set of components.
//
// Given a graph snapshot and the ids of changed components, it collects every
// package those components declare and every other component that also
// declares one of those packages. The changed components themselves are
// excluded from the affected set (but not from a package's own usage list).
// Queries are pure and read-only; the snapshot is never mutated.
package impact

// Package graph builds and publishes the in-memory component dependency
// graph.
//
// # Overview
//
// A Builder consumes descriptor locations from the manifest scanner, parses
// each descriptor, and assembles a Graph: the component table, the reverse
// dependency index (package name to the components that declare it) and
// derived statistics. Components whose descriptors fail to parse are kept in
// the table with an error tag so they stay enumerable, but they contribute
// nothing to the index.
//
// A Graph is rebuilt wholesale on every scan and is immutable once built.
// The Store publishes snapshots with an atomic pointer swap: readers holding
// an old snapshot keep working against a complete, stable view while the next
// scan builds a fresh one. No locks are needed anywhere in the data model.
//
// # Usage Example
//
//	builder := graph.NewBuilder(logger, riskSet)
//	for _, loc := range locations {
//		builder.AddDescriptor(loc)
//	}
//	g := builder.Build(diagnostics)
//	store.Publish(g)
//
//	fmt.Printf("components: %d packages: %d\n",
//		g.Stats.Components, g.Stats.Packages)
//
// # Related Packages
//
//   - pkg/conflicts: shared-dependency and version-conflict detection
//   - pkg/impact: change-impact queries over a snapshot
package graph

package graph

import "sync/atomic"

// Store publishes Graph snapshots with copy-on-rebuild, read-many semantics.
// A scan builds its Graph into a fresh instance and calls Publish once the
// build is complete; concurrent readers always observe either the prior
// complete snapshot or the new one, never a partially populated graph. A
// cancelled scan simply never publishes, leaving the prior snapshot intact.
type Store struct {
	current atomic.Pointer[Graph]
}

// NewStore creates an empty Store. Current returns nil until the first
// Publish.
func NewStore() *Store {
	return &Store{}
}

// Publish atomically swaps the published snapshot.
func (s *Store) Publish(g *Graph) {
	s.current.Store(g)
}

// Current returns the most recently published snapshot, or nil when no scan
// has completed yet.
func (s *Store) Current() *Graph {
	return s.current.Load()
}

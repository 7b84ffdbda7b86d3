package dag

import "sync"

// Graph holds pipeline blocks keyed by address and the edges between them.
// It is safe for concurrent use.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	// order is the insertion order; every traversal follows it.
	order []string
}

// node is one block. Edges are kept in both directions so that dependents
// can be listed without a scan.
type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

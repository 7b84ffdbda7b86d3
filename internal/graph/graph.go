// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/ops"
)

// Graph is an arena of nodes plus explicit ordering edges. All methods are
// safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes []*Node
	// after[x] lists nodes that must be complete before x, beyond x's parents.
	after map[ID][]ID

	registry *ops.Registry
	opts     config.Options
	busy     atomic.Int32
}

// New returns an empty graph that composes operations from registry and
// honours opts.
func New(registry *ops.Registry, opts config.Options) *Graph {
	return &Graph{
		after:    make(map[ID][]ID),
		registry: registry,
		opts:     opts,
	}
}

// Registry returns the operation catalog the graph composes from.
func (g *Graph) Registry() *ops.Registry {
	return g.registry
}

// Options returns the options the graph was created with.
func (g *Graph) Options() config.Options {
	return g.opts
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Node returns the node with the given ID.
func (g *Graph) Node(id ID) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodeLocked(id)
}

func (g *Graph) nodeLocked(id ID) (*Node, bool) {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.nodes)
}

// AddDependency records that before must complete before after runs,
// without a data dependency. The edge is not checked for cycles here.
func (g *Graph) AddDependency(before, after ID) error {
	if before == after {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", before, before)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy.Load() > 0 {
		return ErrGraphBusy
	}
	if _, ok := g.nodeLocked(before); !ok {
		return fmt.Errorf("%w: source node %s", ErrUnknownNode, before)
	}
	if _, ok := g.nodeLocked(after); !ok {
		return fmt.Errorf("%w: destination node %s", ErrUnknownNode, after)
	}
	if !slices.Contains(g.after[after], before) {
		g.after[after] = append(g.after[after], before)
	}
	return nil
}

// Dependencies returns the nodes id waits for: its parents followed by its
// explicit ordering dependencies, without duplicates.
func (g *Graph) Dependencies(id ID) []ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.depsLocked(id)
}

func (g *Graph) depsLocked(id ID) []ID {
	n, ok := g.nodeLocked(id)
	if !ok {
		return nil
	}
	deps := make([]ID, 0, len(n.Parents)+len(g.after[id]))
	for _, p := range n.Parents {
		if !slices.Contains(deps, p) {
			deps = append(deps, p)
		}
	}
	for _, p := range g.after[id] {
		if !slices.Contains(deps, p) {
			deps = append(deps, p)
		}
	}
	return deps
}

// BeginMaterialization marks the graph read-only until the returned release
// function is called. Calls may overlap; composition resumes once every
// materialization has released.
func (g *Graph) BeginMaterialization() (release func()) {
	g.mu.Lock()
	g.busy.Add(1)
	g.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { g.busy.Add(-1) })
	}
}

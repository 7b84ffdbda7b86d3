// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/ops"
)

// DetectCycles checks the whole graph, including explicit ordering edges,
// and returns a *CycleError naming the first cycle found.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	all := make([]ID, len(g.nodes))
	for i := range g.nodes {
		all[i] = ID(i)
	}
	_, err := g.orderLocked(all)
	return err
}

// TopoOrder returns the nodes reachable from roots, every node after all of
// its dependencies. The order is deterministic for a given graph.
func (g *Graph) TopoOrder(roots []ID) ([]ID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, r := range roots {
		if _, ok := g.nodeLocked(r); !ok {
			return nil, fmt.Errorf("root %s: %w", r, ErrUnknownNode)
		}
	}
	return g.orderLocked(roots)
}

// orderLocked runs a depth-first search from starts. Nodes on the current
// path are "temporary"; finished nodes are "permanent". Reaching a
// temporary node again means the path has closed into a cycle.
func (g *Graph) orderLocked(starts []ID) ([]ID, error) {
	permanent := make(map[ID]bool)
	temporary := make(map[ID]bool)
	var stack []ID
	var order []ID

	var visit func(id ID) error
	visit = func(id ID) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			at := slices.Index(stack, id)
			path := make([]string, 0, len(stack)-at+1)
			for _, s := range stack[at:] {
				path = append(path, s.String())
			}
			return &CycleError{Path: append(path, id.String())}
		}
		if _, ok := g.nodeLocked(id); !ok {
			return fmt.Errorf("dependency %s: %w", id, ErrUnknownNode)
		}

		temporary[id] = true
		stack = append(stack, id)
		for _, dep := range g.depsLocked(id) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(temporary, id)
		permanent[id] = true
		order = append(order, id)
		return nil
	}

	for _, id := range starts {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// SourceAncestors returns the source-load nodes id was derived from, in
// ascending ID order.
func (g *Graph) SourceAncestors(id ID) []ID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[ID]bool)
	var out []ID
	var walk func(ID)
	walk = func(cur ID) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		n, ok := g.nodeLocked(cur)
		if !ok {
			return
		}
		if n.Op.Kind == ops.SourceLoad {
			out = append(out, cur)
		}
		for _, p := range n.Parents {
			walk(p)
		}
	}
	walk(id)
	slices.Sort(out)
	return out
}

// PathHasKind reports whether id or any of its data ancestors applies an
// operation of the given kind.
func (g *Graph) PathHasKind(id ID, kind ops.Kind) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[ID]bool)
	var walk func(ID) bool
	walk = func(cur ID) bool {
		if seen[cur] {
			return false
		}
		seen[cur] = true
		n, ok := g.nodeLocked(cur)
		if !ok {
			return false
		}
		if n.Op.Kind == kind {
			return true
		}
		for _, p := range n.Parents {
			if walk(p) {
				return true
			}
		}
		return false
	}
	return walk(id)
}

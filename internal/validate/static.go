// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package validate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/ops"
)

func newViolation(p Policy, code Code, node graph.ID, format string, args ...any) Violation {
	return Violation{Code: code, Severity: p.Severity(code), Node: node, Message: fmt.Sprintf(format, args...)}
}

// CheckStatic inspects the declared metadata of the subgraph reachable from
// roots. It reads no data.
func CheckStatic(g *graph.Graph, roots []graph.ID, opts ...Option) []Violation {
	s := newSettings(opts)
	registry := s.registry
	if registry == nil {
		registry = g.Registry()
	}

	var out []Violation
	var live []graph.ID
	for _, id := range roots {
		n, ok := g.Node(id)
		if !ok {
			out = append(out, s.violation(CodeDanglingReference, graph.NoID, "root %s does not exist", id))
			continue
		}
		live = append(live, id)
		if !n.Resolved() {
			out = append(out, s.violation(CodeUnresolvedShape, id, "root shape %v of dims %v is not fully resolved", n.Shape, n.Dims))
		}
	}

	order, err := g.TopoOrder(live)
	var cycle *graph.CycleError
	switch {
	case errors.As(err, &cycle):
		out = append(out, s.violation(CodeCycle, graph.NoID, "%v", cycle))
	case err != nil:
		out = append(out, s.violation(CodeDanglingReference, graph.NoID, "%v", err))
	}
	if err != nil {
		// Keep checking operations over the whole arena so one report
		// lists every problem.
		for _, n := range g.Nodes() {
			order = append(order, n.ID)
		}
	}

	for _, id := range order {
		n, _ := g.Node(id)
		out = append(out, s.checkNode(g, registry, n)...)
		// The materializer evaluates every node of the subgraph, so a
		// ragged ancestor blocks a resolved root as well.
		if !n.Resolved() && !slices.Contains(live, id) {
			out = append(out, s.violation(CodeUnresolvedShape, id, "shape %v of dims %v is not resolved; ragged dims cannot be materialized", n.Shape, n.Dims))
		}
	}
	return out
}

func (s *settings) checkNode(g *graph.Graph, registry *ops.Registry, n *graph.Node) []Violation {
	var out []Violation
	id := n.ID

	def, err := registry.Lookup(n.Op.Name)
	switch {
	case err != nil:
		out = append(out, s.violation(CodeUnknownOperation, id, "operation '%s' has no shape inference rule", n.Op.Name))
	case def.Kind != n.Op.Kind:
		out = append(out, s.violation(CodeUnknownOperation, id, "operation '%s' is registered as %s, node declares %s", n.Op.Name, def.Kind, n.Op.Kind))
	}

	for _, p := range n.Parents {
		if _, ok := g.Node(p); !ok {
			out = append(out, s.violation(CodeDanglingReference, id, "parent %s does not exist", p))
		}
	}
	if n.Op.Kind == ops.SourceLoad && n.Source == nil {
		out = append(out, s.violation(CodeDanglingReference, id, "leaf node has no source"))
	}

	if s.opts != nil {
		if n.Op.Kind == ops.CoordinateTransform && s.opts.TransformDisabled(n.Op.Name) {
			out = append(out, s.violation(CodeDisabledOperation, id, "coordinate transform '%s' is disabled", n.Op.Name))
		}
		if n.Op.Kind == ops.Reduction && len(n.ReduceAxes) > 1 && !s.opts.AllowMultiDimReduction {
			out = append(out, s.violation(CodeMultiDimReduction, id, "reduction over %d dims is disabled", len(n.ReduceAxes)))
		}
	}
	return out
}

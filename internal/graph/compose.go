// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"github.com/specialistvlad/lineagegrid/internal/provenance"
	"github.com/specialistvlad/lineagegrid/internal/source"
	"github.com/zclconf/go-cty/cty"
)

// Load adds a leaf node for src and records a "load" entry in its ledger.
// Only metadata is read.
func (g *Graph) Load(src source.Source) (ID, error) {
	return g.addSource("", "load", src)
}

// LoadAs is Load with a caller-supplied label.
func (g *Graph) LoadAs(label string, src source.Source) (ID, error) {
	return g.addSource(label, "load", src)
}

// Literal adds a leaf node for an array the caller built in memory. A
// literal is the origin of its own lineage: its ledger starts empty, so
// only operations applied to it are recorded.
func (g *Graph) Literal(label string, src source.Source) (ID, error) {
	return g.addSource(label, "literal", src)
}

func (g *Graph) addSource(label, opName string, src source.Source) (ID, error) {
	meta := src.Meta().Clone()
	params := map[string]cty.Value{}
	if opName == "load" {
		params["location"] = cty.StringVal(meta.Location)
		if meta.Name != "" {
			params["variable"] = cty.StringVal(meta.Name)
		}
	}
	op, def, err := g.registry.Operation(opName, params)
	if err != nil {
		return NoID, err
	}
	if _, ok := def.DType(op, []dtype.DType{meta.DType}); !ok {
		return NoID, &DtypeMismatchError{Op: op.Name, DTypes: []dtype.DType{meta.DType}}
	}
	if len(meta.Dims) != len(meta.Shape) {
		return NoID, &ShapeMismatchError{
			Op: op.Name, Dims: [][]string{meta.Dims}, Shapes: [][]int{meta.Shape},
			Reason: "source reports a different number of dims and sizes",
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy.Load() > 0 {
		return NoID, ErrGraphBusy
	}

	n := &Node{
		ID:     ID(len(g.nodes)),
		Label:  label,
		Op:     op,
		Dims:   meta.Dims,
		Shape:  meta.Shape,
		DType:  meta.DType,
		Coords: meta.Coords,
		Attrs:  meta.Attrs,
		Source: src,
	}
	if n.Dims == nil {
		n.Dims, n.Shape = []string{}, []int{}
	}
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	if opName == "load" {
		n.Delta = provenance.Entry{Operation: op.Name, Kind: op.Kind.String(), Params: op.Digest()}
		n.Ledger = provenance.Merge(nil, n.Delta)
	}
	g.nodes = append(g.nodes, n)
	return n.ID, nil
}

// Compose adds a node applying the named operation to parents. It fails
// with *ops.UnknownOperationError, ops.ErrOperationDisabled,
// *DtypeMismatchError or *ShapeMismatchError before any data is touched.
func (g *Graph) Compose(name string, params map[string]cty.Value, parents ...ID) (ID, error) {
	return g.ComposeAs("", name, params, parents...)
}

// ComposeAs is Compose with a caller-supplied label.
func (g *Graph) ComposeAs(label, name string, params map[string]cty.Value, parents ...ID) (ID, error) {
	op, def, err := g.registry.Operation(name, params)
	if err != nil {
		return NoID, err
	}
	switch {
	case op.Kind == ops.SourceLoad:
		return NoID, fmt.Errorf("operation '%s' creates leaf nodes; use Load", name)
	case op.Kind == ops.CoordinateTransform && g.opts.TransformDisabled(name):
		return NoID, fmt.Errorf("%w: '%s'", ops.ErrOperationDisabled, name)
	}
	if err := def.CheckArity(len(parents)); err != nil {
		return NoID, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy.Load() > 0 {
		return NoID, ErrGraphBusy
	}

	in := make([]*Node, len(parents))
	for i, id := range parents {
		p, ok := g.nodeLocked(id)
		if !ok {
			return NoID, fmt.Errorf("operation '%s': %w %s", name, ErrUnknownNode, id)
		}
		in[i] = p
	}

	dtypes := make([]dtype.DType, len(in))
	for i, p := range in {
		dtypes[i] = p.DType
	}
	outType, ok := def.DType(op, dtypes)
	if !ok {
		return NoID, &DtypeMismatchError{Op: name, DTypes: dtypes}
	}

	n := &Node{
		ID:      ID(len(g.nodes)),
		Label:   label,
		Op:      op,
		Parents: slices.Clone(parents),
		DType:   outType,
		Attrs:   inheritAttrs(in),
	}
	if err := g.infer(n, in); err != nil {
		return NoID, err
	}

	inputs := make([]string, len(parents))
	parentLedgers := make([]provenance.Ledger, len(in))
	for i, p := range in {
		inputs[i] = p.ID.String()
		parentLedgers[i] = p.Ledger
	}
	n.Delta = provenance.Entry{Operation: name, Kind: op.Kind.String(), Inputs: inputs, Params: op.Digest()}
	n.Ledger = provenance.Merge(parentLedgers, n.Delta)

	g.nodes = append(g.nodes, n)
	return n.ID, nil
}

// Scale multiplies every element of x by factor.
func (g *Graph) Scale(x ID, factor float64) (ID, error) {
	return g.Compose("scale", ops.Params("factor", factor), x)
}

// Offset adds value to every element of x.
func (g *Graph) Offset(x ID, value float64) (ID, error) {
	return g.Compose("offset", ops.Params("value", value), x)
}

// Map applies a parameterless elementwise operation such as "sqrt" or "add".
func (g *Graph) Map(name string, parents ...ID) (ID, error) {
	return g.Compose(name, nil, parents...)
}

// Combine applies a broadcast-combine operation such as "broadcast_add".
func (g *Graph) Combine(name string, a, b ID) (ID, error) {
	return g.Compose(name, nil, a, b)
}

// Reduce folds the named dims of x with a reduction such as "reduce_mean".
// With no dims every dimension is reduced.
func (g *Graph) Reduce(name string, x ID, dims ...string) (ID, error) {
	if len(dims) == 0 {
		return g.Compose(name, nil, x)
	}
	return g.Compose(name, ops.Params("dims", dims), x)
}

// Subset keeps the part of x whose coordinate along dim lies in [lo, hi].
func (g *Graph) Subset(x ID, dim string, lo, hi float64) (ID, error) {
	return g.Compose("sel", ops.Params("dim", dim, "min", lo, "max", hi), x)
}

// ISel keeps indices [start, stop) of x along dim.
func (g *Graph) ISel(x ID, dim string, start, stop int) (ID, error) {
	return g.Compose("isel", ops.Params("dim", dim, "start", start, "stop", stop), x)
}

// Rename renames dimension from to to.
func (g *Graph) Rename(x ID, from, to string) (ID, error) {
	return g.Compose("rename", ops.Params("from", from, "to", to), x)
}

// DropCoord removes the named coordinate from x.
func (g *Graph) DropCoord(x ID, name string) (ID, error) {
	return g.Compose("drop_coord", ops.Params("name", name), x)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/ops"
)

// infer fills the declared dims, shape, coordinates and derivation fields
// of n from its parents, following the rule of n's operation kind.
func (g *Graph) infer(n *Node, in []*Node) error {
	switch n.Op.Kind {
	case ops.ElementwiseMap:
		return inferMap(n, in)
	case ops.BroadcastCombine:
		return inferCombine(n, in)
	case ops.Reduction:
		return inferReduction(n, in[0], g.opts.AllowMultiDimReduction)
	case ops.CoordinateTransform:
		return inferTransform(n, in[0])
	default:
		return &ops.UnknownOperationError{Name: n.Op.Name}
	}
}

func mismatch(n *Node, in []*Node, format string, args ...any) *ShapeMismatchError {
	e := &ShapeMismatchError{Op: n.Op.Name, Reason: fmt.Sprintf(format, args...)}
	for _, p := range in {
		e.Dims = append(e.Dims, p.Dims)
		e.Shapes = append(e.Shapes, p.Shape)
	}
	return e
}

// broadcastSize combines two sizes of the same dimension. Sizes must be
// equal, or one of them 1; unknown sizes only combine with themselves or 1.
func broadcastSize(a, b int) (int, bool) {
	switch {
	case a == b:
		return a, true
	case a == 1:
		return b, true
	case b == 1:
		return a, true
	default:
		return 0, false
	}
}

// broadcastCoords merges the coordinates of every parent that spans a
// dimension at full output size. Size-1 parents are stretched, so their
// single coordinate value does not describe the output.
func broadcastCoords(n *Node, in []*Node) error {
	out := coords.Set{}
	for _, p := range in {
		keep := make([]string, 0, len(p.Dims))
		for i, d := range p.Dims {
			if p.Shape[i] == n.Shape[n.Axis(d)] {
				keep = append(keep, d)
			}
		}
		merged, err := out.Merge(p.Coords.Keep(keep))
		if err != nil {
			return mismatch(n, in, "%v", err)
		}
		out = merged
	}
	n.Coords = out
	return nil
}

// inferMap aligns parents by dim name. Every parent must span the same set
// of dims, in any order; the output takes the first parent's order.
func inferMap(n *Node, in []*Node) error {
	first := in[0]
	for _, p := range in[1:] {
		if len(p.Dims) != len(first.Dims) {
			return mismatch(n, in, "elementwise inputs must share dims %v", first.Dims)
		}
		for _, d := range first.Dims {
			if p.Axis(d) < 0 {
				return mismatch(n, in, "elementwise inputs must share dims %v", first.Dims)
			}
		}
	}
	n.Dims = slices.Clone(first.Dims)
	n.Shape = slices.Clone(first.Shape)
	n.Axes = make([][]int, len(in))
	n.Axes[0] = identityAxes(len(n.Dims))
	for pi, p := range in[1:] {
		axes := make([]int, len(n.Dims))
		for i, d := range n.Dims {
			axes[i] = p.Axis(d)
			out, ok := broadcastSize(n.Shape[i], p.Shape[axes[i]])
			if !ok {
				return mismatch(n, in, "dim '%s' has sizes %d and %d", d, n.Shape[i], p.Shape[axes[i]])
			}
			n.Shape[i] = out
		}
		n.Axes[pi+1] = axes
	}
	return broadcastCoords(n, in)
}

func identityAxes(rank int) []int {
	axes := make([]int, rank)
	for i := range axes {
		axes[i] = i
	}
	return axes
}

func inferCombine(n *Node, in []*Node) error {
	for _, p := range in {
		for i, d := range p.Dims {
			at := slices.Index(n.Dims, d)
			if at < 0 {
				n.Dims = append(n.Dims, d)
				n.Shape = append(n.Shape, p.Shape[i])
				continue
			}
			out, ok := broadcastSize(n.Shape[at], p.Shape[i])
			if !ok {
				return mismatch(n, in, "dim '%s' has sizes %d and %d", d, n.Shape[at], p.Shape[i])
			}
			n.Shape[at] = out
		}
	}
	n.Axes = make([][]int, len(in))
	for pi, p := range in {
		axes := make([]int, len(n.Dims))
		for i, d := range n.Dims {
			axes[i] = p.Axis(d)
		}
		n.Axes[pi] = axes
	}
	return broadcastCoords(n, in)
}

func inferReduction(n *Node, p *Node, allowMulti bool) error {
	in := []*Node{p}
	var axes []int
	switch {
	case n.Op.Has("dims") && n.Op.Has("axis"):
		return mismatch(n, in, "set either dims or axis, not both")
	case n.Op.Has("dims"):
		dims, err := n.Op.Strings("dims")
		if err != nil {
			return err
		}
		for _, d := range dims {
			ax := p.Axis(d)
			if ax < 0 {
				return mismatch(n, in, "cannot reduce missing dim '%s'", d)
			}
			axes = append(axes, ax)
		}
	case n.Op.Has("axis"):
		idx, err := n.Op.Ints("axis")
		if err != nil {
			return err
		}
		for _, ax := range idx {
			if ax < 0 {
				ax += len(p.Dims)
			}
			if ax < 0 || ax >= len(p.Dims) {
				return mismatch(n, in, "axis %d out of range for %d dims", ax, len(p.Dims))
			}
			axes = append(axes, ax)
		}
	default:
		axes = identityAxes(len(p.Dims))
	}

	slices.Sort(axes)
	if len(slices.Compact(slices.Clone(axes))) != len(axes) {
		return mismatch(n, in, "a dimension is reduced more than once")
	}
	if len(axes) > 1 && !allowMulti {
		return fmt.Errorf("operation '%s': %w (dims %v)", n.Op.Name, ErrMultiDimReduction, axes)
	}

	for i, d := range p.Dims {
		if !slices.Contains(axes, i) {
			n.Dims = append(n.Dims, d)
			n.Shape = append(n.Shape, p.Shape[i])
		}
	}
	if n.Dims == nil {
		n.Dims, n.Shape = []string{}, []int{}
	}
	n.ReduceAxes = axes
	n.Coords = p.Coords.Keep(n.Dims)
	return nil
}

func inferTransform(n *Node, p *Node) error {
	in := []*Node{p}
	n.Dims = slices.Clone(p.Dims)
	n.Shape = slices.Clone(p.Shape)

	switch n.Op.Name {
	case "isel":
		dim, axis, err := transformAxis(n, p)
		if err != nil {
			return err
		}
		start, err := n.Op.Int("start")
		if err != nil {
			return err
		}
		stop, err := n.Op.Int("stop")
		if err != nil {
			return err
		}
		size := p.Shape[axis]
		if size == ndarray.UnknownDim {
			return mismatch(n, in, "cannot index dim '%s' of unknown size", dim)
		}
		if start < 0 || stop > size || start >= stop {
			return mismatch(n, in, "index range [%d, %d) is empty or outside dim '%s' of size %d", start, stop, dim, size)
		}
		return applyWindow(n, p, dim, Window{Axis: axis, Start: start, Stop: stop})

	case "sel":
		dim, axis, err := transformAxis(n, p)
		if err != nil {
			return err
		}
		lo, err := n.Op.Number("min")
		if err != nil {
			return err
		}
		hi, err := n.Op.Number("max")
		if err != nil {
			return err
		}
		c, ok := p.Coords.ForDim(dim)
		if !ok {
			return mismatch(n, in, "dim '%s' has no coordinate to select on", dim)
		}
		start, stop := -1, -1
		for i, v := range c.Values {
			if v < lo || v > hi {
				continue
			}
			if start < 0 {
				start = i
			} else if stop != i {
				return mismatch(n, in, "coordinate '%s' values in [%v, %v] are not contiguous", c.Name, lo, hi)
			}
			stop = i + 1
		}
		if start < 0 {
			return mismatch(n, in, "no '%s' coordinate values lie in [%v, %v]", c.Name, lo, hi)
		}
		return applyWindow(n, p, dim, Window{Axis: axis, Start: start, Stop: stop})

	case "rename":
		from, err := n.Op.Str("from")
		if err != nil {
			return err
		}
		to, err := n.Op.Str("to")
		if err != nil {
			return err
		}
		axis := p.Axis(from)
		if axis < 0 {
			return mismatch(n, in, "cannot rename missing dim '%s'", from)
		}
		if p.Axis(to) >= 0 {
			return mismatch(n, in, "dim '%s' already exists", to)
		}
		if c, ok := p.Coords[to]; ok && c.Dim != from {
			return mismatch(n, in, "coordinate '%s' already exists", to)
		}
		n.Dims[axis] = to
		n.Coords = p.Coords.RenameDim(from, to)
		return nil

	case "drop_coord":
		name, err := n.Op.Str("name")
		if err != nil {
			return err
		}
		if _, ok := p.Coords[name]; !ok {
			return mismatch(n, in, "no coordinate named '%s'", name)
		}
		n.Coords = p.Coords.Clone()
		delete(n.Coords, name)
		return nil

	default:
		return &ops.UnknownOperationError{Name: n.Op.Name}
	}
}

func transformAxis(n *Node, p *Node) (string, int, error) {
	dim, err := n.Op.Str("dim")
	if err != nil {
		return "", 0, err
	}
	axis := p.Axis(dim)
	if axis < 0 {
		return "", 0, mismatch(n, []*Node{p}, "no dim named '%s'", dim)
	}
	return dim, axis, nil
}

func applyWindow(n *Node, p *Node, dim string, w Window) error {
	n.Window = &w
	n.Shape[w.Axis] = w.Stop - w.Start
	n.Coords = p.Coords.Slice(dim, w.Start, w.Stop)
	return nil
}

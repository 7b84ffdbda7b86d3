// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package materialize

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/ops"
)

// evaluate computes one chunk of nr. It reads only the parent regions the
// chunk depends on.
func (ex *execution) evaluate(ctx context.Context, nr *nodeRun, idx []int) (*ndarray.Array, error) {
	region := nr.scheme.Region(idx)
	switch nr.node.Op.Kind {
	case ops.SourceLoad:
		return ex.readSource(ctx, nr, region)
	case ops.ElementwiseMap, ops.BroadcastCombine:
		return ex.elementwise(ctx, nr, region)
	case ops.Reduction:
		return ex.reduce(ctx, nr, region)
	case ops.CoordinateTransform:
		return ex.transform(ctx, nr, region)
	default:
		return nil, &ops.UnknownOperationError{Name: nr.node.Op.Name}
	}
}

func (ex *execution) readSource(ctx context.Context, nr *nodeRun, region ndarray.Region) (*ndarray.Array, error) {
	block, err := nr.node.Source.ReadRegion(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", region, err)
	}
	if !slices.Equal(block.Shape, region.Shape()) {
		return nil, fmt.Errorf("source returned shape %v for region %v", block.Shape, region)
	}
	if block.DType != nr.node.DType {
		return nil, fmt.Errorf("source returned dtype %s, declared %s", block.DType, nr.node.DType)
	}
	return block, nil
}

// elementwise evaluates map and broadcast-combine chunks. Output axis k of
// parent i reads parent axis Axes[i][k]; size-1 parent axes are stretched.
func (ex *execution) elementwise(ctx context.Context, nr *nodeRun, region ndarray.Region) (*ndarray.Array, error) {
	n := nr.node
	shape := region.Shape()

	blocks := make([]*ndarray.Array, len(nr.parents))
	strides := make([][]int, len(nr.parents))
	for i, p := range nr.parents {
		axes := n.Axes[i]
		pr := ndarray.Region{Start: make([]int, len(p.node.Shape)), Stop: make([]int, len(p.node.Shape))}
		for k, a := range axes {
			if a < 0 {
				continue
			}
			if p.node.Shape[a] == 1 && n.Shape[k] != 1 {
				pr.Start[a], pr.Stop[a] = 0, 1
				continue
			}
			pr.Start[a], pr.Stop[a] = region.Start[k], region.Stop[k]
		}
		b, err := ex.gather(ctx, p, pr)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", p.node.ID, err)
		}
		blocks[i] = b

		// Per output axis, the step in the parent block; stretched and
		// absent axes contribute nothing.
		bs := ndarray.Strides(b.Shape)
		st := make([]int, len(shape))
		for k, a := range axes {
			if a >= 0 && b.Shape[a] == shape[k] {
				st[k] = bs[a]
			}
		}
		strides[i] = st
	}

	out := ndarray.New(n.DType, shape)
	pos := make([]int, len(shape))
	args := make([]float64, len(blocks))
	for flat := range out.Data {
		ndarray.Unravel(flat, shape, pos)
		for i, b := range blocks {
			off := 0
			for k, s := range strides[i] {
				off += pos[k] * s
			}
			args[i] = b.Data[off]
		}
		out.Data[flat] = n.DType.Cast(nr.fn(args))
	}
	return out, nil
}

// reduce evaluates a reduction chunk in two phases: one partial per parent
// chunk overlapping the input region, merged in row-major chunk order.
func (ex *execution) reduce(ctx context.Context, nr *nodeRun, region ndarray.Region) (*ndarray.Array, error) {
	n := nr.node
	p := nr.parents[0]
	red := nr.reducer

	// outAxis[a] is the output axis fed by parent axis a, or -1 when a is
	// reduced.
	outAxis := make([]int, len(p.node.Shape))
	in := ndarray.Region{Start: make([]int, len(p.node.Shape)), Stop: make([]int, len(p.node.Shape))}
	k := 0
	for a, size := range p.node.Shape {
		if slices.Contains(n.ReduceAxes, a) {
			outAxis[a] = -1
			in.Stop[a] = size
			continue
		}
		outAxis[a] = k
		in.Start[a], in.Stop[a] = region.Start[k], region.Stop[k]
		k++
	}

	shape := region.Shape()
	outStrides := ndarray.Strides(shape)
	total := make([]float64, ndarray.Size(shape))
	counts := make([]int, len(total))
	for i := range total {
		total[i] = red.Identity
	}
	partial := make([]float64, len(total))
	partialCounts := make([]int, len(total))

	for _, cidx := range p.scheme.Overlapping(in) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk := p.scheme.Region(cidx)
		inter, ok := in.Intersect(chunk)
		if !ok {
			continue
		}
		block, err := ex.m.store.Get(ctx, ex.key(p, cidx))
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", p.node.ID, err)
		}

		for i := range partial {
			partial[i] = red.Identity
			partialCounts[i] = 0
		}
		local := inter.Translate(chunk.Start)
		ext := inter.Shape()
		blockStrides := ndarray.Strides(block.Shape)
		pos := make([]int, len(ext))
		for flat := 0; flat < ndarray.Size(ext); flat++ {
			ndarray.Unravel(flat, ext, pos)
			src, dst := 0, 0
			for a, v := range pos {
				src += (local.Start[a] + v) * blockStrides[a]
				if o := outAxis[a]; o >= 0 {
					dst += (inter.Start[a] + v - region.Start[o]) * outStrides[o]
				}
			}
			partial[dst] = red.Step(partial[dst], block.Data[src])
			partialCounts[dst]++
		}
		for i := range total {
			if partialCounts[i] > 0 {
				total[i] = red.Merge(total[i], partial[i])
				counts[i] += partialCounts[i]
			}
		}
	}

	out := ndarray.New(n.DType, shape)
	for i := range out.Data {
		out.Data[i] = n.DType.Cast(red.Finalize(total[i], counts[i]))
	}
	return out, nil
}

// transform evaluates coordinate-transform chunks. Slicing transforms read
// the parent region shifted by their window; the others copy the block.
func (ex *execution) transform(ctx context.Context, nr *nodeRun, region ndarray.Region) (*ndarray.Array, error) {
	p := nr.parents[0]
	in := ndarray.Region{Start: slices.Clone(region.Start), Stop: slices.Clone(region.Stop)}
	if w := nr.node.Window; w != nil {
		in.Start[w.Axis] += w.Start
		in.Stop[w.Axis] += w.Start
	}
	block, err := ex.gather(ctx, p, in)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", p.node.ID, err)
	}
	block.DType = nr.node.DType
	return block, nil
}

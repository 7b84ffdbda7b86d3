// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package chunkplan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/lineagegrid/internal/ndarray"
)

// Scheme maps every dimension to the ordered list of chunk extents along it.
// The extents of a dimension always sum to the dimension's size.
type Scheme struct {
	Dims    []string
	Extents [][]int
}

// ExtentsFor returns the extents planned for dim when the scheme covers a
// dimension of that name and size.
func (s Scheme) ExtentsFor(dim string, size int) ([]int, bool) {
	for i, d := range s.Dims {
		if d != dim {
			continue
		}
		total := 0
		for _, e := range s.Extents[i] {
			total += e
		}
		if total != size {
			return nil, false
		}
		return s.Extents[i], true
	}
	return nil, false
}

// Shape returns the full array shape the scheme was planned for.
func (s Scheme) Shape() []int {
	shape := make([]int, len(s.Extents))
	for i, ext := range s.Extents {
		for _, e := range ext {
			shape[i] += e
		}
	}
	return shape
}

// ChunkShape returns the largest chunk extent along every dimension.
func (s Scheme) ChunkShape() []int {
	shape := make([]int, len(s.Extents))
	for i, ext := range s.Extents {
		if len(ext) > 0 {
			shape[i] = slices.Max(ext)
		}
	}
	return shape
}

// MaxChunkBytes returns the size of the largest chunk in bytes.
func (s Scheme) MaxChunkBytes(dtypeSize int) int64 {
	return chunkBytes(s.ChunkShape(), dtypeSize)
}

// Validate checks that the scheme describes an array with the given dims
// and shape, with extents that sum to every dimension's size and at most
// one remainder chunk per dimension.
func (s Scheme) Validate(dims []string, shape []int) error {
	if !slices.Equal(s.Dims, dims) || len(s.Extents) != len(shape) {
		return &InvalidShapeError{Dims: dims, Shape: shape, Reason: fmt.Sprintf("scheme dims %v do not match", s.Dims)}
	}
	for i, ext := range s.Extents {
		if len(ext) == 0 {
			return &InvalidShapeError{Dims: dims, Shape: shape, Reason: fmt.Sprintf("dimension '%s' has no chunks", dims[i])}
		}
		total := 0
		for j, e := range ext {
			if e <= 0 {
				return &InvalidShapeError{Dims: dims, Shape: shape, Reason: fmt.Sprintf("dimension '%s' has a non-positive extent", dims[i])}
			}
			if j > 0 && j < len(ext)-1 && e != ext[0] {
				return &InvalidShapeError{Dims: dims, Shape: shape, Reason: fmt.Sprintf("dimension '%s' has more than one remainder chunk", dims[i])}
			}
			if j == len(ext)-1 && e > ext[0] {
				return &InvalidShapeError{Dims: dims, Shape: shape, Reason: fmt.Sprintf("dimension '%s' has a remainder larger than its chunks", dims[i])}
			}
			total += e
		}
		if total != shape[i] {
			return &InvalidShapeError{Dims: dims, Shape: shape, Reason: fmt.Sprintf("extents of '%s' sum to %d", dims[i], total)}
		}
	}
	return nil
}

// Grid returns the number of chunks along every dimension.
func (s Scheme) Grid() []int {
	grid := make([]int, len(s.Extents))
	for i, ext := range s.Extents {
		grid[i] = len(ext)
	}
	return grid
}

// ChunkCount returns the total number of chunks. A zero-dimensional scheme
// has exactly one chunk.
func (s Scheme) ChunkCount() int {
	return ndarray.Size(s.Grid())
}

// Indices returns every chunk index in row-major order.
func (s Scheme) Indices() [][]int {
	grid := s.Grid()
	out := make([][]int, s.ChunkCount())
	for flat := range out {
		idx := make([]int, len(grid))
		ndarray.Unravel(flat, grid, idx)
		out[flat] = idx
	}
	return out
}

// Region returns the array region covered by the chunk at idx.
func (s Scheme) Region(idx []int) ndarray.Region {
	r := ndarray.Region{Start: make([]int, len(idx)), Stop: make([]int, len(idx))}
	for d, i := range idx {
		for _, e := range s.Extents[d][:i] {
			r.Start[d] += e
		}
		r.Stop[d] = r.Start[d] + s.Extents[d][i]
	}
	return r
}

// Overlapping returns the indices of every chunk intersecting r, in
// row-major order.
func (s Scheme) Overlapping(r ndarray.Region) [][]int {
	ranges := make([][2]int, len(s.Extents))
	for d, ext := range s.Extents {
		first, last, offset := -1, -1, 0
		for i, e := range ext {
			if offset < r.Stop[d] && offset+e > r.Start[d] {
				if first < 0 {
					first = i
				}
				last = i
			}
			offset += e
		}
		if first < 0 {
			return nil
		}
		ranges[d] = [2]int{first, last + 1}
	}

	sub := make([]int, len(ranges))
	for d, rg := range ranges {
		sub[d] = rg[1] - rg[0]
	}
	out := make([][]int, 0, ndarray.Size(sub))
	for flat := 0; flat < ndarray.Size(sub); flat++ {
		idx := make([]int, len(sub))
		ndarray.Unravel(flat, sub, idx)
		for d := range idx {
			idx[d] += ranges[d][0]
		}
		out = append(out, idx)
	}
	return out
}

func (s Scheme) String() string {
	parts := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		parts[i] = fmt.Sprintf("%s=%v", d, s.Extents[i])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ndarray

import (
	"fmt"
	"slices"
	"strings"
)

// Region is a half-open box [Start, Stop) over every dimension of an array.
type Region struct {
	Start []int
	Stop  []int
}

// Full returns the region covering the whole of shape.
func Full(shape []int) Region {
	return Region{Start: make([]int, len(shape)), Stop: slices.Clone(shape)}
}

// Rank returns the number of dimensions the region spans.
func (r Region) Rank() int {
	return len(r.Start)
}

// Shape returns the extent of the region along every dimension.
func (r Region) Shape() []int {
	shape := make([]int, len(r.Start))
	for i := range r.Start {
		shape[i] = r.Stop[i] - r.Start[i]
	}
	return shape
}

// Validate checks that r is well formed and lies within shape.
func (r Region) Validate(shape []int) error {
	if len(r.Start) != len(r.Stop) || len(r.Start) != len(shape) {
		return fmt.Errorf("region %v does not match rank of shape %v", r, shape)
	}
	for i := range shape {
		if r.Start[i] < 0 || r.Start[i] > r.Stop[i] || r.Stop[i] > shape[i] {
			return fmt.Errorf("region %v is out of bounds for shape %v", r, shape)
		}
	}
	return nil
}

// Intersect returns the overlap of r and o. The second value is false when
// they do not overlap.
func (r Region) Intersect(o Region) (Region, bool) {
	out := Region{Start: make([]int, len(r.Start)), Stop: make([]int, len(r.Start))}
	for i := range r.Start {
		out.Start[i] = max(r.Start[i], o.Start[i])
		out.Stop[i] = min(r.Stop[i], o.Stop[i])
		if out.Start[i] >= out.Stop[i] {
			return Region{}, false
		}
	}
	return out, true
}

// Translate returns r shifted by -origin, expressing it relative to a box
// that starts at origin.
func (r Region) Translate(origin []int) Region {
	out := Region{Start: make([]int, len(r.Start)), Stop: make([]int, len(r.Stop))}
	for i := range r.Start {
		out.Start[i] = r.Start[i] - origin[i]
		out.Stop[i] = r.Stop[i] - origin[i]
	}
	return out
}

// Equal reports whether both regions describe the same box.
func (r Region) Equal(o Region) bool {
	return slices.Equal(r.Start, o.Start) && slices.Equal(r.Stop, o.Stop)
}

func (r Region) String() string {
	parts := make([]string, len(r.Start))
	for i := range r.Start {
		parts[i] = fmt.Sprintf("%d:%d", r.Start[i], r.Stop[i])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

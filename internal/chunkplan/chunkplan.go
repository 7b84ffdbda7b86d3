// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package chunkplan decides how an array is cut into chunks so that no chunk
// exceeds a byte budget.
package chunkplan

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DefaultTargetBytes is the chunk budget used when none is configured.
const DefaultTargetBytes int64 = 100_000_000

// ErrInvalidBudget is returned when the byte budget or element size cannot
// produce any chunk.
var ErrInvalidBudget = errors.New("invalid chunk budget")

// InvalidShapeError reports a malformed shape handed to the planner.
type InvalidShapeError struct {
	Dims   []string
	Shape  []int
	Reason string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid shape %v for dims %v: %s", e.Shape, e.Dims, e.Reason)
}

// Plan computes a chunk scheme for an array of the given dims and shape.
//
// Planning starts from a single chunk covering the whole array. While the
// chunk is over budget, the dimension with the largest current extent is
// halved (rounding up); ties go to the earlier dimension. Small dimensions
// therefore stay whole until every larger dimension has shrunk to their size.
func Plan(dims []string, shape []int, dtypeSize int, targetBytes int64) (Scheme, error) {
	if len(dims) != len(shape) {
		return Scheme{}, &InvalidShapeError{Dims: dims, Shape: shape, Reason: "dims and shape differ in length"}
	}
	for i, n := range shape {
		if n <= 0 {
			return Scheme{}, &InvalidShapeError{
				Dims:   dims,
				Shape:  shape,
				Reason: fmt.Sprintf("dimension '%s' must be a positive integer, got %d", dims[i], n),
			}
		}
	}
	if targetBytes <= 0 {
		return Scheme{}, fmt.Errorf("%w: target bytes must be positive, got %d", ErrInvalidBudget, targetBytes)
	}
	if dtypeSize <= 0 {
		return Scheme{}, fmt.Errorf("%w: element size must be positive, got %d", ErrInvalidBudget, dtypeSize)
	}
	if int64(dtypeSize) > targetBytes {
		return Scheme{}, fmt.Errorf("%w: a single %d-byte element exceeds the %d-byte budget", ErrInvalidBudget, dtypeSize, targetBytes)
	}

	chunk := slices.Clone(shape)
	for chunkBytes(chunk, dtypeSize) > targetBytes {
		widest := 0
		for i := range chunk {
			if chunk[i] > chunk[widest] {
				widest = i
			}
		}
		chunk[widest] = (chunk[widest] + 1) / 2
	}

	return Uniform(dims, shape, chunk)
}

// Uniform builds a scheme that cuts every dimension into chunks of the given
// size, with one trailing remainder chunk where the size does not divide.
func Uniform(dims []string, shape, chunk []int) (Scheme, error) {
	if len(dims) != len(shape) || len(chunk) != len(shape) {
		return Scheme{}, &InvalidShapeError{Dims: dims, Shape: shape, Reason: "dims, shape and chunk differ in length"}
	}
	s := Scheme{Dims: slices.Clone(dims), Extents: make([][]int, len(shape))}
	for i, n := range shape {
		if n <= 0 {
			return Scheme{}, &InvalidShapeError{Dims: dims, Shape: shape, Reason: fmt.Sprintf("dimension '%s' must be a positive integer, got %d", dims[i], n)}
		}
		if chunk[i] <= 0 {
			return Scheme{}, &InvalidShapeError{Dims: dims, Shape: chunk, Reason: fmt.Sprintf("chunk extent for '%s' must be positive", dims[i])}
		}
		s.Extents[i] = splitExtents(n, chunk[i])
	}
	return s, nil
}

// Whole returns a scheme with exactly one chunk per dimension.
func Whole(dims []string, shape []int) Scheme {
	s := Scheme{Dims: slices.Clone(dims), Extents: make([][]int, len(shape))}
	for i, n := range shape {
		s.Extents[i] = []int{n}
	}
	return s
}

func splitExtents(size, chunk int) []int {
	chunk = min(chunk, size)
	extents := make([]int, 0, size/chunk+1)
	for remaining := size; remaining > 0; remaining -= chunk {
		extents = append(extents, min(chunk, remaining))
	}
	return extents
}

// chunkBytes saturates at math.MaxInt64 instead of wrapping.
func chunkBytes(chunk []int, dtypeSize int) int64 {
	n := int64(dtypeSize)
	for _, c := range chunk {
		if c > 0 && n > math.MaxInt64/int64(c) {
			return math.MaxInt64
		}
		n *= int64(c)
	}
	return n
}

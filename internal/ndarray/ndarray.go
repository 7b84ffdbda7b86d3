// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package ndarray holds dense, row-major, in-memory array blocks and the
// rectangular regions used to move data between chunks.
//
// Values are always held as float64 regardless of the declared dtype. The
// dtype decides how values are rounded when written (see dtype.DType.Cast)
// and how many bytes an element is accounted for when planning chunks.
// A resident block therefore occupies 8 bytes per element: float32, int32
// and bool chunks take 2 to 8 times their planned size in memory, and int64
// values beyond 2^53 are rounded to the nearest representable float64.
package ndarray

import (
	"fmt"
	"math"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/dtype"
)

// UnknownDim marks a dimension whose size is only known after the data is
// read. Only sources with ragged dimensions may declare it.
const UnknownDim = -1

// Array is a dense row-major block of values.
type Array struct {
	Shape []int
	DType dtype.DType
	Data  []float64
}

// New allocates a zero-filled array. It panics on unresolved or negative
// dimensions, which are programmer errors at this level.
func New(dt dtype.DType, shape []int) *Array {
	for _, n := range shape {
		if n < 0 {
			panic(fmt.Sprintf("ndarray: cannot allocate shape %v", shape))
		}
	}
	return &Array{
		Shape: slices.Clone(shape),
		DType: dt,
		Data:  make([]float64, Size(shape)),
	}
}

// FromValues wraps data in an array after checking that its length matches
// the shape. Every value is cast to the declared dtype.
func FromValues(dt dtype.DType, shape []int, data []float64) (*Array, error) {
	if !Resolved(shape) {
		return nil, fmt.Errorf("shape %v is not fully resolved", shape)
	}
	if want := Size(shape); want != len(data) {
		return nil, fmt.Errorf("shape %v needs %d values, got %d", shape, want, len(data))
	}
	a := &Array{Shape: slices.Clone(shape), DType: dt, Data: make([]float64, len(data))}
	for i, v := range data {
		a.Data[i] = dt.Cast(v)
	}
	return a, nil
}

// Size returns the number of elements of shape. A zero-dimensional shape
// describes a scalar and has size 1.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Resolved reports whether every dimension of shape is known.
func Resolved(shape []int) bool {
	for _, d := range shape {
		if d < 0 {
			return false
		}
	}
	return true
}

// Strides returns row-major element strides for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return strides
}

// Unravel converts a flat row-major offset into a multi-index, writing into idx.
func Unravel(flat int, shape []int, idx []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] == 0 {
			idx[i] = 0
			continue
		}
		idx[i] = flat % shape[i]
		flat /= shape[i]
	}
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("ndarray: index %v does not match rank %d", idx, len(a.Shape)))
	}
	off := 0
	for i, s := range Strides(a.Shape) {
		if idx[i] < 0 || idx[i] >= a.Shape[i] {
			panic(fmt.Sprintf("ndarray: index %v out of range for shape %v", idx, a.Shape))
		}
		off += idx[i] * s
	}
	return off
}

// At returns the value at idx.
func (a *Array) At(idx ...int) float64 {
	return a.Data[a.offset(idx)]
}

// Set writes v at idx after casting it to the array's dtype.
func (a *Array) Set(v float64, idx ...int) {
	a.Data[a.offset(idx)] = a.DType.Cast(v)
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.Data)
}

// Bytes returns the accounted size of the array's data.
func (a *Array) Bytes() int64 {
	return int64(len(a.Data)) * int64(a.DType.Size())
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{
		Shape: slices.Clone(a.Shape),
		DType: a.DType,
		Data:  slices.Clone(a.Data),
	}
}

// Block copies region r out of a into a new array.
func (a *Array) Block(r Region) (*Array, error) {
	if err := r.Validate(a.Shape); err != nil {
		return nil, err
	}
	out := New(a.DType, r.Shape())
	CopyRegion(out, make([]int, len(r.Start)), a, r.Start, r.Shape())
	return out, nil
}

// SetBlock copies b into region r of a.
func (a *Array) SetBlock(r Region, b *Array) error {
	if err := r.Validate(a.Shape); err != nil {
		return err
	}
	if !slices.Equal(r.Shape(), b.Shape) {
		return fmt.Errorf("block shape %v does not fit region %v", b.Shape, r)
	}
	CopyRegion(a, r.Start, b, make([]int, len(b.Shape)), b.Shape)
	return nil
}

// CopyRegion copies a box of the given extent from src (starting at srcAt)
// into dst (starting at dstAt). The innermost dimension is copied as one
// contiguous run; outer dimensions are walked recursively. Bounds are the
// caller's responsibility.
func CopyRegion(dst *Array, dstAt []int, src *Array, srcAt []int, extent []int) {
	if len(extent) == 0 {
		dst.Data[0] = src.Data[0]
		return
	}
	for _, n := range extent {
		if n == 0 {
			return
		}
	}
	dstStrides, srcStrides := Strides(dst.Shape), Strides(src.Shape)
	last := len(extent) - 1

	var walk func(dim, dstOff, srcOff int)
	walk = func(dim, dstOff, srcOff int) {
		dstOff += dstAt[dim] * dstStrides[dim]
		srcOff += srcAt[dim] * srcStrides[dim]
		if dim == last {
			copy(dst.Data[dstOff:dstOff+extent[dim]], src.Data[srcOff:srcOff+extent[dim]])
			return
		}
		for i := 0; i < extent[dim]; i++ {
			walk(dim+1, dstOff+i*dstStrides[dim], srcOff+i*srcStrides[dim])
		}
	}
	walk(0, 0, 0)
}

// Equal reports whether a and b have the same shape, dtype and bit-identical values.
func Equal(a, b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.DType != b.DType || !slices.Equal(a.Shape, b.Shape) || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		if math.Float64bits(a.Data[i]) != math.Float64bits(b.Data[i]) {
			return false
		}
	}
	return true
}

// AllClose reports whether a and b have the same shape and every pair of
// values satisfies |x-y| <= atol + rtol*|y|. NaNs compare equal to NaNs.
func AllClose(a, b *Array, rtol, atol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !slices.Equal(a.Shape, b.Shape) || len(a.Data) != len(b.Data) {
		return false
	}
	for i, x := range a.Data {
		y := b.Data[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			if math.IsNaN(x) != math.IsNaN(y) {
				return false
			}
			continue
		}
		if math.Abs(x-y) > atol+rtol*math.Abs(y) {
			return false
		}
	}
	return true
}

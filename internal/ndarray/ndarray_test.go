// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ndarray

import (
	"math"
	"testing"

	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(t *testing.T, shape ...int) *Array {
	t.Helper()
	data := make([]float64, Size(shape))
	for i := range data {
		data[i] = float64(i)
	}
	a, err := FromValues(dtype.Float64, shape, data)
	require.NoError(t, err)
	return a
}

func TestFromValues(t *testing.T) {
	t.Parallel()

	_, err := FromValues(dtype.Float64, []int{2, 3}, []float64{1, 2})
	assert.ErrorContains(t, err, "needs 6 values")

	_, err = FromValues(dtype.Float64, []int{UnknownDim, 3}, nil)
	assert.ErrorContains(t, err, "not fully resolved")

	a, err := FromValues(dtype.Int32, []int{2}, []float64{1.7, -1.7})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -1}, a.Data)
}

func TestScalarShape(t *testing.T) {
	t.Parallel()
	a := New(dtype.Float64, nil)
	assert.Equal(t, 1, a.Len())
	a.Set(4.5)
	assert.Equal(t, 4.5, a.At())
}

func TestBlockAndSetBlock(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a := ramp(t, 4, 5)
	r := Region{Start: []int{1, 2}, Stop: []int{3, 5}}

	// --- Act ---
	b, err := a.Block(r)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, []int{2, 3}, b.Shape)
	assert.Equal(t, []float64{7, 8, 9, 12, 13, 14}, b.Data)

	out := New(dtype.Float64, []int{4, 5})
	require.NoError(t, out.SetBlock(r, b))
	assert.Equal(t, 7.0, out.At(1, 2))
	assert.Equal(t, 14.0, out.At(2, 4))
	assert.Equal(t, 0.0, out.At(0, 0))
}

func TestBlockOutOfBounds(t *testing.T) {
	t.Parallel()
	a := ramp(t, 2, 2)
	_, err := a.Block(Region{Start: []int{0, 1}, Stop: []int{2, 3}})
	assert.ErrorContains(t, err, "out of bounds")

	err = a.SetBlock(Full([]int{2, 2}), New(dtype.Float64, []int{1, 2}))
	assert.ErrorContains(t, err, "does not fit")
}

func TestReassembleFromBlocks(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := ramp(t, 3, 4, 5)
	dst := New(dtype.Float64, []int{3, 4, 5})

	// --- Act ---
	for i := 0; i < 3; i += 2 {
		for j := 0; j < 4; j += 3 {
			r := Region{
				Start: []int{i, j, 0},
				Stop:  []int{min(i+2, 3), min(j+3, 4), 5},
			}
			b, err := src.Block(r)
			require.NoError(t, err)
			require.NoError(t, dst.SetBlock(r, b))
		}
	}

	// --- Assert ---
	assert.True(t, Equal(src, dst))
}

func TestRegionIntersect(t *testing.T) {
	t.Parallel()
	a := Region{Start: []int{0, 0}, Stop: []int{4, 4}}
	b := Region{Start: []int{2, 3}, Stop: []int{6, 8}}

	got, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, Region{Start: []int{2, 3}, Stop: []int{4, 4}}, got)
	assert.Equal(t, Region{Start: []int{0, 1}, Stop: []int{2, 1}}, got.Translate([]int{2, 3}))

	_, ok = a.Intersect(Region{Start: []int{4, 0}, Stop: []int{5, 4}})
	assert.False(t, ok)
}

func TestEqualAndAllClose(t *testing.T) {
	t.Parallel()
	a := ramp(t, 2, 2)
	b := a.Clone()
	assert.True(t, Equal(a, b))

	b.Data[3] += 1e-12
	assert.False(t, Equal(a, b))
	assert.True(t, AllClose(a, b, 1e-9, 1e-9))

	b.Data[0] = math.NaN()
	assert.False(t, AllClose(a, b, 1e-9, 1e-9))
	a.Data[0] = math.NaN()
	assert.True(t, AllClose(a, b, 1e-9, 1e-9))
}

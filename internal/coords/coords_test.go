// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package coords

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Set {
	return Of(
		Coord{Name: "lat", Dim: "lat", Values: []float64{-10, 0, 10}},
		Coord{Name: "lon", Dim: "lon", Values: []float64{0, 90, 180, 270}},
		Coord{Name: "level", Values: []float64{850}},
	)
}

func TestEqualIsBitwise(t *testing.T) {
	t.Parallel()
	a := sample()
	b := a.Clone()
	assert.True(t, a.Equal(b))

	lat := b["lat"]
	lat.Values[0] = math.Nextafter(-10, 0)
	assert.False(t, a.Equal(b), "clone must not share backing arrays")
}

func TestKeepDropsReducedDims(t *testing.T) {
	t.Parallel()
	kept := sample().Keep([]string{"lat"})
	assert.Equal(t, []string{"lat", "level"}, kept.Names())
}

func TestSliceAndRename(t *testing.T) {
	t.Parallel()
	s := sample().Slice("lon", 1, 3)
	assert.Equal(t, []float64{90, 180}, s["lon"].Values)
	assert.Equal(t, []float64{-10, 0, 10}, s["lat"].Values)

	r := s.RenameDim("lat", "y")
	require.Contains(t, r, "y")
	assert.Equal(t, "y", r["y"].Dim)
	assert.NotContains(t, r, "lat")
}

func TestMerge(t *testing.T) {
	t.Parallel()
	merged, err := sample().Merge(Of(Coord{Name: "time", Dim: "time", Values: []float64{1, 2}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "level", "lon", "time"}, merged.Names())

	_, err = sample().Merge(Of(Coord{Name: "lat", Dim: "lat", Values: []float64{1, 2, 3}}))
	assert.ErrorContains(t, err, "coordinate 'lat' differs")
}

func TestOfPanicsOnDuplicates(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		Of(Coord{Name: "x"}, Coord{Name: "x"})
	})
}

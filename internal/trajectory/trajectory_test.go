// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package trajectory

import (
	"context"
	"math"
	"testing"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/materialize"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/provenance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(from, to, step float64) []float64 {
	var out []float64
	for v := from; v <= to; v += step {
		out = append(out, v)
	}
	return out
}

// fieldResult builds a lat/lon result whose values come from f.
func fieldResult(t *testing.T, id graph.ID, dims []string, lat, lon []float64, f func(lat, lon float64) float64) *materialize.Result {
	t.Helper()
	size := map[string]int{"lat": len(lat), "lon": len(lon)}
	shape := []int{size[dims[0]], size[dims[1]]}
	data := ndarray.New(dtype.Float64, shape)
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			la, lo := i, j
			if dims[0] == "lon" {
				la, lo = j, i
			}
			data.Data[i*shape[1]+j] = f(lat[la], lon[lo])
		}
	}
	return &materialize.Result{
		Node:  id,
		Dims:  dims,
		DType: dtype.Float64,
		Data:  data,
		Coords: coords.Of(
			coords.Coord{Name: "lat", Dim: "lat", Values: lat},
			coords.Coord{Name: "lon", Dim: "lon", Values: lon},
		),
		Attrs:  map[string]string{"units": "deg/step"},
		Ledger: provenance.New(provenance.Entry{Operation: "load", Kind: "source_load", Params: "location=mem://" + id.String()}),
	}
}

// rotation is a solid-body style velocity field on a 10x20 degree grid.
func rotation(t *testing.T) (u, v *materialize.Result) {
	t.Helper()
	lat, lon := span(-90, 90, 10), span(-180, 180, 20)
	rad := math.Pi / 180
	u = fieldResult(t, 0, []string{"lat", "lon"}, lat, lon, func(la, lo float64) float64 {
		return -math.Sin(la*rad) * math.Cos(lo*rad)
	})
	v = fieldResult(t, 1, []string{"lat", "lon"}, lat, lon, func(_, lo float64) float64 {
		return math.Sin(lo * rad)
	})
	return u, v
}

func TestRunOutputStructure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	u, v := rotation(t)

	// --- Act ---
	track, err := Run(context.Background(), "drift", Point{Lat: 40, Lon: -120}, u, v, 10)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 11, track.Len())
	assert.Len(t, track.Lat, 11)
	assert.Len(t, track.Lon, 11)
	assert.Equal(t, 10.0, track.Time[10])
	assert.Equal(t, Point{Lat: 40, Lon: -120}, track.Start)
	assert.Equal(t, []string{"load", "load", "trajectory"}, track.Ledger.Operations())
	assert.Equal(t, "deg/step", track.Attrs["units"])
	history := track.Attrs[materialize.HistoryAttr]
	assert.Contains(t, history, "Trajectory simulation started from lat=40, lon=-120")
	assert.Contains(t, history, "3: trajectory(lat=40, lon=-120, steps=10) <- [n0, n1]")
}

func TestRunStaysAtRest(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	u, v := rotation(t)

	// --- Act ---
	track, err := Run(context.Background(), "rest", Point{}, u, v, 1)

	// --- Assert ---
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, track.Lat, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0}, track.Lon, 1e-12)
}

func TestRunUsesNearestGridPoint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		dims    []string
		start   Point
		wantLat []float64
		wantLon []float64
	}{
		{
			name:    "lat-major field",
			dims:    []string{"lat", "lon"},
			start:   Point{Lat: 4, Lon: 14},
			wantLat: []float64{4, 14, 24},
			wantLon: []float64{14, 14, 14.1},
		},
		{
			name:    "lon-major field",
			dims:    []string{"lon", "lat"},
			start:   Point{Lat: 4, Lon: 14},
			wantLat: []float64{4, 14, 24},
			wantLon: []float64{14, 14, 14.1},
		},
		{
			name:    "outside the grid uses the edge",
			dims:    []string{"lat", "lon"},
			start:   Point{Lat: -50, Lon: 100},
			wantLat: []float64{-50, -30, -10},
			wantLon: []float64{100, 100, 100},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			lat, lon := []float64{0, 10, 20, 30}, []float64{0, 10, 20}
			// u is lat/100 and v is lon at every grid point.
			u := fieldResult(t, 0, tc.dims, lat, lon, func(la, _ float64) float64 { return la / 100 })
			v := fieldResult(t, 1, tc.dims, lat, lon, func(_, lo float64) float64 { return lo })

			// --- Act ---
			track, err := Run(context.Background(), "p", tc.start, u, v, 2)

			// --- Assert ---
			require.NoError(t, err)
			assert.InDeltaSlice(t, tc.wantLat, track.Lat, 1e-9)
			assert.InDeltaSlice(t, tc.wantLon, track.Lon, 1e-9)
		})
	}
}

func TestRunRejectsInvalidFields(t *testing.T) {
	t.Parallel()

	lat, lon := []float64{0, 10}, []float64{0, 10, 20}
	zero := func(float64, float64) float64 { return 0 }
	good := fieldResult(t, 0, []string{"lat", "lon"}, lat, lon, zero)
	otherGrid := fieldResult(t, 1, []string{"lat", "lon"}, lat, []float64{0, 5, 10}, zero)
	transposed := fieldResult(t, 1, []string{"lon", "lat"}, lat, lon, zero)
	noCoords := fieldResult(t, 1, []string{"lat", "lon"}, lat, lon, zero)
	noCoords.Coords = coords.Of(coords.Coord{Name: "lat", Dim: "lat", Values: lat})
	series := &materialize.Result{Node: 1, Dims: []string{"time"}, Data: ndarray.New(dtype.Float64, []int{3})}

	testCases := []struct {
		name    string
		v       *materialize.Result
		steps   int
		wantErr string
	}{
		{name: "missing data", v: &materialize.Result{Node: 1}, steps: 1, wantErr: "v has no data"},
		{name: "wrong dims", v: series, steps: 1, wantErr: "must span exactly the dims [lat lon]"},
		{name: "missing coordinate", v: noCoords, steps: 1, wantErr: "no coordinate for dim 'lon'"},
		{name: "different grids", v: otherGrid, steps: 1, wantErr: "different grids"},
		{name: "different dim order", v: transposed, steps: 1, wantErr: "different grids"},
		{name: "negative steps", v: good, steps: -1, wantErr: "steps must not be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			_, err := Run(context.Background(), "bad", Point{}, good, tc.v, tc.steps)

			// --- Assert ---
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	u, v := rotation(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// --- Act ---
	_, err := Run(ctx, "drift", Point{Lat: 10, Lon: 10}, u, v, 5)

	// --- Assert ---
	require.ErrorIs(t, err, context.Canceled)
}

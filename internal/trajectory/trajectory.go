// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package trajectory advects a single particle through a steady 2-D
// velocity field made of two materialized results, u (eastward) and v
// (northward), both spanning the lat and lon dims.
//
// Integration is forward Euler with a unit time step. The velocity at each
// position is the value at the nearest grid point; a position outside the
// grid takes the velocity of the nearest edge point.
package trajectory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/materialize"
	"github.com/specialistvlad/lineagegrid/internal/provenance"
	"github.com/zclconf/go-cty/cty"
)

const (
	// LatDim and LonDim name the dims a velocity field must span.
	LatDim = "lat"
	LonDim = "lon"
	// Operation is the ledger name of a trajectory run.
	Operation = "trajectory"
)

// ErrInvalidField is returned when u or v cannot serve as a velocity field.
var ErrInvalidField = errors.New("invalid velocity field")

// Point is a position in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Track is the simulated path. Lat and Lon have one value per time step,
// Time[i] == i, and Time[0] is the starting point.
type Track struct {
	Name  string
	Start Point
	Time  []float64
	Lat   []float64
	Lon   []float64
	// Attrs carries the attributes of u, with the run appended to
	// materialize.HistoryAttr.
	Attrs  map[string]string
	Ledger provenance.Ledger
}

// Len returns the number of recorded positions.
func (t *Track) Len() int {
	return len(t.Time)
}

// field is a velocity component indexed by the nearest grid point.
type field struct {
	lat, lon []float64
	// latStride and lonStride step through the row-major data.
	latStride, lonStride int
	data                 []float64
}

func newField(name string, r *materialize.Result) (*field, error) {
	if r == nil || r.Data == nil {
		return nil, fmt.Errorf("%w: %s has no data", ErrInvalidField, name)
	}
	if len(r.Dims) != 2 || !slices.Contains(r.Dims, LatDim) || !slices.Contains(r.Dims, LonDim) {
		return nil, fmt.Errorf("%w: %s must span exactly the dims [%s %s], got %v", ErrInvalidField, name, LatDim, LonDim, r.Dims)
	}
	lat, err := axisValues(name, r.Coords, LatDim, r.Data.Shape[slices.Index(r.Dims, LatDim)])
	if err != nil {
		return nil, err
	}
	lon, err := axisValues(name, r.Coords, LonDim, r.Data.Shape[slices.Index(r.Dims, LonDim)])
	if err != nil {
		return nil, err
	}
	f := &field{lat: lat, lon: lon, data: r.Data.Data}
	if r.Dims[0] == LatDim {
		f.latStride, f.lonStride = len(lon), 1
	} else {
		f.latStride, f.lonStride = 1, len(lat)
	}
	return f, nil
}

func axisValues(name string, set coords.Set, dim string, size int) ([]float64, error) {
	c, ok := set.ForDim(dim)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no coordinate for dim '%s'", ErrInvalidField, name, dim)
	}
	if size == 0 || len(c.Values) != size {
		return nil, fmt.Errorf("%w: %s coordinate '%s' has %d values for dim of size %d", ErrInvalidField, name, c.Name, len(c.Values), size)
	}
	return c.Values, nil
}

// at returns the value at the grid point nearest to p. NaN positions yield
// NaN.
func (f *field) at(p Point) float64 {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return math.NaN()
	}
	return f.data[nearest(f.lat, p.Lat)*f.latStride+nearest(f.lon, p.Lon)*f.lonStride]
}

// nearest returns the index of the value closest to x. Ties go to the
// lower index.
func nearest(values []float64, x float64) int {
	best, dist := 0, math.Inf(1)
	for i, v := range values {
		if d := math.Abs(v - x); d < dist {
			best, dist = i, d
		}
	}
	return best
}

// Run integrates steps forward Euler steps from start. u and v must share
// dims and coordinates.
func Run(ctx context.Context, name string, start Point, u, v *materialize.Result, steps int) (*Track, error) {
	logger := ctxlog.FromContext(ctx).With("trajectory", name)
	if steps < 0 {
		return nil, fmt.Errorf("trajectory '%s': steps must not be negative, got %d", name, steps)
	}
	fu, err := newField("u", u)
	if err != nil {
		return nil, fmt.Errorf("trajectory '%s': %w", name, err)
	}
	fv, err := newField("v", v)
	if err != nil {
		return nil, fmt.Errorf("trajectory '%s': %w", name, err)
	}
	if !slices.Equal(u.Dims, v.Dims) || !slices.Equal(fu.lat, fv.lat) || !slices.Equal(fu.lon, fv.lon) {
		return nil, fmt.Errorf("trajectory '%s': %w: u and v are on different grids", name, ErrInvalidField)
	}

	t := &Track{
		Name:  name,
		Start: start,
		Time:  make([]float64, steps+1),
		Lat:   make([]float64, steps+1),
		Lon:   make([]float64, steps+1),
	}
	pos := start
	t.Lat[0], t.Lon[0] = pos.Lat, pos.Lon
	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		du, dv := fu.at(pos), fv.at(pos)
		pos = Point{Lat: pos.Lat + dv, Lon: pos.Lon + du}
		t.Time[i], t.Lat[i], t.Lon[i] = float64(i), pos.Lat, pos.Lon
	}

	entry := provenance.Entry{
		Operation: Operation,
		Kind:      Operation,
		Inputs:    []string{u.Node.String(), v.Node.String()},
		Params: provenance.Digest(map[string]cty.Value{
			"lat":   cty.NumberFloatVal(start.Lat),
			"lon":   cty.NumberFloatVal(start.Lon),
			"steps": cty.NumberIntVal(int64(steps)),
		}),
	}
	t.Ledger = provenance.Merge([]provenance.Ledger{u.Ledger, v.Ledger}, entry)
	t.Attrs = maps.Clone(u.Attrs)
	if t.Attrs == nil {
		t.Attrs = map[string]string{}
	}
	started := fmt.Sprintf("Trajectory simulation started from lat=%v, lon=%v", start.Lat, start.Lon)
	t.Attrs[materialize.HistoryAttr] = provenance.AppendHistory(started, t.Ledger.Render())

	logger.Debug("Trajectory integrated.", "steps", steps, "end_lat", pos.Lat, "end_lon", pos.Lon)
	return t, nil
}

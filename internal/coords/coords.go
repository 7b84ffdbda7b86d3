// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package coords models the coordinate arrays attached to array dimensions
// (latitudes, longitudes, time steps, ...).
//
// Coordinates are compared bit for bit: a value that round-trips through a
// transformation must come back byte-identical, or it counts as modified.
package coords

import (
	"fmt"
	"math"
	"slices"
)

// Coord is a one-dimensional coordinate array labelling Dim. A coordinate
// with an empty Dim is a scalar coordinate carried as metadata only.
type Coord struct {
	Name   string
	Dim    string
	Values []float64
}

// Equal reports whether c and o label the same dimension with bit-identical values.
func (c Coord) Equal(o Coord) bool {
	if c.Name != o.Name || c.Dim != o.Dim || len(c.Values) != len(o.Values) {
		return false
	}
	for i := range c.Values {
		if math.Float64bits(c.Values[i]) != math.Float64bits(o.Values[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of c.
func (c Coord) Clone() Coord {
	return Coord{Name: c.Name, Dim: c.Dim, Values: slices.Clone(c.Values)}
}

// Set is a collection of coordinates keyed by name.
type Set map[string]Coord

// Of builds a Set from the given coordinates. It panics on duplicate names.
func Of(cs ...Coord) Set {
	s := make(Set, len(cs))
	for _, c := range cs {
		if _, exists := s[c.Name]; exists {
			panic(fmt.Sprintf("coordinate '%s' declared twice", c.Name))
		}
		s[c.Name] = c
	}
	return s
}

// Names returns the coordinate names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a deep copy of s.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for name, c := range s {
		out[name] = c.Clone()
	}
	return out
}

// Equal reports whether both sets hold the same coordinates with identical values.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for name, c := range s {
		other, ok := o[name]
		if !ok || !c.Equal(other) {
			return false
		}
	}
	return true
}

// ForDim returns the coordinate labelling dim, if any.
func (s Set) ForDim(dim string) (Coord, bool) {
	for _, name := range s.Names() {
		if c := s[name]; c.Dim == dim {
			return c, true
		}
	}
	return Coord{}, false
}

// Keep returns the coordinates whose dimension is in dims. Scalar
// coordinates are always kept.
func (s Set) Keep(dims []string) Set {
	out := make(Set, len(s))
	for name, c := range s {
		if c.Dim == "" || slices.Contains(dims, c.Dim) {
			out[name] = c.Clone()
		}
	}
	return out
}

// Slice returns a copy of s where every coordinate along dim is cut to
// the index range [start, stop).
func (s Set) Slice(dim string, start, stop int) Set {
	out := s.Clone()
	for name, c := range out {
		if c.Dim == dim {
			c.Values = slices.Clone(c.Values[start:stop])
			out[name] = c
		}
	}
	return out
}

// RenameDim returns a copy of s with dimension from renamed to to. A
// coordinate named after the dimension is renamed along with it.
func (s Set) RenameDim(from, to string) Set {
	out := make(Set, len(s))
	for name, c := range s {
		c = c.Clone()
		if c.Dim == from {
			c.Dim = to
			if c.Name == from {
				c.Name = to
				name = to
			}
		}
		out[name] = c
	}
	return out
}

// Merge returns the union of s and o. Coordinates present in both must be
// identical; otherwise the offending name is returned as an error.
func (s Set) Merge(o Set) (Set, error) {
	out := s.Clone()
	if out == nil {
		out = make(Set, len(o))
	}
	for name, c := range o {
		if existing, ok := out[name]; ok {
			if !existing.Equal(c) {
				return nil, fmt.Errorf("coordinate '%s' differs between inputs", name)
			}
			continue
		}
		out[name] = c.Clone()
	}
	return out, nil
}

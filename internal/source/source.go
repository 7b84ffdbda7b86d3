// Package source defines the loader contract through which datasets enter a
// graph, together with the built-in in-memory and synthetic loaders.
//
// A Source must report its shape, dtype and coordinates without reading
// array data; data is only read region by region once a graph is
// materialized.
package source

import (
	"context"
	"maps"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
)

// Meta is the declared metadata of a source array.
type Meta struct {
	// Name is the variable name, normalized through Normalize by Catalog.
	Name     string
	Location string
	Dims     []string
	// Shape may hold ndarray.UnknownDim for ragged dimensions.
	Shape  []int
	DType  dtype.DType
	Coords coords.Set
	Attrs  map[string]string
}

// Clone returns a deep copy of m.
func (m Meta) Clone() Meta {
	m.Dims = slices.Clone(m.Dims)
	m.Shape = slices.Clone(m.Shape)
	m.Coords = m.Coords.Clone()
	m.Attrs = maps.Clone(m.Attrs)
	return m
}

// Source is a lazily readable array.
type Source interface {
	// Meta returns the declared metadata. It must not read array data.
	Meta() Meta
	// ReadRegion reads the values inside r.
	ReadRegion(ctx context.Context, r ndarray.Region) (*ndarray.Array, error)
}

type renamed struct {
	Source
	meta Meta
}

func (r *renamed) Meta() Meta {
	return r.meta.Clone()
}

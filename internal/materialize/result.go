// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package materialize

import (
	"maps"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/provenance"
)

// HistoryAttr is the attribute the rendered ledger is appended to.
const HistoryAttr = "history"

// projectionAttrs are the attributes renderers need to place data on a map.
var projectionAttrs = []string{"crs", "grid_mapping", "units", "standard_name", "long_name"}

// Result is one materialized root.
type Result struct {
	Node   graph.ID
	Name   string
	Dims   []string
	DType  dtype.DType
	Data   *ndarray.Array
	Coords coords.Set
	// Attrs holds every attribute inherited from the sources, with the
	// rendered ledger appended to HistoryAttr.
	Attrs  map[string]string
	Ledger provenance.Ledger
}

// History returns the history attribute.
func (r *Result) History() string {
	return r.Attrs[HistoryAttr]
}

// RendererMetadata is what a plotting back-end needs besides the data.
type RendererMetadata struct {
	Dims   []string
	Coords coords.Set
	Attrs  map[string]string
}

// RendererMetadata returns the coordinates and projection-relevant
// attributes of r. The values are copies; renderers may keep them.
func (r *Result) RendererMetadata() RendererMetadata {
	attrs := make(map[string]string)
	for _, k := range projectionAttrs {
		if v, ok := r.Attrs[k]; ok {
			attrs[k] = v
		}
	}
	return RendererMetadata{
		Dims:   append([]string(nil), r.Dims...),
		Coords: r.Coords.Clone(),
		Attrs:  attrs,
	}
}

func newResult(n *graph.Node, data *ndarray.Array) *Result {
	attrs := maps.Clone(n.Attrs)
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs[HistoryAttr] = provenance.AppendHistory(attrs[HistoryAttr], n.Ledger.Render())

	name := n.Label
	if name == "" && n.Source != nil {
		name = n.Source.Meta().Name
	}
	if name == "" {
		name = n.ID.String()
	}
	return &Result{
		Node:   n.ID,
		Name:   name,
		Dims:   append([]string(nil), n.Dims...),
		DType:  n.DType,
		Data:   data,
		Coords: n.Coords.Clone(),
		Attrs:  attrs,
		Ledger: n.Ledger,
	}
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"github.com/specialistvlad/lineagegrid/internal/provenance"
	"github.com/specialistvlad/lineagegrid/internal/source"
)

// ID identifies a node within one Graph.
type ID int

// NoID is returned alongside errors.
const NoID ID = -1

func (id ID) String() string {
	return fmt.Sprintf("n%d", id)
}

// Window is the index range a slicing transform keeps along one axis.
type Window struct {
	Axis  int
	Start int
	Stop  int
}

// Node is one deferred operation. Nodes are immutable once added.
type Node struct {
	ID      ID
	Label   string
	Op      ops.Operation
	Parents []ID

	Dims   []string
	Shape  []int
	DType  dtype.DType
	Coords coords.Set
	Attrs  map[string]string

	// Delta is the provenance entry this node contributes; Ledger is the
	// full history merged from the parents plus Delta.
	Delta  provenance.Entry
	Ledger provenance.Ledger

	// Source is set on leaf nodes only.
	Source source.Source

	// Axes[i][k] is the axis of parent i feeding output axis k, or -1 when
	// parent i lacks that dimension.
	Axes       [][]int
	ReduceAxes []int
	Window     *Window
}

// Resolved reports whether every dimension size is known.
func (n *Node) Resolved() bool {
	return ndarray.Resolved(n.Shape)
}

// Bytes is the declared in-memory size of the node's full array, or -1 when
// a dimension size is unknown.
func (n *Node) Bytes() int64 {
	if !n.Resolved() {
		return -1
	}
	return int64(ndarray.Size(n.Shape)) * int64(n.DType.Size())
}

// Axis returns the position of dim in n.Dims, or -1.
func (n *Node) Axis(dim string) int {
	return slices.Index(n.Dims, dim)
}

func (n *Node) String() string {
	name := n.Op.Name
	if n.Label != "" {
		name = n.Label + ":" + name
	}
	return fmt.Sprintf("%s[%s %v%v %s]", n.ID, name, n.Dims, n.Shape, n.DType)
}

// inheritAttrs copies attributes from the parents; the first parent wins
// on conflicting keys.
func inheritAttrs(in []*Node) map[string]string {
	out := make(map[string]string)
	for i := len(in) - 1; i >= 0; i-- {
		for k, v := range in[i].Attrs {
			out[k] = v
		}
	}
	return out
}

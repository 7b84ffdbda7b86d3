// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/lineagegrid/internal/dtype"
)

var (
	// ErrGraphBusy is returned when composition is attempted while the
	// graph is being materialized.
	ErrGraphBusy = errors.New("graph is being materialized")
	// ErrUnknownNode is returned for IDs that do not belong to the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrMultiDimReduction is returned when a reduction names more than one
	// dimension and the engine is configured to refuse that.
	ErrMultiDimReduction = errors.New("reduction over more than one dimension is disabled")
)

// ShapeMismatchError reports inputs whose shapes or dims cannot be combined
// by an operation.
type ShapeMismatchError struct {
	Op     string
	Dims   [][]string
	Shapes [][]int
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	parts := make([]string, len(e.Shapes))
	for i := range e.Shapes {
		var dims []string
		if i < len(e.Dims) {
			dims = e.Dims[i]
		}
		parts[i] = fmt.Sprintf("%v%v", dims, e.Shapes[i])
	}
	return fmt.Sprintf("shape mismatch in '%s': %s (inputs %s)", e.Op, e.Reason, strings.Join(parts, ", "))
}

// DtypeMismatchError reports input dtypes an operation does not accept.
type DtypeMismatchError struct {
	Op     string
	DTypes []dtype.DType
}

func (e *DtypeMismatchError) Error() string {
	return fmt.Sprintf("dtype mismatch in '%s': inputs %v", e.Op, e.DTypes)
}

// CycleError reports a dependency cycle. Path starts and ends on the same
// node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "cycle detected"
	}
	return fmt.Sprintf("cycle detected involving node '%s': %s", e.Path[0], strings.Join(e.Path, " -> "))
}

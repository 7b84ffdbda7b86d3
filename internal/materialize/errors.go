// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package materialize

import (
	"fmt"

	"github.com/specialistvlad/lineagegrid/internal/graph"
)

// MaterializationError reports the chunk whose evaluation aborted a
// materialization. Node is graph.NoID when the run was cancelled before a
// specific chunk was picked up.
type MaterializationError struct {
	Node  graph.ID
	Op    string
	Chunk []int
	Err   error
}

func (e *MaterializationError) Error() string {
	if e.Node == graph.NoID {
		return fmt.Sprintf("materialization aborted: %v", e.Err)
	}
	return fmt.Sprintf("materialization failed at node %s (%s) chunk %v: %v", e.Node, e.Op, e.Chunk, e.Err)
}

func (e *MaterializationError) Unwrap() error {
	return e.Err
}

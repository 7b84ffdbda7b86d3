// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package ops is the closed catalog of operations a pipeline may compose.
//
// Every operation belongs to exactly one Kind. The kind selects the shape
// inference rule applied at composition time and the chunk evaluation rule
// applied at materialization time; an operation whose kind is not one of the
// declared kinds cannot be registered.
package ops

import "fmt"

// Kind is the closed set of operation variants.
type Kind int

const (
	KindInvalid Kind = iota
	// SourceLoad creates a leaf node from a source loader.
	SourceLoad
	// ElementwiseMap applies a per-element function over inputs sharing dims.
	ElementwiseMap
	// Reduction folds one or more dimensions away.
	Reduction
	// BroadcastCombine combines inputs over the union of their dims.
	BroadcastCombine
	// CoordinateTransform changes dims or coordinates explicitly.
	CoordinateTransform
)

var kindNames = map[Kind]string{
	SourceLoad:          "source-load",
	ElementwiseMap:      "elementwise-map",
	Reduction:           "reduction",
	BroadcastCombine:    "broadcast-combine",
	CoordinateTransform: "coordinate-transform",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ops

// Transforms registers the coordinate-transform operations. These are the
// only operations allowed to change or drop coordinates.
type Transforms struct{}

func (Transforms) Register(r *Registry) {
	r.Register(&Definition{
		Name: "isel", Kind: CoordinateTransform, MinInputs: 1, MaxInputs: 1,
		Required: []string{"dim", "start", "stop"},
		DType:    Preserve,
	})
	r.Register(&Definition{
		Name: "sel", Kind: CoordinateTransform, MinInputs: 1, MaxInputs: 1,
		Required: []string{"dim", "min", "max"},
		DType:    Preserve,
	})
	r.Register(&Definition{
		Name: "rename", Kind: CoordinateTransform, MinInputs: 1, MaxInputs: 1,
		Required: []string{"from", "to"},
		DType:    Preserve,
	})
	r.Register(&Definition{
		Name: "drop_coord", Kind: CoordinateTransform, MinInputs: 1, MaxInputs: 1,
		Required: []string{"name"},
		DType:    Preserve,
	})
}

// Sources registers the source-load operations: "load" for data opened
// through a source loader and "literal" for arrays built by the caller.
type Sources struct{}

func (Sources) Register(r *Registry) {
	r.Register(&Definition{
		Name: "load", Kind: SourceLoad, MinInputs: 0, MaxInputs: 0,
		Required: []string{"location"},
		Optional: []string{"variable"},
		DType:    Preserve,
	})
	r.Register(&Definition{
		Name: "literal", Kind: SourceLoad, MinInputs: 0, MaxInputs: 0,
		DType: Preserve,
	})
}

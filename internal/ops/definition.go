// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ops

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/dtype"
)

// Func is a per-element function over one value from every input.
type Func func(args []float64) float64

// Reducer folds values along reduced dimensions in two phases: Step
// accumulates values of one chunk into a partial, Merge combines partials of
// different chunks, Finalize turns the merged partial into the result given
// the number of reduced elements.
type Reducer struct {
	Identity float64
	Step     func(acc, v float64) float64
	Merge    func(a, b float64) float64
	Finalize func(acc float64, count int) float64
}

// Definition describes a registered operation.
type Definition struct {
	Name string
	Kind Kind
	// MinInputs and MaxInputs bound the number of parent nodes.
	MinInputs int
	MaxInputs int
	Required  []string
	Optional  []string
	// DType derives the result dtype from the input dtypes. The second
	// return value is false when the inputs are incompatible.
	DType func(op Operation, in []dtype.DType) (dtype.DType, bool)
	// Elementwise builds the element function of map and combine operations.
	Elementwise func(op Operation) (Func, error)
	Reducer     *Reducer
	// Check validates parameter values the element function does not read.
	Check func(op Operation) error
}

// CheckParams verifies that required parameters are present and that no
// unknown parameter is set.
func (d *Definition) CheckParams(op Operation) error {
	for _, name := range d.Required {
		if !op.Has(name) {
			return fmt.Errorf("operation '%s': missing parameter '%s'", d.Name, name)
		}
	}
	for name := range op.Params {
		if !slices.Contains(d.Required, name) && !slices.Contains(d.Optional, name) {
			return fmt.Errorf("operation '%s': unsupported parameter '%s'", d.Name, name)
		}
	}
	return nil
}

// Validate checks parameter types and values. It builds the element
// function once, so every error a kernel would raise at materialization is
// raised here instead.
func (d *Definition) Validate(op Operation) error {
	if err := d.CheckParams(op); err != nil {
		return err
	}
	if d.Check != nil {
		if err := d.Check(op); err != nil {
			return err
		}
	}
	if d.Elementwise != nil {
		if _, err := d.Elementwise(op); err != nil {
			return err
		}
	}
	return nil
}

// CheckArity verifies the number of inputs.
func (d *Definition) CheckArity(n int) error {
	if n < d.MinInputs || (d.MaxInputs >= 0 && n > d.MaxInputs) {
		if d.MinInputs == d.MaxInputs {
			return fmt.Errorf("operation '%s' takes %d input(s), got %d", d.Name, d.MinInputs, n)
		}
		return fmt.Errorf("operation '%s' takes %d to %d inputs, got %d", d.Name, d.MinInputs, d.MaxInputs, n)
	}
	return nil
}

func promoteAll(in []dtype.DType) (dtype.DType, bool) {
	if len(in) == 0 {
		return dtype.Invalid, false
	}
	out := in[0]
	for _, d := range in[1:] {
		var ok bool
		if out, ok = dtype.Promote(out, d); !ok {
			return dtype.Invalid, false
		}
	}
	return out, out.Valid()
}

// Numeric promotes the inputs and rejects non-numeric results.
func Numeric(_ Operation, in []dtype.DType) (dtype.DType, bool) {
	out, ok := promoteAll(in)
	if !ok || !out.IsNumeric() {
		return dtype.Invalid, false
	}
	return out, true
}

// Floating promotes the inputs and widens integers to float64.
func Floating(op Operation, in []dtype.DType) (dtype.DType, bool) {
	out, ok := Numeric(op, in)
	if !ok {
		return dtype.Invalid, false
	}
	if !out.IsFloat() {
		return dtype.Float64, true
	}
	return out, true
}

// Preserve keeps the dtype of the single input.
func Preserve(_ Operation, in []dtype.DType) (dtype.DType, bool) {
	if len(in) != 1 || !in[0].Valid() {
		return dtype.Invalid, false
	}
	return in[0], true
}

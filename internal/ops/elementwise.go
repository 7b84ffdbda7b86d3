// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ops

import (
	"fmt"
	"math"

	"github.com/specialistvlad/lineagegrid/internal/dtype"
)

// Elementwise registers the elementwise-map operations.
type Elementwise struct{}

func unary(f func(float64) float64) func(Operation) (Func, error) {
	return func(Operation) (Func, error) {
		return func(args []float64) float64 { return f(args[0]) }, nil
	}
}

func binary(f func(a, b float64) float64) func(Operation) (Func, error) {
	return func(Operation) (Func, error) {
		return func(args []float64) float64 { return f(args[0], args[1]) }, nil
	}
}

func (Elementwise) Register(r *Registry) {
	r.Register(&Definition{
		Name: "scale", Kind: ElementwiseMap, MinInputs: 1, MaxInputs: 1,
		Required: []string{"factor"},
		DType:    Numeric,
		Elementwise: func(op Operation) (Func, error) {
			factor, err := op.Number("factor")
			if err != nil {
				return nil, err
			}
			return func(args []float64) float64 { return args[0] * factor }, nil
		},
	})
	r.Register(&Definition{
		Name: "offset", Kind: ElementwiseMap, MinInputs: 1, MaxInputs: 1,
		Required: []string{"value"},
		DType:    Numeric,
		Elementwise: func(op Operation) (Func, error) {
			value, err := op.Number("value")
			if err != nil {
				return nil, err
			}
			return func(args []float64) float64 { return args[0] + value }, nil
		},
	})
	r.Register(&Definition{
		Name: "abs", Kind: ElementwiseMap, MinInputs: 1, MaxInputs: 1,
		DType: Numeric, Elementwise: unary(math.Abs),
	})
	r.Register(&Definition{
		Name: "negate", Kind: ElementwiseMap, MinInputs: 1, MaxInputs: 1,
		DType: Numeric, Elementwise: unary(func(v float64) float64 { return -v }),
	})
	r.Register(&Definition{
		Name: "sqrt", Kind: ElementwiseMap, MinInputs: 1, MaxInputs: 1,
		DType: Floating, Elementwise: unary(math.Sqrt),
	})
	r.Register(&Definition{
		Name: "clip", Kind: ElementwiseMap, MinInputs: 1, MaxInputs: 1,
		Required: []string{"min", "max"},
		DType:    Numeric,
		Elementwise: func(op Operation) (Func, error) {
			lo, err := op.Number("min")
			if err != nil {
				return nil, err
			}
			hi, err := op.Number("max")
			if err != nil {
				return nil, err
			}
			if lo > hi {
				return nil, fmt.Errorf("operation 'clip': min %v is greater than max %v", lo, hi)
			}
			return func(args []float64) float64 { return math.Min(math.Max(args[0], lo), hi) }, nil
		},
	})
	r.Register(&Definition{
		Name: "cast", Kind: ElementwiseMap, MinInputs: 1, MaxInputs: 1,
		Required: []string{"dtype"},
		DType: func(op Operation, in []dtype.DType) (dtype.DType, bool) {
			name, err := op.Str("dtype")
			if err != nil || len(in) != 1 {
				return dtype.Invalid, false
			}
			dt, err := dtype.Parse(name)
			return dt, err == nil
		},
		Check: func(op Operation) error {
			name, err := op.Str("dtype")
			if err != nil {
				return err
			}
			if _, err := dtype.Parse(name); err != nil {
				return fmt.Errorf("operation 'cast': %w", err)
			}
			return nil
		},
		Elementwise: unary(func(v float64) float64 { return v }),
	})

	r.Register(&Definition{
		Name: "add", Kind: ElementwiseMap, MinInputs: 2, MaxInputs: 2,
		DType: Numeric, Elementwise: binary(func(a, b float64) float64 { return a + b }),
	})
	r.Register(&Definition{
		Name: "subtract", Kind: ElementwiseMap, MinInputs: 2, MaxInputs: 2,
		DType: Numeric, Elementwise: binary(func(a, b float64) float64 { return a - b }),
	})
	r.Register(&Definition{
		Name: "multiply", Kind: ElementwiseMap, MinInputs: 2, MaxInputs: 2,
		DType: Numeric, Elementwise: binary(func(a, b float64) float64 { return a * b }),
	})
	r.Register(&Definition{
		Name: "divide", Kind: ElementwiseMap, MinInputs: 2, MaxInputs: 2,
		DType: Floating, Elementwise: binary(func(a, b float64) float64 { return a / b }),
	})
}

// Combines registers the broadcast-combine operations.
type Combines struct{}

func (Combines) Register(r *Registry) {
	combine := func(name string, rule func(Operation, []dtype.DType) (dtype.DType, bool), f func(a, b float64) float64) {
		r.Register(&Definition{
			Name: name, Kind: BroadcastCombine, MinInputs: 2, MaxInputs: 2,
			DType: rule, Elementwise: binary(f),
		})
	}
	combine("broadcast_add", Numeric, func(a, b float64) float64 { return a + b })
	combine("broadcast_subtract", Numeric, func(a, b float64) float64 { return a - b })
	combine("broadcast_multiply", Numeric, func(a, b float64) float64 { return a * b })
	combine("broadcast_divide", Floating, func(a, b float64) float64 { return a / b })
	combine("broadcast_max", Numeric, math.Max)
	combine("broadcast_min", Numeric, math.Min)
}

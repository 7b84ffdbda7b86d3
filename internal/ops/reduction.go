// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ops

import "math"

// Reductions registers the reduction operations. Each accepts either
// "dims" (dimension names) or "axis" (dimension positions); with neither,
// every dimension is reduced.
type Reductions struct{}

func (Reductions) Register(r *Registry) {
	sum := func(a, b float64) float64 { return a + b }
	keep := func(acc float64, _ int) float64 { return acc }

	r.Register(&Definition{
		Name: "reduce_sum", Kind: Reduction, MinInputs: 1, MaxInputs: 1,
		Optional: []string{"dims", "axis"}, DType: Numeric,
		Reducer: &Reducer{Identity: 0, Step: sum, Merge: sum, Finalize: keep},
	})
	r.Register(&Definition{
		Name: "reduce_mean", Kind: Reduction, MinInputs: 1, MaxInputs: 1,
		Optional: []string{"dims", "axis"}, DType: Floating,
		Reducer: &Reducer{
			Identity: 0, Step: sum, Merge: sum,
			Finalize: func(acc float64, n int) float64 { return acc / float64(n) },
		},
	})
	r.Register(&Definition{
		Name: "reduce_max", Kind: Reduction, MinInputs: 1, MaxInputs: 1,
		Optional: []string{"dims", "axis"}, DType: Numeric,
		Reducer: &Reducer{Identity: math.Inf(-1), Step: math.Max, Merge: math.Max, Finalize: keep},
	})
	r.Register(&Definition{
		Name: "reduce_min", Kind: Reduction, MinInputs: 1, MaxInputs: 1,
		Optional: []string{"dims", "axis"}, DType: Numeric,
		Reducer: &Reducer{Identity: math.Inf(1), Step: math.Min, Merge: math.Min, Finalize: keep},
	})
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dtype defines the closed set of element types an array may declare,
// together with their byte sizes and promotion rules.
package dtype

import (
	"fmt"
	"math"
	"strings"
)

// DType is the declared element type of an array.
type DType int

const (
	// Invalid is the zero value and never a valid declaration.
	Invalid DType = iota
	Bool
	Int32
	Int64
	Float32
	Float64
)

var names = map[DType]string{
	Bool:    "bool",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
}

// String returns the canonical lowercase name of the dtype.
func (d DType) String() string {
	if name, ok := names[d]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Size returns the number of bytes a single element occupies.
func (d DType) Size() int {
	switch d {
	case Bool:
		return 1
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether d is one of the declared dtypes.
func (d DType) Valid() bool {
	_, ok := names[d]
	return ok
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// IsNumeric reports whether arithmetic is defined for d.
func (d DType) IsNumeric() bool {
	return d == Int32 || d == Int64 || d.IsFloat()
}

// Parse converts a dtype name such as "float64" into a DType.
func Parse(s string) (DType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range names {
		if name == s {
			return d, nil
		}
	}
	return Invalid, fmt.Errorf("unknown dtype %q", s)
}

// Promote returns the dtype that results from combining a and b in an
// arithmetic operation. The second return value is false when the pair has
// no common arithmetic type (bool mixed with numbers, or invalid inputs).
func Promote(a, b DType) (DType, bool) {
	if !a.Valid() || !b.Valid() {
		return Invalid, false
	}
	if a == b {
		return a, true
	}
	if a == Bool || b == Bool {
		return Invalid, false
	}
	switch {
	case a.IsFloat() && b.IsFloat():
		return Float64, true
	case a.IsFloat() || b.IsFloat():
		return Float64, true
	default:
		return Int64, true
	}
}

// Cast converts v into the value space of d. Integer types truncate toward
// zero, float32 rounds through single precision and bool maps to 0 or 1.
func (d DType) Cast(v float64) float64 {
	switch d {
	case Bool:
		if v != 0 && !math.IsNaN(v) {
			return 1
		}
		return 0
	case Int32:
		return float64(int32(math.Trunc(v)))
	case Int64:
		return float64(int64(math.Trunc(v)))
	case Float32:
		return float64(float32(v))
	default:
		return v
	}
}

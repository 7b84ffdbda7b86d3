// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ops

import (
	"fmt"
	"maps"
	"math"

	"github.com/specialistvlad/lineagegrid/internal/provenance"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Operation is one configured application of a registered operation.
type Operation struct {
	Name   string
	Kind   Kind
	Params map[string]cty.Value
}

// Digest renders the parameters for the provenance trail.
func (o Operation) Digest() string {
	return provenance.Digest(o.Params)
}

// Clone returns a copy with its own parameter map.
func (o Operation) Clone() Operation {
	o.Params = maps.Clone(o.Params)
	return o
}

// Has reports whether the parameter is set and not null.
func (o Operation) Has(name string) bool {
	v, ok := o.Params[name]
	return ok && !v.IsNull()
}

func (o Operation) param(name string) (cty.Value, error) {
	v, ok := o.Params[name]
	if !ok || v.IsNull() {
		return cty.NilVal, fmt.Errorf("operation '%s': missing parameter '%s'", o.Name, name)
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("operation '%s': parameter '%s' is not known", o.Name, name)
	}
	return v, nil
}

// Number returns a numeric parameter.
func (o Operation) Number(name string) (float64, error) {
	v, err := o.param(name)
	if err != nil {
		return 0, err
	}
	num, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("operation '%s': parameter '%s' must be a number: %w", o.Name, name, err)
	}
	var f float64
	if err := gocty.FromCtyValue(num, &f); err != nil {
		return 0, fmt.Errorf("operation '%s': parameter '%s': %w", o.Name, name, err)
	}
	return f, nil
}

// Int returns an integer parameter.
func (o Operation) Int(name string) (int, error) {
	f, err := o.Number(name)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("operation '%s': parameter '%s' must be a whole number, got %v", o.Name, name, f)
	}
	return int(f), nil
}

// Str returns a string parameter.
func (o Operation) Str(name string) (string, error) {
	v, err := o.param(name)
	if err != nil {
		return "", err
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("operation '%s': parameter '%s' must be a string: %w", o.Name, name, err)
	}
	return s.AsString(), nil
}

// Strings returns a list-of-strings parameter. A single string is accepted
// as a one-element list.
func (o Operation) Strings(name string) ([]string, error) {
	v, err := o.param(name)
	if err != nil {
		return nil, err
	}
	if v.Type() == cty.String {
		return []string{v.AsString()}, nil
	}
	list, err := convert.Convert(v, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("operation '%s': parameter '%s' must be a list of strings: %w", o.Name, name, err)
	}
	var out []string
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, fmt.Errorf("operation '%s': parameter '%s': %w", o.Name, name, err)
	}
	return out, nil
}

// Ints returns a list-of-integers parameter. A single number is accepted as
// a one-element list.
func (o Operation) Ints(name string) ([]int, error) {
	v, err := o.param(name)
	if err != nil {
		return nil, err
	}
	if v.Type() == cty.Number {
		n, err := o.Int(name)
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	}
	list, err := convert.Convert(v, cty.List(cty.Number))
	if err != nil {
		return nil, fmt.Errorf("operation '%s': parameter '%s' must be a list of numbers: %w", o.Name, name, err)
	}
	var out []int
	if err := gocty.FromCtyValue(list, &out); err != nil {
		return nil, fmt.Errorf("operation '%s': parameter '%s': %w", o.Name, name, err)
	}
	return out, nil
}

// Params builds a parameter map from alternating names and Go values. Values
// may be cty.Value or any type gocty can infer. It panics on malformed input,
// which is a programmer error.
func Params(kv ...any) map[string]cty.Value {
	if len(kv)%2 != 0 {
		panic("ops.Params: odd number of arguments")
	}
	out := make(map[string]cty.Value, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("ops.Params: parameter name %v is not a string", kv[i]))
		}
		if v, ok := kv[i+1].(cty.Value); ok {
			out[name] = v
			continue
		}
		ty, err := gocty.ImpliedType(kv[i+1])
		if err != nil {
			panic(fmt.Sprintf("ops.Params: parameter '%s': %v", name, err))
		}
		v, err := gocty.ToCtyValue(kv[i+1], ty)
		if err != nil {
			panic(fmt.Sprintf("ops.Params: parameter '%s': %v", name, err))
		}
		out[name] = v
	}
	return out
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Step structure, the unit of composition in a
// pipeline. A step names a catalog operation (its first label) and an
// instance name (its second label), and becomes one node of the lazy graph.
//
// Inputs and depends_on stay raw hcl.Expression values: they are resolved
// into graph edges by the builder, once every file of the workspace has been
// read. Params are literal values and are evaluated here.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/lineagegrid/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
)

// Step is the format-agnostic representation of a `step` block.
type Step struct {
	Op            string
	Name          string
	FSInformation *FSInfo
	DeclRange     hcl.Range

	// Input holds a single reference, Inputs a list of them. At most one
	// is set.
	Input     hcl.Expression
	Inputs    hcl.Expression
	Params    hcl.Expression
	DependsOn hcl.Expression

	Expressions *hclutil.Container
}

// NewStep creates a new, empty Step struct.
func NewStep() *Step {
	return &Step{
		Expressions: hclutil.NewContainer(),
	}
}

// Address returns the reference form of the step, step.<op>.<name>.
func (s *Step) Address() string {
	return fmt.Sprintf("step.%s.%s", s.Op, s.Name)
}

var stepBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "input"},
		{Name: "inputs"},
		{Name: "params"},
		{Name: "depends_on"},
	},
}

// attributeParsers maps step attributes to the field they populate.
var attributeParsers = []struct {
	Name   string
	Setter func(s *Step, expr hcl.Expression)
}{
	{"input", func(s *Step, e hcl.Expression) { s.Input = e }},
	{"inputs", func(s *Step, e hcl.Expression) { s.Inputs = e }},
	{"params", func(s *Step, e hcl.Expression) { s.Params = e }},
}

// NewStepFromHCL creates a new Step from a parsed HCL step block.
func NewStepFromHCL(block *hcl.Block, filePath string) (*Step, hcl.Diagnostics) {
	step := NewStep()
	step.Op = block.Labels[0]
	step.Name = block.Labels[1]
	step.FSInformation = NewFSInfo(filePath)
	step.DeclRange = block.DefRange

	var allDiags hcl.Diagnostics
	content, contentDiags := block.Body.Content(stepBodySchema)
	allDiags = append(allDiags, contentDiags...)
	if contentDiags.HasErrors() {
		return nil, allDiags
	}

	for _, parser := range attributeParsers {
		if attr, exists := content.Attributes[parser.Name]; exists {
			parser.Setter(step, attr.Expr)
			step.Expressions.Add(attr.Expr)
		}
	}

	depsExpr, depDiags := parseDependsOn(content.Attributes)
	allDiags = append(allDiags, depDiags...)
	step.DependsOn = depsExpr
	step.Expressions.Add(depsExpr)

	if step.Input != nil && step.Inputs != nil {
		allDiags = append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Conflicting input arguments",
			Detail:   "A step may set either \"input\" or \"inputs\", not both.",
			Subject:  step.Inputs.Range().Ptr(),
		})
	}
	if fns := step.Expressions.CalledFunctions(); len(fns) > 0 {
		allDiags = append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Function calls are not supported",
			Detail:   fmt.Sprintf("Step %s calls %v; pipeline values must be literals or references.", step.Address(), fns),
			Subject:  block.DefRange.Ptr(),
		})
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	return step, allDiags
}

// InputAddresses returns the step's input references in declaration order.
func (s *Step) InputAddresses() ([]hclutil.Address, hcl.Diagnostics) {
	switch {
	case s.Input != nil:
		addr, diags := referenceOf(s.Input, "input")
		if diags.HasErrors() {
			return nil, diags
		}
		return []hclutil.Address{addr}, diags
	case s.Inputs != nil:
		return referenceList(s.Inputs, "inputs")
	default:
		return nil, nil
	}
}

// DependsOnAddresses returns the explicit ordering references of the step.
func (s *Step) DependsOnAddresses() ([]hclutil.Address, hcl.Diagnostics) {
	if s.DependsOn == nil {
		return nil, nil
	}
	return referenceList(s.DependsOn, "depends_on")
}

// ParamValues evaluates the params object. A step without params returns
// an empty map.
func (s *Step) ParamValues() (map[string]cty.Value, hcl.Diagnostics) {
	if s.Params == nil {
		return map[string]cty.Value{}, nil
	}
	val, diags := s.Params.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() || !(val.Type().IsObjectType() || val.Type().IsMapType()) {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid params value",
			Detail:   "The \"params\" argument must be an object of literal values.",
			Subject:  s.Params.Range().Ptr(),
		})
	}
	if val.LengthInt() == 0 {
		return map[string]cty.Value{}, diags
	}
	return val.AsValueMap(), diags
}

func referenceOf(expr hcl.Expression, arg string) (hclutil.Address, hcl.Diagnostics) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if !diags.HasErrors() {
		if addr, ok := hclutil.ParseAddress(traversal); ok && addr.Kind != "output" {
			return addr, nil
		}
	}
	return hclutil.Address{}, hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid reference",
		Detail:   fmt.Sprintf("Each %q entry must be a reference like source.<name> or step.<op>.<name>.", arg),
		Subject:  expr.Range().Ptr(),
	}}
}

func referenceList(expr hcl.Expression, arg string) ([]hclutil.Address, hcl.Diagnostics) {
	items, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	out := make([]hclutil.Address, 0, len(items))
	for _, item := range items {
		addr, itemDiags := referenceOf(item, arg)
		diags = append(diags, itemDiags...)
		if !itemDiags.HasErrors() {
			out = append(out, addr)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return out, diags
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/lineagegrid/internal/hclutil"
)

// Output is the format-agnostic representation of an `output` block. Its
// value names the node to materialize.
type Output struct {
	Name          string
	Value         hcl.Expression
	FSInformation *FSInfo
	DeclRange     hcl.Range
}

var outputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "value", Required: true},
	},
}

// NewOutputFromHCL creates an Output from a parsed output block.
func NewOutputFromHCL(block *hcl.Block, filePath string) (*Output, hcl.Diagnostics) {
	content, diags := block.Body.Content(outputBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}
	return &Output{
		Name:          block.Labels[0],
		Value:         content.Attributes["value"].Expr,
		FSInformation: NewFSInfo(filePath),
		DeclRange:     block.DefRange,
	}, diags
}

// Target returns the source or step the output refers to.
func (o *Output) Target() (hclutil.Address, hcl.Diagnostics) {
	return referenceOf(o.Value, "value")
}

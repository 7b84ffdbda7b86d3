// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/lineagegrid/internal/hclutil"
)

// Source is the format-agnostic representation of a `source` block.
type Source struct {
	Name          string
	Location      string
	Variable      string
	FSInformation *FSInfo
	DeclRange     hcl.Range
}

// Address returns the reference form of the source, source.<name>.
func (s *Source) Address() string {
	return "source." + s.Name
}

var sourceBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "location", Required: true},
		{Name: "variable"},
	},
}

// NewSourceFromHCL creates a Source from a parsed source block.
func NewSourceFromHCL(block *hcl.Block, filePath string) (*Source, hcl.Diagnostics) {
	content, diags := block.Body.Content(sourceBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	src := &Source{
		Name:          block.Labels[0],
		FSInformation: NewFSInfo(filePath),
		DeclRange:     block.DefRange,
	}
	var attrDiags hcl.Diagnostics
	src.Location, attrDiags = hclutil.StringAttr(content.Attributes, "location", true, block.DefRange)
	diags = append(diags, attrDiags...)
	src.Variable, attrDiags = hclutil.StringAttr(content.Attributes, "variable", false, block.DefRange)
	diags = append(diags, attrDiags...)
	if diags.HasErrors() {
		return nil, diags
	}
	return src, diags
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/lineagegrid/internal/hclutil"
)

// Trajectory is the format-agnostic representation of a `trajectory`
// block: a particle advected through the velocity field formed by the u
// and v references, starting at start, for steps steps.
type Trajectory struct {
	Name          string
	U             hcl.Expression
	V             hcl.Expression
	Start         Position
	Steps         int
	FSInformation *FSInfo
	DeclRange     hcl.Range
}

// Position is a lat/lon pair in degrees.
type Position struct {
	Lat float64 `cty:"lat"`
	Lon float64 `cty:"lon"`
}

var trajectoryBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "u", Required: true},
		{Name: "v", Required: true},
		{Name: "start", Required: true},
		{Name: "steps", Required: true},
	},
}

// NewTrajectoryFromHCL creates a Trajectory from a parsed trajectory block.
func NewTrajectoryFromHCL(block *hcl.Block, filePath string) (*Trajectory, hcl.Diagnostics) {
	content, diags := block.Body.Content(trajectoryBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}
	t := &Trajectory{
		Name:          block.Labels[0],
		U:             content.Attributes["u"].Expr,
		V:             content.Attributes["v"].Expr,
		FSInformation: NewFSInfo(filePath),
		DeclRange:     block.DefRange,
	}
	diags = append(diags, gohcl.DecodeExpression(content.Attributes["start"].Expr, nil, &t.Start)...)
	diags = append(diags, gohcl.DecodeExpression(content.Attributes["steps"].Expr, nil, &t.Steps)...)
	if !diags.HasErrors() && t.Steps < 0 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid steps value",
			Detail:   fmt.Sprintf("The \"steps\" argument must not be negative, got %d.", t.Steps),
			Subject:  content.Attributes["steps"].Expr.Range().Ptr(),
		})
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return t, diags
}

// Address returns the reference form of the block, trajectory.<name>.
func (t *Trajectory) Address() string {
	return "trajectory." + t.Name
}

// Fields returns the u and v references.
func (t *Trajectory) Fields() (u, v hclutil.Address, diags hcl.Diagnostics) {
	u, diags = referenceOf(t.U, "u")
	vv, vDiags := referenceOf(t.V, "v")
	return u, vv, append(diags, vDiags...)
}

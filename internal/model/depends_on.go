// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file contains the parsing and validation logic for the `depends_on`
// attribute. It adds ordering edges between steps that share no data, so the
// value must be a list literal of step references.
package model

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// parseDependsOn finds the "depends_on" attribute and returns its raw expression
// for dependency analysis. It also validates that the expression is a list.
func parseDependsOn(attrs hcl.Attributes) (hcl.Expression, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	dependsOnAttr, exists := attrs["depends_on"]
	if !exists {
		return nil, diags
	}
	expr := dependsOnAttr.Expr

	if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
		if _, isTuple := syntaxExpr.(*hclsyntax.TupleConsExpr); !isTuple {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid depends_on value",
				Detail:   "The 'depends_on' attribute must be a list of step references.",
				Subject:  expr.Range().Ptr(),
			})
		}
	}

	return expr, diags
}

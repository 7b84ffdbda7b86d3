package hclutil

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// FindUniqueBlock searches a slice of blocks for all blocks of a given name.
// It returns a diagnostic error if more than one block of that name is found.
// If no block is found, it returns nil.
func FindUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks {
		if block.Type != name {
			continue
		}
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"" + name + "\" block",
				Detail:   "Only one \"" + name + "\" block is allowed; the first is at " + found.DefRange.String() + ".",
				Subject:  block.DefRange.Ptr(),
			})
			continue
		}
		found = block
	}

	return found, diags
}

// StringAttr evaluates a literal string attribute. Missing optional
// attributes return "".
func StringAttr(attrs hcl.Attributes, name string, required bool, within hcl.Range) (string, hcl.Diagnostics) {
	attr, ok := attrs[name]
	if !ok {
		if !required {
			return "", nil
		}
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing required argument",
			Detail:   "The argument \"" + name + "\" is required.",
			Subject:  within.Ptr(),
		}}
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if val.IsNull() || !val.IsKnown() || !val.Type().Equals(cty.String) {
		return "", append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid \"" + name + "\" value",
			Detail:   "The argument \"" + name + "\" must be a literal string.",
			Subject:  attr.Expr.Range().Ptr(),
		})
	}
	return val.AsString(), diags
}

package hclutil

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey generates a stable, canonical string representation for an
// hcl.Traversal, suitable for use as a map key.
func TraversalKey(t hcl.Traversal) string {
	// e.g., step.scale.kelvin
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// Address is a reference to another pipeline block: source.<name> or
// step.<op>.<name>.
type Address struct {
	Kind  string
	Parts []string
	Range hcl.Range
}

// String returns the dotted form used as a node key.
func (a Address) String() string {
	out := a.Kind
	for _, p := range a.Parts {
		out += "." + p
	}
	return out
}

// ParseAddress reads a block address from the head of a traversal. The
// second return value is false for traversals that are not block
// references, e.g. a bare identifier.
func ParseAddress(t hcl.Traversal) (Address, bool) {
	var want int
	switch t.RootName() {
	case "source", "output":
		want = 1
	case "step":
		want = 2
	default:
		return Address{}, false
	}
	if len(t) < want+1 {
		return Address{}, false
	}
	addr := Address{Kind: t.RootName(), Range: t.SourceRange()}
	for _, step := range t[1 : want+1] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			return Address{}, false
		}
		addr.Parts = append(addr.Parts, attr.Name)
	}
	return addr, true
}

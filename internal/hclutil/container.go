package hclutil

import (
	"sync"

	"github.com/hashicorp/hcl/v2"
)

// Container is a thread-safe helper that gathers HCL expressions and provides
// analysis results, such as variable references and function calls.
type Container struct {
	analyzeOnce sync.Once

	mu          sync.RWMutex
	expressions []hcl.Expression

	references      []hcl.Traversal
	calledFunctions []string
}

// NewContainer creates a new, empty expression container.
func NewContainer() *Container {
	return &Container{}
}

// Add adds one or more expressions to the container for analysis.
// It safely ignores any nil expressions.
func (c *Container) Add(exprs ...hcl.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Adds happen while a file is decoded, before any getter runs.
	c.analyzeOnce = sync.Once{}

	for _, expr := range exprs {
		if expr != nil {
			c.expressions = append(c.expressions, expr)
		}
	}
}

func (c *Container) analyze() {
	c.analyzeOnce.Do(func() {
		c.mu.RLock()
		refs, funcs := extractReferencesAndFunctions(c.expressions...)
		c.mu.RUnlock()

		c.mu.Lock()
		c.references = refs
		c.calledFunctions = funcs
		c.mu.Unlock()
	})
}

// References returns all unique variable traversals found in the expressions.
func (c *Container) References() []hcl.Traversal {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.references
}

// Addresses returns the block addresses referenced by the expressions, in
// the order of References.
func (c *Container) Addresses() []Address {
	var out []Address
	for _, t := range c.References() {
		if addr, ok := ParseAddress(t); ok {
			out = append(out, addr)
		}
	}
	return out
}

// CalledFunctions returns all unique function calls found in the expressions.
func (c *Container) CalledFunctions() []string {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calledFunctions
}

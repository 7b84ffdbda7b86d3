// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package ops

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// ErrOperationDisabled is returned when configuration has switched off a
// coordinate transform.
var ErrOperationDisabled = errors.New("operation disabled by configuration")

// UnknownOperationError is returned for operation names that are not in
// the catalog.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation '%s': no shape inference rule is registered", e.Name)
}

// Module is the interface a group of operations implements to register
// itself with a Registry.
type Module interface {
	Register(r *Registry)
}

// CoreModules are the operation groups every engine ships with.
var CoreModules = []Module{
	Sources{},
	Elementwise{},
	Combines{},
	Reductions{},
	Transforms{},
}

// Registry holds the operation definitions available to a graph.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Builtins returns a registry populated with CoreModules.
func Builtins() *Registry {
	r := NewRegistry()
	for _, m := range CoreModules {
		m.Register(r)
	}
	return r
}

// Register adds a definition. It panics on duplicate names or on
// definitions that do not declare a valid kind.
func (r *Registry) Register(def *Definition) {
	if def == nil || def.Name == "" {
		panic("operation definition must have a name")
	}
	if !def.Kind.Valid() {
		panic(fmt.Sprintf("operation '%s' declares unknown kind %s", def.Name, def.Kind))
	}
	if def.DType == nil {
		panic(fmt.Sprintf("operation '%s' has no dtype rule", def.Name))
	}
	if def.Kind == Reduction && def.Reducer == nil {
		panic(fmt.Sprintf("reduction '%s' has no reducer", def.Name))
	}
	if (def.Kind == ElementwiseMap || def.Kind == BroadcastCombine) && def.Elementwise == nil {
		panic(fmt.Sprintf("operation '%s' has no element function", def.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		panic(fmt.Sprintf("operation with name '%s' already registered", def.Name))
	}
	slog.Debug("Registering operation.", "name", def.Name, "kind", def.Kind.String())
	r.defs[def.Name] = def
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, &UnknownOperationError{Name: name}
	}
	return def, nil
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Without returns a copy of the registry lacking the named operations.
func (r *Registry) Without(names ...string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for name, def := range r.defs {
		if !slices.Contains(names, name) {
			out.defs[name] = def
		}
	}
	return out
}

// Operation resolves name against the catalog and validates params against
// the definition.
func (r *Registry) Operation(name string, params map[string]cty.Value) (Operation, *Definition, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return Operation{}, nil, err
	}
	op := Operation{Name: name, Kind: def.Kind, Params: params}.Clone()
	if op.Params == nil {
		op.Params = map[string]cty.Value{}
	}
	if err := def.Validate(op); err != nil {
		return Operation{}, nil, err
	}
	return op, def, nil
}

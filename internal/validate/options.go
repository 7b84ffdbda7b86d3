// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package validate

import (
	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/ops"
)

type settings struct {
	registry *ops.Registry
	opts     *config.Options
	policy   Policy
}

// Option configures a check.
type Option func(*settings)

// WithRegistry checks operations against registry instead of the graph's
// own catalog.
func WithRegistry(r *ops.Registry) Option {
	return func(s *settings) { s.registry = r }
}

// WithOptions checks against engine options: disabled transforms,
// multi-dimensional reductions and required attributes.
func WithOptions(o config.Options) Option {
	return func(s *settings) { s.opts = &o }
}

// WithPolicy sets the severities attached to violations.
func WithPolicy(p Policy) Option {
	return func(s *settings) { s.policy = p }
}

func newSettings(opts []Option) *settings {
	s := &settings{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *settings) violation(code Code, node graph.ID, format string, args ...any) Violation {
	return newViolation(s.policy, code, node, format, args...)
}

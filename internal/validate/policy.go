// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package validate

import (
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/lineagegrid/internal/config"
)

// Policy assigns a severity to every violation code.
type Policy struct {
	severity map[Code]Severity
}

// DefaultPolicy treats every violation as an error except result
// coordinates that no source declared, which are warnings.
func DefaultPolicy() Policy {
	p := Policy{severity: make(map[Code]Severity, len(Codes))}
	for _, c := range Codes {
		p.severity[c] = SeverityError
	}
	p.severity[CodeCoordinateUnexpected] = SeverityWarning
	return p
}

// NewPolicy overlays the Severity map of opts onto the default policy.
func NewPolicy(opts config.Options) (Policy, error) {
	p := DefaultPolicy()
	for name, sev := range opts.Severity {
		code := Code(name)
		if !slices.Contains(Codes, code) {
			return Policy{}, fmt.Errorf("unknown violation code '%s'", name)
		}
		switch sev {
		case config.SeverityWarning:
			p.severity[code] = SeverityWarning
		case config.SeverityError:
			p.severity[code] = SeverityError
		default:
			return Policy{}, fmt.Errorf("unknown severity '%s' for '%s'", sev, name)
		}
	}
	return p, nil
}

// Severity returns the severity of code.
func (p Policy) Severity(code Code) Severity {
	if s, ok := p.severity[code]; ok {
		return s
	}
	return SeverityError
}

// With returns a copy of p with code set to s.
func (p Policy) With(code Code, s Severity) Policy {
	out := Policy{severity: maps.Clone(p.severity)}
	if out.severity == nil {
		out.severity = make(map[Code]Severity)
	}
	out.severity[code] = s
	return out
}

// Apply returns violations with severities assigned by p.
func (p Policy) Apply(violations []Violation) []Violation {
	out := slices.Clone(violations)
	for i := range out {
		out[i].Severity = p.Severity(out[i].Code)
	}
	return out
}

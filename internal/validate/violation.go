// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package validate implements the checks a graph must pass before it is
// materialized and a result must pass before it is considered usable.
//
// Checks never fail: they return violations as data. Callers decide what
// to do with them, usually through Escalate and a Policy built from the
// engine options.
package validate

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/graph"
)

// Code identifies the kind of a violation.
type Code string

const (
	CodeUnresolvedShape      Code = "unresolved_shape"
	CodeCycle                Code = "cycle"
	CodeUnknownOperation     Code = "unknown_operation"
	CodeDanglingReference    Code = "dangling_reference"
	CodeDisabledOperation    Code = "disabled_operation"
	CodeMultiDimReduction    Code = "multi_dim_reduction"
	CodeCoordinateMissing    Code = "coordinate_missing"
	CodeCoordinateChanged    Code = "coordinate_changed"
	CodeCoordinateUnexpected Code = "coordinate_unexpected"
	CodeCoordinateShape      Code = "coordinate_shape"
	CodeDtypeMismatch        Code = "dtype_mismatch"
	CodeShapeMismatch        Code = "shape_mismatch"
	CodeHistoryMissing       Code = "history_missing"
	CodeHistoryStale         Code = "history_stale"
	CodeAttributeMissing     Code = "attribute_missing"
)

// Codes lists every violation code.
var Codes = []Code{
	CodeUnresolvedShape, CodeCycle, CodeUnknownOperation, CodeDanglingReference,
	CodeDisabledOperation, CodeMultiDimReduction, CodeCoordinateMissing,
	CodeCoordinateChanged, CodeCoordinateUnexpected, CodeCoordinateShape,
	CodeDtypeMismatch, CodeShapeMismatch, CodeHistoryMissing, CodeHistoryStale,
	CodeAttributeMissing,
}

// Severity says whether a violation blocks a result.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return config.SeverityError
	}
	return config.SeverityWarning
}

// MarshalText renders the severity name in summaries.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case config.SeverityWarning:
		*s = SeverityWarning
	case config.SeverityError:
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity '%s'", text)
	}
	return nil
}

// Violation is one broken invariant.
type Violation struct {
	Code     Code     `json:"code" yaml:"code"`
	Severity Severity `json:"severity" yaml:"severity"`
	// Node is the offending node, or graph.NoID for graph-wide problems.
	Node    graph.ID `json:"node" yaml:"node"`
	Message string   `json:"message" yaml:"message"`
}

func (v Violation) String() string {
	if v.Node == graph.NoID {
		return fmt.Sprintf("[%s] %s: %s", v.Severity, v.Code, v.Message)
	}
	return fmt.Sprintf("[%s] %s at %s: %s", v.Severity, v.Code, v.Node, v.Message)
}

// Error is returned by Escalate when violations reach the error severity.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = "  " + v.String()
	}
	return fmt.Sprintf("%d validation violation(s):\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

// Escalate returns an *Error holding every violation of error severity, or
// nil when there is none.
func Escalate(violations []Violation) error {
	var blocking []Violation
	for _, v := range violations {
		if v.Severity == SeverityError {
			blocking = append(blocking, v)
		}
	}
	if len(blocking) == 0 {
		return nil
	}
	return &Error{Violations: blocking}
}

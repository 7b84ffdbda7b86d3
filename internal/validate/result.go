// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package validate

import (
	"slices"
	"strings"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/materialize"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"github.com/specialistvlad/lineagegrid/internal/source"
)

// CheckResult inspects a materialized result against the metadata of the
// sources it was derived from.
//
// Unless a coordinate transform is on the result's provenance path, every
// source coordinate whose dimension survives at full size must be present
// and bit-identical. Coordinates of dimensions removed by a reduction, and
// of size-1 dimensions stretched by broadcasting, are expected to be gone.
func CheckResult(res *materialize.Result, sources []source.Meta, opts ...Option) []Violation {
	s := newSettings(opts)
	id := res.Node
	var out []Violation

	if res.Data == nil {
		return append(out, s.violation(CodeShapeMismatch, id, "result carries no data"))
	}
	if res.Data.DType != res.DType {
		out = append(out, s.violation(CodeDtypeMismatch, id, "data has dtype %s, declared %s", res.Data.DType, res.DType))
	}
	if len(res.Data.Shape) != len(res.Dims) {
		out = append(out, s.violation(CodeShapeMismatch, id, "data shape %v does not match dims %v", res.Data.Shape, res.Dims))
		return out
	}

	for _, name := range res.Coords.Names() {
		c := res.Coords[name]
		if c.Dim == "" {
			continue
		}
		axis := slices.Index(res.Dims, c.Dim)
		switch {
		case axis < 0:
			out = append(out, s.violation(CodeCoordinateShape, id, "coordinate '%s' labels dim '%s' which the result does not have", name, c.Dim))
		case len(c.Values) != res.Data.Shape[axis]:
			out = append(out, s.violation(CodeCoordinateShape, id, "coordinate '%s' has %d values for dim '%s' of size %d", name, len(c.Values), c.Dim, res.Data.Shape[axis]))
		}
	}

	if !res.Ledger.HasKind(ops.CoordinateTransform.String()) {
		out = append(out, s.checkSourceCoords(res, sources)...)
	}
	out = append(out, s.checkHistory(res)...)

	if s.opts != nil {
		for _, attr := range s.opts.RequiredAttributes {
			if strings.TrimSpace(res.Attrs[attr]) == "" {
				out = append(out, s.violation(CodeAttributeMissing, id, "required attribute '%s' is missing", attr))
			}
		}
	}
	return out
}

// expectedCoords collects the source coordinates a result must carry.
func expectedCoords(res *materialize.Result, sources []source.Meta) coords.Set {
	expected := coords.Set{}
	for _, m := range sources {
		for _, name := range m.Coords.Names() {
			c := m.Coords[name]
			if c.Dim != "" {
				axis := slices.Index(res.Dims, c.Dim)
				if axis < 0 || len(c.Values) != res.Data.Shape[axis] {
					continue
				}
			}
			if _, seen := expected[name]; !seen {
				expected[name] = c
			}
		}
	}
	return expected
}

func (s *settings) checkSourceCoords(res *materialize.Result, sources []source.Meta) []Violation {
	var out []Violation
	expected := expectedCoords(res, sources)
	for _, name := range expected.Names() {
		got, ok := res.Coords[name]
		switch {
		case !ok:
			out = append(out, s.violation(CodeCoordinateMissing, res.Node, "coordinate '%s' was lost without a declared coordinate transform", name))
		case !got.Equal(expected[name]):
			out = append(out, s.violation(CodeCoordinateChanged, res.Node, "coordinate '%s' differs from its source", name))
		}
	}
	for _, name := range res.Coords.Names() {
		if _, ok := expected[name]; !ok {
			out = append(out, s.violation(CodeCoordinateUnexpected, res.Node, "coordinate '%s' is not declared by any source", name))
		}
	}
	return out
}

func (s *settings) checkHistory(res *materialize.Result) []Violation {
	history := strings.TrimRight(res.History(), "\n")
	if strings.TrimSpace(history) == "" {
		return []Violation{s.violation(CodeHistoryMissing, res.Node, "history attribute is empty")}
	}
	last, ok := res.Ledger.Last()
	if !ok {
		return nil
	}
	lines := strings.Split(history, "\n")
	if got := strings.TrimSpace(lines[len(lines)-1]); got != last.String() {
		return []Violation{s.violation(CodeHistoryStale, res.Node, "history ends with %q, want %q", got, last.String())}
	}
	return nil
}

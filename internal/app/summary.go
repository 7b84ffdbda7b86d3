package app

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/specialistvlad/lineagegrid/internal/session"
	"github.com/specialistvlad/lineagegrid/internal/validate"
	"gopkg.in/yaml.v3"
)

// maxSummaryValues bounds how many values are inlined per output.
const maxSummaryValues = 64

type summary struct {
	Usable    bool                 `json:"usable" yaml:"usable"`
	ElapsedMS int64                `json:"elapsed_ms" yaml:"elapsed_ms"`
	ChunkDims []string             `json:"chunk_dims,omitempty" yaml:"chunk_dims,omitempty"`
	Chunks    [][]int              `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Static    []validate.Violation `json:"static_violations,omitempty" yaml:"static_violations,omitempty"`
	Outputs   []outputSummary      `json:"outputs" yaml:"outputs"`
	// Trajectories is empty for pipelines without trajectory blocks.
	Trajectories []trajectorySummary `json:"trajectories,omitempty" yaml:"trajectories,omitempty"`
}

type trajectorySummary struct {
	Name    string            `json:"name" yaml:"name"`
	Usable  bool              `json:"usable" yaml:"usable"`
	Error   string            `json:"error,omitempty" yaml:"error,omitempty"`
	Steps   int               `json:"steps" yaml:"steps"`
	Time    []float64         `json:"time,omitempty" yaml:"time,omitempty"`
	Lat     []float64         `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon     []float64         `json:"lon,omitempty" yaml:"lon,omitempty"`
	History string            `json:"history,omitempty" yaml:"history,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// usable reports whether every output and every trajectory is usable.
func (s summary) usable() bool {
	for _, t := range s.Trajectories {
		if !t.Usable {
			return false
		}
	}
	return s.Usable
}

type outputSummary struct {
	Name       string               `json:"name" yaml:"name"`
	Usable     bool                 `json:"usable" yaml:"usable"`
	Dims       []string             `json:"dims" yaml:"dims"`
	Shape      []int                `json:"shape" yaml:"shape"`
	DType      string               `json:"dtype" yaml:"dtype"`
	Coords     []string             `json:"coords,omitempty" yaml:"coords,omitempty"`
	Attrs      map[string]string    `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Min        float64              `json:"min" yaml:"min"`
	Max        float64              `json:"max" yaml:"max"`
	Mean       float64              `json:"mean" yaml:"mean"`
	Values     []float64            `json:"values,omitempty" yaml:"values,omitempty"`
	Violations []validate.Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func newSummary(r *session.Report) summary {
	s := summary{
		Usable:    r.Usable(),
		ElapsedMS: r.Elapsed.Milliseconds(),
		ChunkDims: r.Scheme.Dims,
		Chunks:    r.Scheme.Extents,
		Static:    r.Static,
	}
	for _, o := range r.Outcomes {
		out := outputSummary{
			Name:       o.Name,
			Usable:     o.Usable,
			Violations: o.Violations,
		}
		if res := o.Result; res != nil {
			out.Dims = res.Dims
			out.DType = res.DType.String()
			out.Coords = res.Coords.Names()
			out.Attrs = res.Attrs
			if res.Data != nil {
				out.Shape = res.Data.Shape
				out.Min, out.Max, out.Mean = stats(res.Data.Data)
				if len(res.Data.Data) <= maxSummaryValues && allFinite(res.Data.Data) {
					out.Values = res.Data.Data
				}
			}
		}
		s.Outputs = append(s.Outputs, out)
	}
	return s
}

// stats ignores NaN and infinite values, which JSON cannot carry. All three
// are zero when nothing finite is left.
func stats(values []float64) (lo, hi, mean float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	var sum float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	return lo, hi, sum / float64(n)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func writeSummary(w io.Writer, format string, s summary) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	default:
		return fmt.Errorf("unknown output format '%s'", format)
	}
}

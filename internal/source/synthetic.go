package source

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
)

// Synthetic generates values on demand from a pattern instead of storing
// them. It lets pipelines and benchmarks run over arrays of any size.
//
// Location form:
//
//	synthetic://<pattern>?dims=lat:180,lon:360&dtype=float64&name=t&units=K
//
// Patterns: "ramp" (value = flat row-major index), "ones", "wave"
// (sin of the flat index scaled by 0.01).
type Synthetic struct {
	meta    Meta
	pattern string
}

// OpenSynthetic is the synthetic:// opener.
func OpenSynthetic(_ context.Context, u *url.URL) (Source, error) {
	q := u.Query()
	pattern := u.Host
	switch pattern {
	case "ramp", "ones", "wave":
	default:
		return nil, fmt.Errorf("unknown synthetic pattern '%s'", pattern)
	}

	meta := Meta{
		Name:   q.Get("name"),
		DType:  dtype.Float64,
		Coords: coords.Set{},
		Attrs:  map[string]string{},
	}
	if meta.Name == "" {
		meta.Name = pattern
	}
	if dt := q.Get("dtype"); dt != "" {
		parsed, err := dtype.Parse(dt)
		if err != nil {
			return nil, err
		}
		meta.DType = parsed
	}
	if q.Get("dims") == "" {
		return nil, fmt.Errorf("synthetic source needs a dims parameter, e.g. dims=lat:4,lon:8")
	}
	for _, spec := range strings.Split(q.Get("dims"), ",") {
		name, size, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("malformed dim %q, want name:size", spec)
		}
		n, err := strconv.Atoi(size)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("malformed size for dim '%s': %q", name, size)
		}
		meta.Dims = append(meta.Dims, name)
		meta.Shape = append(meta.Shape, n)
		meta.Coords[name] = coords.Coord{Name: name, Dim: name, Values: axisValues(name, n)}
	}
	for _, key := range []string{"units", "history", "crs", "standard_name"} {
		if v := q.Get(key); v != "" {
			meta.Attrs[key] = v
		}
	}
	return &Synthetic{meta: meta, pattern: pattern}, nil
}

func axisValues(name string, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		switch name {
		case "lat", "latitude":
			if n == 1 {
				values[i] = 0
			} else {
				values[i] = -90 + 180*float64(i)/float64(n-1)
			}
		case "lon", "longitude":
			values[i] = 360 * float64(i) / float64(n)
		default:
			values[i] = float64(i)
		}
	}
	return values
}

// Meta implements Source.
func (s *Synthetic) Meta() Meta {
	return s.meta.Clone()
}

// ReadRegion implements Source.
func (s *Synthetic) ReadRegion(ctx context.Context, r ndarray.Region) (*ndarray.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.Validate(s.meta.Shape); err != nil {
		return nil, err
	}
	out := ndarray.New(s.meta.DType, r.Shape())
	strides := ndarray.Strides(s.meta.Shape)
	local := make([]int, r.Rank())
	for flat := range out.Data {
		ndarray.Unravel(flat, out.Shape, local)
		global := 0
		for d := range local {
			global += (local[d] + r.Start[d]) * strides[d]
		}
		var v float64
		switch s.pattern {
		case "ramp":
			v = float64(global)
		case "ones":
			v = 1
		case "wave":
			v = math.Sin(float64(global) * 0.01)
		}
		out.Data[flat] = s.meta.DType.Cast(v)
	}
	return out, nil
}

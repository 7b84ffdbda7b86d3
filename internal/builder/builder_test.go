package builder

import (
	"context"
	"testing"

	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/model"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"github.com/specialistvlad/lineagegrid/internal/source"
	"github.com/specialistvlad/lineagegrid/internal/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	catalog *source.Catalog
	t2m     *source.Memory
	mask    *source.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mk := func(name string, dims []string, shape []int) *source.Memory {
		set := coords.Set{}
		for i, d := range dims {
			values := make([]float64, shape[i])
			for j := range values {
				values[j] = float64(j)
			}
			set[d] = coords.Coord{Name: d, Dim: d, Values: values}
		}
		src, err := source.NewMemory(source.Meta{
			Name: name, Dims: dims, Shape: shape, DType: dtype.Float64, Coords: set,
		}, ndarray.New(dtype.Float64, shape))
		require.NoError(t, err)
		return src
	}

	store := source.NewMemoryStore()
	f := &fixture{
		catalog: source.NewCatalog(),
		t2m:     mk("t2m", []string{"lat", "lon"}, []int{4, 8}),
		mask:    mk("mask", []string{"lon"}, []int{8}),
	}
	store.Put("t2m", f.t2m)
	store.Put("mask", f.mask)
	f.catalog.Register("mem", store.Opener())
	return f
}

func (f *fixture) build(t *testing.T, src string) (*Build, error) {
	t.Helper()
	p, err := model.Parse("pipeline.hcl", []byte(src))
	require.NoError(t, err)
	return BuildGraph(context.Background(), p, f.catalog, ops.Builtins(), config.Default())
}

func TestBuildGraph(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)
	src := `
source "t2m" { location = "mem://t2m" }
source "mask" { location = "mem://mask" }

output "zonal" { value = step.reduce_mean.zonal }

step "reduce_mean" "zonal" {
  input  = step.broadcast_multiply.masked
  params = { dims = ["lon"] }
}

step "broadcast_multiply" "masked" {
  inputs = [step.scale.kelvin, source.mask]
}

step "scale" "kelvin" {
  input  = source.t2m
  params = { factor = 2 }
}
`

	// --- Act ---
	b, err := f.build(t, src)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 5, b.Graph.Len())
	require.Len(t, b.Outputs, 1)
	assert.Equal(t, "zonal", b.Outputs[0].Name)
	assert.Equal(t, []graph.ID{b.Nodes["step.reduce_mean.zonal"]}, b.Roots())
	assert.Equal(t, b.Pipeline().Steps[0].Address(), "step.reduce_mean.zonal")

	root, ok := b.Graph.Node(b.Outputs[0].Node)
	require.True(t, ok)
	assert.Equal(t, "zonal", root.Label)
	assert.Equal(t, []string{"lat"}, root.Dims)
	assert.Equal(t, []int{4}, root.Shape)
	assert.Equal(t, []string{"load", "scale", "load", "broadcast_multiply", "reduce_mean"}, root.Ledger.Operations())

	assert.Zero(t, f.t2m.Reads(), "building must not read data")
	assert.Zero(t, f.mask.Reads())
}

func TestBuildGraphDependsOn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	b, err := f.build(t, `
source "t2m" { location = "mem://t2m" }
step "scale" "first" { input = source.t2m }
step "offset" "second" {
  input      = source.t2m
  depends_on = [step.scale.first]
}
`)
	require.NoError(t, err)

	first, second := b.Nodes["step.scale.first"], b.Nodes["step.offset.second"]
	assert.Contains(t, b.Graph.Dependencies(second), first)
	require.Len(t, b.Outputs, 1, "only the sink that nothing references is an output")
	assert.Equal(t, "step.offset.second", b.Outputs[0].Name)
}

func TestBuildGraphTrajectories(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)
	src := `
source "t2m" { location = "mem://t2m" }

step "scale" "u" {
  input  = source.t2m
  params = { factor = 0.1 }
}

step "negate" "v" { input = step.scale.u }

output "u" { value = step.scale.u }

trajectory "drift" {
  u     = step.scale.u
  v     = step.negate.v
  start = { lat = 1, lon = 2 }
  steps = 3
}
`

	// --- Act ---
	b, err := f.build(t, src)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, b.Trajectories, 1)
	tr := b.Trajectories[0]
	assert.Equal(t, "drift", tr.Name)
	assert.Equal(t, b.Nodes["step.scale.u"], tr.U)
	assert.Equal(t, b.Nodes["step.negate.v"], tr.V)
	assert.Equal(t, trajectory.Point{Lat: 1, Lon: 2}, tr.Start)
	assert.Equal(t, 3, tr.Steps)
	assert.Equal(t, []Output{
		{Name: "u", Node: b.Nodes["step.scale.u"]},
		{Name: "step.negate.v", Node: b.Nodes["step.negate.v"]},
	}, b.Outputs, "velocity components are materialized once each")
}

func TestBuildGraphErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		check   func(t *testing.T, err error)
		wantErr string
	}{
		{
			name:    "undeclared reference",
			src:     `step "scale" "s" { input = source.nope }`,
			wantErr: "step.scale.s in pipeline.hcl references undeclared 'source.nope'",
		},
		{
			name: "cycle between steps",
			src: `
step "scale" "a" { input = step.scale.b }
step "scale" "b" { input = step.scale.a }
`,
			check: func(t *testing.T, err error) {
				var cycle *graph.CycleError
				require.ErrorAs(t, err, &cycle)
				assert.Len(t, cycle.Path, 3)
				assert.Equal(t, cycle.Path[0], cycle.Path[2])
			},
		},
		{
			name: "self reference",
			src:  `step "scale" "a" { input = step.scale.a }`,
			check: func(t *testing.T, err error) {
				var cycle *graph.CycleError
				require.ErrorAs(t, err, &cycle)
				assert.Equal(t, []string{"step.scale.a", "step.scale.a"}, cycle.Path)
			},
		},
		{
			name: "unknown operation",
			src: `
source "t2m" { location = "mem://t2m" }
step "warp" "w" { input = source.t2m }
`,
			check: func(t *testing.T, err error) {
				var unknown *ops.UnknownOperationError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "warp", unknown.Name)
			},
		},
		{
			name: "incompatible shapes",
			src: `
source "t2m" { location = "mem://t2m" }
step "isel" "half" {
  input  = source.t2m
  params = { dim = "lon", start = 0, stop = 4 }
}
step "add" "bad" { inputs = [source.t2m, step.isel.half] }
`,
			check: func(t *testing.T, err error) {
				var mismatch *graph.ShapeMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Contains(t, err.Error(), "step.add.bad")
			},
		},
		{
			name: "trajectory over an undeclared field",
			src: `
source "t2m" { location = "mem://t2m" }
trajectory "p" {
  u     = source.t2m
  v     = source.missing
  start = { lat = 0, lon = 0 }
  steps = 1
}
`,
			wantErr: "trajectory.p in pipeline.hcl references undeclared 'source.missing'",
		},
		{
			name:    "unopenable source",
			src:     `source "x" { location = "s3://bucket/x" }`,
			wantErr: "no source opener registered for scheme 's3'",
		},
		{
			name:    "depends_on a source",
			src:     "source \"t2m\" { location = \"mem://t2m\" }\nstep \"scale\" \"s\" {\n input = source.t2m\n depends_on = [source.t2m]\n}",
			wantErr: "depends_on entries must reference steps",
		},
		{
			name:    "output to nowhere",
			src:     "source \"t2m\" { location = \"mem://t2m\" }\noutput \"o\" { value = step.scale.none }",
			wantErr: "output.o in pipeline.hcl references undeclared 'step.scale.none'",
		},
		{
			name: "empty pipeline",
			src:  `engine { workers = 2 }`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoOutputs)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := newFixture(t).build(t, tc.src)
			require.Error(t, err)
			assert.Nil(t, b)
			if tc.wantErr != "" {
				assert.Contains(t, err.Error(), tc.wantErr)
			}
			if tc.check != nil {
				tc.check(t, err)
			}
		})
	}
}

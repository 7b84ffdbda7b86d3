// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package materialize

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/lineagegrid/internal/chunkplan"
	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/coords"
	"github.com/specialistvlad/lineagegrid/internal/dtype"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/inmemorystore"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"github.com/specialistvlad/lineagegrid/internal/provenance"
	"github.com/specialistvlad/lineagegrid/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

// gridSource builds a ramp source (value = row-major index) with
// coordinates 0, 10, 20, ... along every dim.
func gridSource(t *testing.T, name string, dims []string, shape []int) *source.Memory {
	t.Helper()
	data := ndarray.New(dtype.Float64, shape)
	for i := range data.Data {
		data.Data[i] = float64(i)
	}
	return sourceWith(t, name, dims, data)
}

func sourceWith(t *testing.T, name string, dims []string, data *ndarray.Array) *source.Memory {
	t.Helper()
	set := coords.Set{}
	for i, d := range dims {
		values := make([]float64, data.Shape[i])
		for j := range values {
			values[j] = float64(j * 10)
		}
		set[d] = coords.Coord{Name: d, Dim: d, Values: values}
	}
	src, err := source.NewMemory(source.Meta{
		Name: name, Location: "mem://" + name, Dims: dims, Shape: data.Shape, DType: data.DType,
		Coords: set, Attrs: map[string]string{"units": "K", "history": "created by test"},
	}, data)
	require.NoError(t, err)
	return src
}

func uniform(t *testing.T, dims []string, shape, chunk []int) chunkplan.Scheme {
	t.Helper()
	s, err := chunkplan.Uniform(dims, shape, chunk)
	require.NoError(t, err)
	return s
}

func newGraph() *graph.Graph {
	return graph.New(ops.Builtins(), config.Default())
}

func TestProvenanceRoundTrip(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	g := newGraph()
	src := gridSource(t, "t", []string{"lat", "lon"}, []int{3, 4})
	x, err := g.Load(src)
	require.NoError(t, err)
	s, err := g.Scale(x, 2)
	require.NoError(t, err)
	r, err := g.Reduce("reduce_sum", s, "lon")
	require.NoError(t, err)
	store := inmemorystore.New()
	m := New(WithStore(store), WithWorkers(3))

	// --- Act ---
	results, err := m.Materialize(context.Background(), g, []graph.ID{r}, uniform(t, []string{"lat", "lon"}, []int{3, 4}, []int{2, 3}))
	require.NoError(t, err)

	// --- Assert ---
	res := results[r]
	require.NotNil(t, res)
	assert.Equal(t, []int{3}, res.Data.Shape)
	assert.Equal(t, []float64{12, 44, 76}, res.Data.Data)
	assert.Equal(t, []string{"lat"}, res.Dims)

	entries, err := provenance.Parse(res.History())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"load", "scale", "reduce_sum"}, []string{entries[0].Operation, entries[1].Operation, entries[2].Operation})
	assert.Contains(t, res.History(), "created by test\n1: load(")
	assert.Equal(t, res.Ledger.Render(), provenance.New(entries...).Render(), "replaying the trail rebuilds the ledger")

	assert.Zero(t, store.Len(), "every chunk must be released after the run")
}

func TestCoordinatesArePreserved(t *testing.T) {
	t.Parallel()
	g := newGraph()
	src := gridSource(t, "t", []string{"lat", "lon"}, []int{4, 5})
	x, err := g.Load(src)
	require.NoError(t, err)
	s, err := g.Scale(x, 0.5)
	require.NoError(t, err)
	o, err := g.Offset(s, -273.15)
	require.NoError(t, err)

	results, err := New().Materialize(context.Background(), g, []graph.ID{o}, chunkplan.Scheme{})
	require.NoError(t, err)

	res := results[o]
	assert.True(t, src.Meta().Coords.Equal(res.Coords))
	assert.Equal(t, "K", res.RendererMetadata().Attrs["units"])
	assert.False(t, res.Ledger.HasKind(ops.CoordinateTransform.String()))
}

func TestChunkingDoesNotChangeResults(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T) (*graph.Graph, []graph.ID) {
		g := newGraph()
		field, err := g.Load(gridSource(t, "f", []string{"lat", "lon"}, []int{6, 7}))
		require.NoError(t, err)
		row, err := g.Literal("row", sourceWith(t, "row", []string{"lat", "lon"}, func() *ndarray.Array {
			a, err := ndarray.FromValues(dtype.Float64, []int{1, 7}, []float64{1, 2, 3, 4, 5, 6, 7})
			require.NoError(t, err)
			return a
		}()))
		require.NoError(t, err)
		series, err := g.Load(gridSource(t, "s", []string{"time"}, []int{3}))
		require.NoError(t, err)

		sum, err := g.Map("add", field, row)
		require.NoError(t, err)
		root, err := g.Map("sqrt", sum)
		require.NoError(t, err)
		sub, err := g.Subset(root, "lon", 15, 55)
		require.NoError(t, err)
		combined, err := g.Combine("broadcast_multiply", sub, series)
		require.NoError(t, err)
		mean, err := g.Reduce("reduce_mean", combined, "lat")
		require.NoError(t, err)
		return g, []graph.ID{root, combined, mean}
	}

	dims := []string{"lat", "lon", "time"}
	shape := []int{6, 7, 3}
	schemes := map[string]chunkplan.Scheme{
		"whole":  chunkplan.Whole(dims, shape),
		"coarse": uniform(t, dims, shape, []int{4, 4, 2}),
		"fine":   uniform(t, dims, shape, []int{1, 2, 1}),
	}
	planned, err := chunkplan.Plan(dims, shape, 8, 64)
	require.NoError(t, err)
	schemes["planned"] = planned

	g, roots := build(t)
	want, err := New(WithWorkers(1)).Materialize(context.Background(), g, roots, schemes["whole"])
	require.NoError(t, err)

	for name, scheme := range schemes {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			g, roots := build(t)
			got, err := New(WithWorkers(4)).Materialize(context.Background(), g, roots, scheme)
			require.NoError(t, err)
			for _, id := range roots {
				assert.True(t, ndarray.AllClose(want[id].Data, got[id].Data, 1e-12, 1e-12), "root %s differs under scheme %s", id, scheme)
			}
		})
	}

	// Spot-check values against a direct computation.
	root := want[roots[0]].Data
	assert.InDelta(t, 1.0, root.At(0, 0), 1e-12) // sqrt(0 + 1)
	assert.InDelta(t, 3.0, root.At(0, 4), 1e-12) // sqrt(4 + 5)
	combined := want[roots[1]]
	assert.Equal(t, []int{6, 4, 3}, combined.Data.Shape)
	assert.Equal(t, []float64{20, 30, 40, 50}, combined.Coords["lon"].Values)
	assert.True(t, combined.Ledger.HasKind(ops.CoordinateTransform.String()))
}

func TestReductionOverAllDims(t *testing.T) {
	t.Parallel()
	g := newGraph()
	x, err := g.Load(gridSource(t, "t", []string{"lat", "lon"}, []int{3, 4}))
	require.NoError(t, err)
	mean, err := g.Reduce("reduce_mean", x)
	require.NoError(t, err)
	maxv, err := g.Compose("reduce_max", ops.Params("axis", 0), x)
	require.NoError(t, err)

	results, err := New().Materialize(context.Background(), g, []graph.ID{mean, maxv}, uniform(t, []string{"lat", "lon"}, []int{3, 4}, []int{2, 3}))
	require.NoError(t, err)

	assert.Empty(t, results[mean].Data.Shape)
	assert.Equal(t, []float64{5.5}, results[mean].Data.Data)
	assert.Equal(t, []float64{8, 9, 10, 11}, results[maxv].Data.Data)
	assert.Equal(t, []string{"lon"}, results[maxv].Coords.Names())
}

func TestBroadcastCombineValues(t *testing.T) {
	t.Parallel()
	g := newGraph()
	field, err := g.Load(gridSource(t, "f", []string{"lat", "lon"}, []int{3, 4}))
	require.NoError(t, err)
	series, err := g.Load(sourceWith(t, "s", []string{"time"}, func() *ndarray.Array {
		a, err := ndarray.FromValues(dtype.Int32, []int{2}, []float64{100, 200})
		require.NoError(t, err)
		return a
	}()))
	require.NoError(t, err)
	c, err := g.Combine("broadcast_add", field, series)
	require.NoError(t, err)

	results, err := New().Materialize(context.Background(), g, []graph.ID{c}, uniform(t, []string{"lat", "lon", "time"}, []int{3, 4, 2}, []int{2, 2, 1}))
	require.NoError(t, err)

	data := results[c].Data
	require.Equal(t, []int{3, 4, 2}, data.Shape)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 2; k++ {
				assert.Equal(t, float64(i*4+j+100*(k+1)), data.At(i, j, k))
			}
		}
	}
	assert.Equal(t, dtype.Float64, results[c].DType)
}

func TestElementwiseAlignsTransposedInputs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	g := newGraph()
	a, err := g.Load(gridSource(t, "a", []string{"lat", "lon"}, []int{3, 4}))
	require.NoError(t, err)
	b, err := g.Load(gridSource(t, "b", []string{"lon", "lat"}, []int{4, 3}))
	require.NoError(t, err)
	sum, err := g.Map("subtract", a, b)
	require.NoError(t, err)

	// --- Act ---
	results, err := New(WithWorkers(2)).Materialize(context.Background(), g, []graph.ID{sum}, uniform(t, []string{"lat", "lon"}, []int{3, 4}, []int{2, 3}))

	// --- Assert ---
	require.NoError(t, err)
	data := results[sum].Data
	require.Equal(t, []int{3, 4}, data.Shape)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, float64(i*4+j)-float64(j*3+i), data.At(i, j), "lat=%d lon=%d", i, j)
		}
	}
}

func TestMaterializationIsIdempotent(t *testing.T) {
	t.Parallel()
	g := newGraph()
	x, err := g.Load(gridSource(t, "t", []string{"lat", "lon"}, []int{5, 5}))
	require.NoError(t, err)
	w, err := g.Map("sqrt", x)
	require.NoError(t, err)
	r, err := g.Reduce("reduce_mean", w, "lon")
	require.NoError(t, err)
	scheme := uniform(t, []string{"lat", "lon"}, []int{5, 5}, []int{2, 2})
	m := New(WithWorkers(4))

	first, err := m.Materialize(context.Background(), g, []graph.ID{r}, scheme)
	require.NoError(t, err)
	second, err := m.Materialize(context.Background(), g, []graph.ID{r}, scheme)
	require.NoError(t, err)

	ledgers := cmp.Comparer(func(a, b provenance.Ledger) bool { return a.Equal(b) })
	if diff := cmp.Diff(first, second, ledgers); diff != "" {
		t.Errorf("second materialization differs (-first +second):\n%s", diff)
	}
	assert.True(t, ndarray.Equal(first[r].Data, second[r].Data))
}

// failingSource fails every read that touches row failRow.
type failingSource struct {
	*source.Memory
	failRow int
}

func (f *failingSource) ReadRegion(ctx context.Context, r ndarray.Region) (*ndarray.Array, error) {
	if r.Start[0] <= f.failRow && f.failRow < r.Stop[0] {
		return nil, errBoom
	}
	return f.Memory.ReadRegion(ctx, r)
}

func TestChunkFailureAbortsEverything(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	g := newGraph()
	x, err := g.Load(&failingSource{Memory: gridSource(t, "t", []string{"lat", "lon"}, []int{4, 4}), failRow: 3})
	require.NoError(t, err)
	s, err := g.Scale(x, 2)
	require.NoError(t, err)
	store := inmemorystore.New()

	// --- Act ---
	results, err := New(WithStore(store), WithWorkers(2)).Materialize(context.Background(), g, []graph.ID{s}, uniform(t, []string{"lat", "lon"}, []int{4, 4}, []int{2, 2}))

	// --- Assert ---
	require.Error(t, err)
	assert.Nil(t, results)
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, x, merr.Node)
	assert.Equal(t, 1, merr.Chunk[0])
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, store.Len(), "no partial chunks may survive a failed run")

	// The graph is usable again after the failure.
	_, err = g.Scale(s, 3)
	assert.NoError(t, err)
}

// cancellingSource cancels the run on its first read.
type cancellingSource struct {
	*source.Memory
	cancel context.CancelFunc
}

func (c *cancellingSource) ReadRegion(ctx context.Context, r ndarray.Region) (*ndarray.Array, error) {
	c.cancel()
	return c.Memory.ReadRegion(context.WithoutCancel(ctx), r)
}

func TestCancellationBetweenChunks(t *testing.T) {
	t.Parallel()

	t.Run("before start", func(t *testing.T) {
		t.Parallel()
		g := newGraph()
		x, err := g.Load(gridSource(t, "t", []string{"x"}, []int{4}))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = New().Materialize(ctx, g, []graph.ID{x}, chunkplan.Scheme{})
		var merr *MaterializationError
		assert.ErrorAs(t, err, &merr)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("mid run", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newGraph()
		src := &cancellingSource{Memory: gridSource(t, "t", []string{"x"}, []int{8}), cancel: cancel}
		x, err := g.Load(src)
		require.NoError(t, err)
		s, err := g.Scale(x, 2)
		require.NoError(t, err)

		_, err = New(WithWorkers(1)).Materialize(ctx, g, []graph.ID{s}, uniform(t, []string{"x"}, []int{8}, []int{1}))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int64(1), src.Reads(), "no chunk may start after cancellation")
	})
}

func TestCycleIsRejectedBeforeScheduling(t *testing.T) {
	t.Parallel()
	g := newGraph()
	src := gridSource(t, "t", []string{"x"}, []int{4})
	x, err := g.Load(src)
	require.NoError(t, err)
	s, err := g.Scale(x, 2)
	require.NoError(t, err)
	require.NoError(t, g.AddDependency(s, x))

	_, err = New().Materialize(context.Background(), g, []graph.ID{s}, chunkplan.Scheme{})
	var cycle *graph.CycleError
	assert.ErrorAs(t, err, &cycle)
	assert.Zero(t, src.Reads())
}

// composingSource tries to extend the graph while it is being read.
type composingSource struct {
	*source.Memory
	g        *graph.Graph
	id       graph.ID
	composed atomic.Pointer[error]
}

func (c *composingSource) ReadRegion(ctx context.Context, r ndarray.Region) (*ndarray.Array, error) {
	_, err := c.g.Scale(c.id, 2)
	c.composed.Store(&err)
	return c.Memory.ReadRegion(ctx, r)
}

func TestGraphIsReadOnlyDuringMaterialization(t *testing.T) {
	t.Parallel()
	g := newGraph()
	src := &composingSource{Memory: gridSource(t, "t", []string{"x"}, []int{4}), g: g}
	x, err := g.Load(src)
	require.NoError(t, err)
	src.id = x

	_, err = New().Materialize(context.Background(), g, []graph.ID{x}, chunkplan.Scheme{})
	require.NoError(t, err)

	composeErr := src.composed.Load()
	require.NotNil(t, composeErr)
	assert.ErrorIs(t, *composeErr, graph.ErrGraphBusy)
	assert.Equal(t, 1, g.Len())
}

func TestOrderingEdgesAreHonoured(t *testing.T) {
	t.Parallel()
	g := newGraph()
	a, err := g.Load(gridSource(t, "a", []string{"x"}, []int{3}))
	require.NoError(t, err)
	b, err := g.Load(gridSource(t, "b", []string{"x"}, []int{3}))
	require.NoError(t, err)
	require.NoError(t, g.AddDependency(a, b))
	sum, err := g.Map("add", a, b)
	require.NoError(t, err)

	results, err := New(WithWorkers(2)).Materialize(context.Background(), g, []graph.ID{sum, a}, chunkplan.Scheme{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 4}, results[sum].Data.Data)
	assert.Equal(t, []float64{0, 1, 2}, results[a].Data.Data)
}

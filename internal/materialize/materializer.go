// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package materialize

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/lineagegrid/internal/chunkplan"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/inmemorystore"
	"github.com/specialistvlad/lineagegrid/internal/ndarray"
	"github.com/specialistvlad/lineagegrid/internal/nodestore"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Materializer executes graphs. It is safe for concurrent use; every call
// to Materialize writes under its own run id.
type Materializer struct {
	store   nodestore.Store
	workers int
	metrics instruments
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithStore sets the chunk store. The default is an in-memory store.
func WithStore(s nodestore.Store) Option {
	return func(m *Materializer) { m.store = s }
}

// WithWorkers bounds the number of chunk tasks evaluated at once. Values
// below 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(m *Materializer) { m.workers = n }
}

// New returns a materializer.
func New(opts ...Option) *Materializer {
	m := &Materializer{}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = inmemorystore.New()
	}
	if m.workers < 1 {
		m.workers = runtime.NumCPU()
	}
	return m
}

// Workers returns the size of the worker pool.
func (m *Materializer) Workers() int {
	return m.workers
}

// nodeRun is the execution state of one node within one run.
type nodeRun struct {
	node    *graph.Node
	scheme  chunkplan.Scheme
	parents []*nodeRun
	deps    []*nodeRun
	fn      ops.Func
	reducer *ops.Reducer

	dependents []*nodeRun
	isRoot     bool
	// pending counts unfinished dependencies; chunks counts unfinished
	// chunks of this node; consumers counts dependents that still need
	// this node's chunks.
	pending   atomic.Int32
	chunks    atomic.Int64
	consumers atomic.Int32
}

type task struct {
	run *nodeRun
	idx []int
}

type execution struct {
	m         *Materializer
	id        string
	nodes     map[graph.ID]*nodeRun
	order     []*nodeRun
	tasks     chan task
	remaining atomic.Int32
	closeOnce sync.Once
}

// Materialize evaluates roots chunk by chunk and returns one Result per
// root. The graph is read-only for the duration of the call. scheme
// proposes the chunking: a node dimension uses the scheme's extents when
// the scheme has a dimension of that name and size, and a single chunk
// otherwise.
func (m *Materializer) Materialize(ctx context.Context, g *graph.Graph, roots []graph.ID, scheme chunkplan.Scheme) (map[graph.ID]*Result, error) {
	logger := ctxlog.FromContext(ctx)
	m.metrics.init(ctx, logger)
	start := time.Now()

	release := g.BeginMaterialization()
	defer release()

	ex := &execution{m: m, id: uuid.NewString(), nodes: make(map[graph.ID]*nodeRun)}
	ctx = ctxlog.With(ctx, "run", ex.id)
	logger = ctxlog.FromContext(ctx)

	ctx, span := tracer.Start(ctx, "materialize.Materialize", trace.WithAttributes(
		attribute.String("run_id", ex.id),
		attribute.Int("roots", len(roots)),
		attribute.String("scheme", scheme.String()),
	))
	defer span.End()

	if err := ex.prepare(g, roots, scheme); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer ex.releaseAll(ctx)

	total := 0
	for _, nr := range ex.order {
		total += int(nr.chunks.Load())
	}
	logger.Info("🚀 Materialization started.", "nodes", len(ex.order), "chunks", total, "workers", m.workers)

	if err := ex.run(ctx, total); err != nil {
		logger.Error("Materialization failed.", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results := make(map[graph.ID]*Result, len(roots))
	for _, id := range roots {
		nr := ex.nodes[id]
		data, err := ex.gather(ctx, nr, ndarray.Full(nr.node.Shape))
		if err != nil {
			merr := &MaterializationError{Node: id, Op: nr.node.Op.Name, Err: fmt.Errorf("assemble result: %w", err)}
			span.RecordError(merr)
			span.SetStatus(codes.Error, merr.Error())
			return nil, merr
		}
		results[id] = newResult(nr.node, data)
	}

	if m.metrics.runTime != nil {
		m.metrics.runTime.Record(ctx, time.Since(start).Seconds())
	}
	span.SetStatus(codes.Ok, "")
	logger.Info("🏁 Materialization finished.", "roots", len(results), "chunks", total, "duration", time.Since(start))
	return results, nil
}

// prepare orders the reachable subgraph and builds the per-node state.
func (ex *execution) prepare(g *graph.Graph, roots []graph.ID, scheme chunkplan.Scheme) error {
	order, err := g.TopoOrder(roots)
	if err != nil {
		return fmt.Errorf("cannot materialize: %w", err)
	}

	for _, id := range order {
		n, _ := g.Node(id)
		if !n.Resolved() {
			return &MaterializationError{Node: id, Op: n.Op.Name, Err: fmt.Errorf("shape %v of dims %v is not resolved", n.Shape, n.Dims)}
		}
		nr := &nodeRun{node: n, scheme: nodeScheme(n, scheme)}
		if err := ex.bindKernel(g, nr); err != nil {
			return &MaterializationError{Node: id, Op: n.Op.Name, Err: err}
		}
		for _, p := range n.Parents {
			nr.parents = append(nr.parents, ex.nodes[p])
		}
		for _, dep := range g.Dependencies(id) {
			d := ex.nodes[dep]
			d.dependents = append(d.dependents, nr)
			d.consumers.Add(1)
			nr.deps = append(nr.deps, d)
		}
		nr.pending.Store(int32(len(nr.deps)))
		nr.chunks.Store(int64(nr.scheme.ChunkCount()))
		ex.nodes[id] = nr
		ex.order = append(ex.order, nr)
	}
	for _, id := range roots {
		ex.nodes[id].isRoot = true
	}
	ex.remaining.Store(int32(len(ex.order)))
	return nil
}

func (ex *execution) bindKernel(g *graph.Graph, nr *nodeRun) error {
	op := nr.node.Op
	switch op.Kind {
	case ops.SourceLoad:
		if nr.node.Source == nil {
			return errors.New("leaf node has no source")
		}
	case ops.ElementwiseMap, ops.BroadcastCombine:
		def, err := g.Registry().Lookup(op.Name)
		if err != nil {
			return err
		}
		nr.fn, err = def.Elementwise(op)
		if err != nil {
			return err
		}
	case ops.Reduction:
		def, err := g.Registry().Lookup(op.Name)
		if err != nil {
			return err
		}
		nr.reducer = def.Reducer
	case ops.CoordinateTransform:
	default:
		return &ops.UnknownOperationError{Name: op.Name}
	}
	return nil
}

// nodeScheme derives the chunk grid of n from the proposed scheme.
func nodeScheme(n *graph.Node, proposed chunkplan.Scheme) chunkplan.Scheme {
	s := chunkplan.Scheme{Dims: n.Dims, Extents: make([][]int, len(n.Dims))}
	for i, d := range n.Dims {
		if ext, ok := proposed.ExtentsFor(d, n.Shape[i]); ok {
			s.Extents[i] = ext
		} else {
			s.Extents[i] = []int{n.Shape[i]}
		}
	}
	return s
}

// run drives the worker pool until every node finished or a task failed.
func (ex *execution) run(ctx context.Context, total int) error {
	logger := ctxlog.FromContext(ctx)
	if len(ex.order) == 0 {
		return nil
	}
	ex.tasks = make(chan task, total)
	var ready []*nodeRun
	for _, nr := range ex.order {
		if nr.pending.Load() == 0 {
			ready = append(ready, nr)
		}
	}
	for _, nr := range ready {
		ex.enqueue(ctx, nr)
	}

	eg, gctx := errgroup.WithContext(ctx)
	logger.Debug("Starting worker pool.", "workers", ex.m.workers)
	for i := 0; i < ex.m.workers; i++ {
		workerID := i
		eg.Go(func() error {
			return ex.worker(gctx, workerID)
		})
	}
	return eg.Wait()
}

func (ex *execution) enqueue(ctx context.Context, nr *nodeRun) {
	if nr.chunks.Load() == 0 {
		ex.finishNode(ctx, nr)
		return
	}
	for _, idx := range nr.scheme.Indices() {
		ex.tasks <- task{run: nr, idx: idx}
	}
}

func (ex *execution) worker(ctx context.Context, workerID int) error {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	for {
		select {
		case <-ctx.Done():
			return &MaterializationError{Node: graph.NoID, Err: ctx.Err()}
		case t, ok := <-ex.tasks:
			if !ok {
				return nil
			}
			if err := ctx.Err(); err != nil {
				logger.Warn("Context canceled, skipping chunk.", "node", t.run.node.ID.String(), "chunk", t.idx)
				return &MaterializationError{Node: t.run.node.ID, Op: t.run.node.Op.Name, Chunk: t.idx, Err: err}
			}
			if err := ex.runTask(ctx, t); err != nil {
				logger.Error("Chunk evaluation failed.", "node", t.run.node.ID.String(), "chunk", t.idx, "error", err)
				return &MaterializationError{Node: t.run.node.ID, Op: t.run.node.Op.Name, Chunk: t.idx, Err: err}
			}
			if t.run.chunks.Add(-1) == 0 {
				ex.finishNode(ctx, t.run)
			}
		}
	}
}

func (ex *execution) runTask(ctx context.Context, t task) error {
	n := t.run.node
	in := &ex.m.metrics
	attrs := metric.WithAttributes(attribute.String("op", n.Op.Name), attribute.String("kind", n.Op.Kind.String()))

	ctx, span := tracer.Start(ctx, "materialize.chunk", trace.WithAttributes(
		attribute.String("node", n.ID.String()),
		attribute.String("op", n.Op.Name),
		attribute.IntSlice("chunk", t.idx),
	))
	defer span.End()
	if in.activeTasks != nil {
		in.activeTasks.Add(ctx, 1)
		defer in.activeTasks.Add(ctx, -1)
	}

	start := time.Now()
	block, err := ex.evaluate(ctx, t.run, t.idx)
	if err == nil {
		err = ex.m.store.Put(ctx, ex.key(t.run, t.idx), block)
	}
	if in.chunkTime != nil {
		in.chunkTime.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if err != nil {
		if in.failures != nil {
			in.failures.Add(ctx, 1, attrs)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if in.chunks != nil {
		in.chunks.Add(ctx, 1, attrs)
		in.chunkBytes.Add(ctx, block.Bytes(), attrs)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// finishNode unlocks dependents, releases parents nobody needs any more and
// closes the task queue once the last node is done.
func (ex *execution) finishNode(ctx context.Context, nr *nodeRun) {
	for _, d := range nr.dependents {
		if d.pending.Add(-1) == 0 {
			ex.enqueue(ctx, d)
		}
	}
	for _, p := range nr.deps {
		if p.consumers.Add(-1) == 0 && !p.isRoot {
			if err := ex.m.store.Release(ctx, ex.id, int(p.node.ID)); err != nil {
				ctxlog.FromContext(ctx).Warn("Failed to release chunks.", "node", p.node.ID.String(), "error", err)
			}
		}
	}
	if ex.remaining.Add(-1) == 0 {
		ex.closeOnce.Do(func() { close(ex.tasks) })
	}
}

func (ex *execution) releaseAll(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for _, nr := range ex.order {
		if err := ex.m.store.Release(ctx, ex.id, int(nr.node.ID)); err != nil {
			logger.Warn("Failed to release chunks.", "node", nr.node.ID.String(), "error", err)
		}
	}
}

func (ex *execution) key(nr *nodeRun, idx []int) nodestore.Key {
	return nodestore.Key{Run: ex.id, Node: int(nr.node.ID), Chunk: idx}
}

// gather assembles region r of a finished node from its stored chunks.
func (ex *execution) gather(ctx context.Context, nr *nodeRun, r ndarray.Region) (*ndarray.Array, error) {
	out := ndarray.New(nr.node.DType, r.Shape())
	if out.Len() == 0 {
		return out, nil
	}
	for _, idx := range nr.scheme.Overlapping(r) {
		chunk := nr.scheme.Region(idx)
		inter, ok := r.Intersect(chunk)
		if !ok {
			continue
		}
		block, err := ex.m.store.Get(ctx, ex.key(nr, idx))
		if err != nil {
			return nil, err
		}
		ndarray.CopyRegion(out, inter.Translate(r.Start).Start, block, inter.Translate(chunk.Start).Start, inter.Shape())
	}
	return out, nil
}

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/lineagegrid/internal/badgerstore"
	"github.com/specialistvlad/lineagegrid/internal/chunkplan"
	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/inmemorystore"
	"github.com/specialistvlad/lineagegrid/internal/materialize"
	"github.com/specialistvlad/lineagegrid/internal/nodestore"
	"github.com/specialistvlad/lineagegrid/internal/source"
	"github.com/specialistvlad/lineagegrid/internal/validate"
)

// Session runs materializations under one set of engine options.
type Session struct {
	opts         config.Options
	policy       validate.Policy
	store        nodestore.Store
	materializer *materialize.Materializer
}

// New creates a session. Intermediate chunks are kept in memory, or spilled
// to a BadgerDB directory when opts.SpillDir is set.
func New(ctx context.Context, opts config.Options) (*Session, error) {
	logger := ctxlog.FromContext(ctx)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine options: %w", err)
	}
	policy, err := validate.NewPolicy(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid severity policy: %w", err)
	}

	var store nodestore.Store
	if opts.SpillDir != "" {
		cfg := badgerstore.DefaultConfig(opts.SpillDir)
		cfg.Logger = logger
		spill, err := badgerstore.OpenStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open spill store: %w", err)
		}
		store = spill
		logger.Debug("Using on-disk chunk store.", "path", opts.SpillDir)
	} else {
		store = inmemorystore.New()
		logger.Debug("Using in-memory chunk store.")
	}

	return &Session{
		opts:   opts,
		policy: policy,
		store:  store,
		materializer: materialize.New(
			materialize.WithStore(store),
			materialize.WithWorkers(opts.Workers),
		),
	}, nil
}

// Options returns the engine options of the session.
func (s *Session) Options() config.Options {
	return s.opts
}

// Close releases the chunk store.
func (s *Session) Close() error {
	return s.store.Close()
}

// Plan returns the chunk scheme for materializing roots: the planner's
// scheme for the largest resolved array of the subgraph. Nodes whose dims
// do not match it are evaluated as single chunks.
func (s *Session) Plan(g *graph.Graph, roots []graph.ID) (chunkplan.Scheme, error) {
	order, err := g.TopoOrder(roots)
	if err != nil {
		return chunkplan.Scheme{}, err
	}
	var largest *graph.Node
	for _, id := range order {
		n, ok := g.Node(id)
		if !ok || !n.Resolved() || len(n.Shape) == 0 {
			continue
		}
		if largest == nil || n.Bytes() > largest.Bytes() {
			largest = n
		}
	}
	if largest == nil {
		return chunkplan.Scheme{}, nil
	}
	return chunkplan.Plan(largest.Dims, largest.Shape, largest.DType.Size(), s.opts.TargetChunkBytes)
}

// Run validates, plans and materializes targets. A graph rejected by the
// static gate returns the report together with a *validate.Error; results
// failing the result gate are returned with Usable set to false.
func (s *Session) Run(ctx context.Context, g *graph.Graph, targets []Target) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	started := time.Now()
	report := &Report{}

	roots := make([]graph.ID, len(targets))
	for i, t := range targets {
		roots[i] = t.Node
	}
	logger.Info("🚀 Materialization session started.", "targets", len(targets), "workers", s.materializer.Workers())

	checks := []validate.Option{validate.WithOptions(s.opts), validate.WithPolicy(s.policy)}
	report.Static = validate.CheckStatic(g, roots, checks...)
	for _, v := range report.Static {
		logger.Warn("Static validation finding.", "violation", v.String())
	}
	if err := validate.Escalate(report.Static); err != nil {
		report.Elapsed = time.Since(started)
		return report, fmt.Errorf("static validation rejected the graph: %w", err)
	}

	scheme, err := s.Plan(g, roots)
	if err != nil {
		report.Elapsed = time.Since(started)
		return report, fmt.Errorf("failed to plan chunks: %w", err)
	}
	report.Scheme = scheme
	logger.Debug("Chunk scheme planned.", "scheme", scheme.String(), "chunks", scheme.ChunkCount())

	results, err := s.materializer.Materialize(ctx, g, roots, scheme)
	if err != nil {
		report.Elapsed = time.Since(started)
		return report, err
	}

	for _, t := range targets {
		res := results[t.Node]
		violations := validate.CheckResult(res, sourceMetas(g, t.Node), checks...)
		outcome := Outcome{
			Name:       t.Name,
			Result:     res,
			Violations: violations,
			Usable:     validate.Escalate(violations) == nil,
		}
		for _, v := range violations {
			logger.Warn("Result validation finding.", "output", t.Name, "violation", v.String())
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Elapsed = time.Since(started)
	logger.Info("🏁 Materialization session finished.", "outputs", len(report.Outcomes), "usable", report.Usable(), "elapsed", report.Elapsed)
	return report, nil
}

func sourceMetas(g *graph.Graph, id graph.ID) []source.Meta {
	var out []source.Meta
	for _, sid := range g.SourceAncestors(id) {
		if n, ok := g.Node(sid); ok && n.Source != nil {
			out = append(out, n.Source.Meta())
		}
	}
	return out
}

package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/dag"
	"github.com/specialistvlad/lineagegrid/internal/graph"
	"github.com/specialistvlad/lineagegrid/internal/model"
	"github.com/specialistvlad/lineagegrid/internal/ops"
	"github.com/specialistvlad/lineagegrid/internal/source"
	"github.com/specialistvlad/lineagegrid/internal/trajectory"
)

// ErrNoOutputs is returned for pipelines whose graph has no node to
// materialize.
var ErrNoOutputs = errors.New("pipeline has no outputs")

// BuildGraph constructs the lazy graph of a pipeline. Sources are opened
// through catalog; operations come from registry.
func BuildGraph(ctx context.Context, p *model.Pipeline, catalog *source.Catalog, registry *ops.Registry, opts config.Options) (*Build, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "sources", len(p.Sources), "steps", len(p.Steps))

	d := dag.New()
	registerNodes(p, d)
	logger.Debug("Build: Node registration complete.", "node_count", d.Len())

	links, err := linkNodes(ctx, p, d)
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &graph.CycleError{Path: cycle.Path}
		}
		return nil, err
	}

	order, err := d.TopologicalSort()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &graph.CycleError{Path: cycle.Path}
		}
		return nil, fmt.Errorf("error validating pipeline graph: %w", err)
	}
	logger.Debug("Build: Cycle detection passed.", "order", order)

	b := &Build{
		Graph:    graph.New(registry, opts),
		Nodes:    make(map[string]graph.ID, len(order)),
		Order:    order,
		pipeline: p,
	}
	for _, addr := range order {
		if err := b.compose(ctx, addr, links, catalog); err != nil {
			return nil, err
		}
	}

	if err := b.resolveOutputs(d); err != nil {
		return nil, err
	}
	if err := b.resolveTrajectories(); err != nil {
		return nil, err
	}

	logger.Info("Build: Graph construction successful.", "nodes", b.Graph.Len(), "outputs", len(b.Outputs), "trajectories", len(b.Trajectories))
	return b, nil
}

func (b *Build) compose(ctx context.Context, addr string, links map[string]*stepLinks, catalog *source.Catalog) error {
	logger := ctxlog.FromContext(ctx).With("node_id", addr)

	if l, ok := links[addr]; ok {
		step := b.stepAt(addr)
		params, diags := step.ParamValues()
		if diags.HasErrors() {
			return fmt.Errorf("%s in %s: %w", addr, step.FSInformation.FilePath, diags)
		}
		parents := make([]graph.ID, len(l.inputs))
		for i, in := range l.inputs {
			parents[i] = b.Nodes[in]
		}
		id, err := b.Graph.ComposeAs(step.Name, step.Op, params, parents...)
		if err != nil {
			return fmt.Errorf("%s in %s: %w", addr, step.FSInformation.FilePath, err)
		}
		for _, dep := range l.dependsOn {
			if err := b.Graph.AddDependency(b.Nodes[dep], id); err != nil {
				return fmt.Errorf("%s in %s: %w", addr, step.FSInformation.FilePath, err)
			}
		}
		b.Nodes[addr] = id
		logger.Debug("Composed step.", "node", id.String(), "op", step.Op, "parents", parents)
		return nil
	}

	for _, s := range b.pipeline.Sources {
		if s.Address() != addr {
			continue
		}
		src, err := catalog.Open(ctx, s.Location, s.Variable)
		if err != nil {
			return fmt.Errorf("%s in %s: %w", addr, s.FSInformation.FilePath, err)
		}
		id, err := b.Graph.LoadAs(s.Name, src)
		if err != nil {
			return fmt.Errorf("%s in %s: %w", addr, s.FSInformation.FilePath, err)
		}
		b.Nodes[addr] = id
		logger.Debug("Loaded source.", "node", id.String(), "location", s.Location)
		return nil
	}
	return fmt.Errorf("internal error: no block for address '%s'", addr)
}

func (b *Build) stepAt(addr string) *model.Step {
	for _, s := range b.pipeline.Steps {
		if s.Address() == addr {
			return s
		}
	}
	return nil
}

// resolveOutputs maps output blocks to nodes. A pipeline without output
// blocks materializes its sinks: every block nothing else references.
func (b *Build) resolveOutputs(d *dag.Graph) error {
	p := b.pipeline
	if len(p.Outputs) == 0 {
		for _, addr := range b.Order {
			dependents, err := d.Dependents(addr)
			if err != nil {
				return err
			}
			if len(dependents) == 0 {
				b.Outputs = append(b.Outputs, Output{Name: addr, Node: b.Nodes[addr]})
			}
		}
		if len(b.Outputs) == 0 {
			return ErrNoOutputs
		}
		return nil
	}

	for _, o := range p.Outputs {
		target, diags := o.Target()
		if diags.HasErrors() {
			return fmt.Errorf("output.%s in %s: %w", o.Name, o.FSInformation.FilePath, diags)
		}
		id, ok := b.Nodes[target.String()]
		if !ok {
			return fmt.Errorf("output.%s in %s references undeclared '%s'", o.Name, o.FSInformation.FilePath, target)
		}
		b.Outputs = append(b.Outputs, Output{Name: o.Name, Node: id})
	}
	return nil
}

// resolveTrajectories binds trajectory blocks to the nodes of their
// velocity components. A component that is not an output yet is added as
// one under its block address so the session materializes it.
func (b *Build) resolveTrajectories() error {
	for _, t := range b.pipeline.Trajectories {
		u, v, diags := t.Fields()
		if diags.HasErrors() {
			return fmt.Errorf("%s in %s: %w", t.Address(), t.FSInformation.FilePath, diags)
		}
		bound := Trajectory{
			Name:  t.Name,
			Start: trajectory.Point{Lat: t.Start.Lat, Lon: t.Start.Lon},
			Steps: t.Steps,
		}
		for _, f := range []struct {
			addr string
			id   *graph.ID
		}{{u.String(), &bound.U}, {v.String(), &bound.V}} {
			id, ok := b.Nodes[f.addr]
			if !ok {
				return fmt.Errorf("%s in %s references undeclared '%s'", t.Address(), t.FSInformation.FilePath, f.addr)
			}
			*f.id = id
			b.ensureOutput(f.addr, id)
		}
		b.Trajectories = append(b.Trajectories, bound)
	}
	return nil
}

func (b *Build) ensureOutput(name string, id graph.ID) {
	for _, o := range b.Outputs {
		if o.Node == id {
			return
		}
	}
	b.Outputs = append(b.Outputs, Output{Name: name, Node: id})
}

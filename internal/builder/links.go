package builder

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/dag"
	"github.com/specialistvlad/lineagegrid/internal/hclutil"
	"github.com/specialistvlad/lineagegrid/internal/model"
)

// stepLinks are the resolved references of one step.
type stepLinks struct {
	inputs    []string
	dependsOn []string
}

// registerNodes adds a dag vertex for every source and step.
func registerNodes(p *model.Pipeline, d *dag.Graph) {
	for _, s := range p.Sources {
		d.AddNode(s.Address())
	}
	for _, s := range p.Steps {
		d.AddNode(s.Address())
	}
}

// linkNodes resolves the references of every step into dag edges.
func linkNodes(ctx context.Context, p *model.Pipeline, d *dag.Graph) (map[string]*stepLinks, error) {
	logger := ctxlog.FromContext(ctx)
	links := make(map[string]*stepLinks, len(p.Steps))

	for _, step := range p.Steps {
		id := step.Address()
		inputs, diags := step.InputAddresses()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s in %s: %w", id, step.FSInformation.FilePath, diags)
		}
		deps, diags := step.DependsOnAddresses()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s in %s: %w", id, step.FSInformation.FilePath, diags)
		}

		l := &stepLinks{}
		for _, addr := range inputs {
			if err := link(d, step, addr); err != nil {
				return nil, err
			}
			l.inputs = append(l.inputs, addr.String())
			logger.Debug("Linked implicit dependency.", "node_id", id, "input", addr.String())
		}
		for _, addr := range deps {
			if addr.Kind != "step" {
				return nil, fmt.Errorf("%s in %s: depends_on entries must reference steps, got '%s'", id, step.FSInformation.FilePath, addr)
			}
			if err := link(d, step, addr); err != nil {
				return nil, err
			}
			l.dependsOn = append(l.dependsOn, addr.String())
			logger.Debug("Linked explicit dependency.", "node_id", id, "depends_on", addr.String())
		}
		links[id] = l
	}
	return links, nil
}

func link(d *dag.Graph, step *model.Step, addr hclutil.Address) error {
	from := addr.String()
	if !d.HasNode(from) {
		return fmt.Errorf("%s in %s references undeclared '%s': %w", step.Address(), step.FSInformation.FilePath, from, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Reference to undeclared block",
			Detail:   fmt.Sprintf("No block named %s is declared in this pipeline.", from),
			Subject:  addr.Range.Ptr(),
		}})
	}
	return d.AddEdge(from, step.Address())
}

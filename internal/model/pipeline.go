// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Pipeline structure, the root container for every
// block loaded from a workspace of .hcl files. Blocks may be spread across
// files; references between them are resolved later against the whole
// Pipeline, so loading aggregates everything first.
package model

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/specialistvlad/lineagegrid/internal/ctxlog"
	"github.com/specialistvlad/lineagegrid/internal/fsutil"
	"github.com/specialistvlad/lineagegrid/internal/hclutil"
)

// Pipeline represents the user's pipeline definition.
type Pipeline struct {
	// Engine is the body of the single `engine` block, or nil.
	Engine  hcl.Body
	Sources []*Source
	Steps   []*Step
	Outputs []*Output
	// Trajectories are evaluated on materialized velocity fields after
	// the graph has run.
	Trajectories []*Trajectory
	Files        []string
}

// NewPipeline creates and returns an initialized Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Sources:      []*Source{},
		Steps:        []*Step{},
		Outputs:      []*Output{},
		Trajectories: []*Trajectory{},
	}
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "engine"},
		{Type: "source", LabelNames: []string{"name"}},
		{Type: "step", LabelNames: []string{"op", "name"}},
		{Type: "output", LabelNames: []string{"name"}},
		{Type: "trajectory", LabelNames: []string{"name"}},
	},
}

// Options overlays the engine block onto base.
func (p *Pipeline) Options(base config.Options) (config.Options, error) {
	return config.Decode(p.Engine, base)
}

// Source returns the source named name.
func (p *Pipeline) Source(name string) (*Source, bool) {
	for _, s := range p.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Step returns the step with the given op and name.
func (p *Pipeline) Step(op, name string) (*Step, bool) {
	for _, s := range p.Steps {
		if s.Op == op && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Trajectory returns the trajectory named name.
func (p *Pipeline) Trajectory(name string) (*Trajectory, bool) {
	for _, t := range p.Trajectories {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Load finds and parses all .hcl files under path (a file or a directory)
// into a Pipeline.
func Load(ctx context.Context, path string) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline from path", "path", path)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find pipeline files in %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl pipeline files found in %s", path)
	}

	parser := hclparse.NewParser()
	pipeline := NewPipeline()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := pipeline.add(f.Body, file); err != nil {
			return nil, err
		}
	}

	logger.Debug("Pipeline loaded.", "files", len(files), "sources", len(pipeline.Sources), "steps", len(pipeline.Steps), "outputs", len(pipeline.Outputs), "trajectories", len(pipeline.Trajectories))
	return pipeline, nil
}

// Parse reads a single pipeline file from memory.
func Parse(filename string, src []byte) (*Pipeline, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	pipeline := NewPipeline()
	if err := pipeline.add(f.Body, filename); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// add decodes the blocks of one file body into p.
func (p *Pipeline) add(body hcl.Body, filePath string) error {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}

	engine, engineDiags := hclutil.FindUniqueBlock(content.Blocks, "engine")
	diags = append(diags, engineDiags...)
	if engine != nil {
		if p.Engine != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"engine\" block",
				Detail:   "Only one \"engine\" block is allowed per pipeline.",
				Subject:  engine.DefRange.Ptr(),
			})
		}
		p.Engine = engine.Body
	}

	for _, block := range content.Blocks {
		switch block.Type {
		case "source":
			src, srcDiags := NewSourceFromHCL(block, filePath)
			diags = append(diags, srcDiags...)
			if src == nil {
				continue
			}
			if prev, dup := p.Source(src.Name); dup {
				diags = append(diags, duplicate(src.Address(), block.DefRange, prev.DeclRange))
				continue
			}
			p.Sources = append(p.Sources, src)

		case "step":
			step, stepDiags := NewStepFromHCL(block, filePath)
			diags = append(diags, stepDiags...)
			if step == nil {
				continue
			}
			if prev, dup := p.Step(step.Op, step.Name); dup {
				diags = append(diags, duplicate(step.Address(), block.DefRange, prev.DeclRange))
				continue
			}
			p.Steps = append(p.Steps, step)

		case "output":
			out, outDiags := NewOutputFromHCL(block, filePath)
			diags = append(diags, outDiags...)
			if out == nil {
				continue
			}
			for _, prev := range p.Outputs {
				if prev.Name == out.Name {
					diags = append(diags, duplicate("output."+out.Name, block.DefRange, prev.DeclRange))
					out = nil
					break
				}
			}
			if out != nil {
				p.Outputs = append(p.Outputs, out)
			}

		case "trajectory":
			t, tDiags := NewTrajectoryFromHCL(block, filePath)
			diags = append(diags, tDiags...)
			if t == nil {
				continue
			}
			if prev, dup := p.Trajectory(t.Name); dup {
				diags = append(diags, duplicate(t.Address(), block.DefRange, prev.DeclRange))
				continue
			}
			p.Trajectories = append(p.Trajectories, t)
		}
	}

	if diags.HasErrors() {
		return fmt.Errorf("error in pipeline file %s: %w", filePath, diags)
	}
	p.Files = append(p.Files, filePath)
	return nil
}

func duplicate(addr string, at, prev hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Duplicate block",
		Detail:   fmt.Sprintf("%s is already declared at %s.", addr, prev),
		Subject:  at.Ptr(),
	}
}

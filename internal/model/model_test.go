// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/lineagegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const basicPipeline = `
engine {
  workers = 3
}

source "t2m" {
  location = "synthetic://ramp?dims=lat:4,lon:8"
  variable = "TMP"
}

step "scale" "kelvin" {
  input  = source.t2m
  params = { factor = 2 }
}

step "reduce_mean" "zonal" {
  inputs     = [step.scale.kelvin]
  params     = { dims = ["lon"] }
  depends_on = [step.scale.kelvin]
}

output "zonal" {
  value = step.reduce_mean.zonal
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseBasicPipeline(t *testing.T) {
	t.Parallel()

	// --- Act ---
	p, err := Parse("main.hcl", []byte(basicPipeline))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, p.Sources, 1)
	require.Len(t, p.Steps, 2)
	require.Len(t, p.Outputs, 1)
	assert.Equal(t, []string{"main.hcl"}, p.Files)

	src := p.Sources[0]
	assert.Equal(t, "source.t2m", src.Address())
	assert.Equal(t, "TMP", src.Variable)
	assert.Equal(t, "main.hcl", src.FSInformation.FilePath)

	scale, ok := p.Step("scale", "kelvin")
	require.True(t, ok)
	inputs, diags := scale.InputAddresses()
	require.False(t, diags.HasErrors())
	require.Len(t, inputs, 1)
	assert.Equal(t, "source.t2m", inputs[0].String())
	params, diags := scale.ParamValues()
	require.False(t, diags.HasErrors())
	require.Equal(t, cty.Number, params["factor"].Type())
	factor, _ := params["factor"].AsBigFloat().Float64()
	assert.Equal(t, 2.0, factor)

	zonal, ok := p.Step("reduce_mean", "zonal")
	require.True(t, ok)
	deps, diags := zonal.DependsOnAddresses()
	require.False(t, diags.HasErrors())
	require.Len(t, deps, 1)
	assert.Equal(t, "step.scale.kelvin", deps[0].String())
	assert.Len(t, zonal.Expressions.Addresses(), 1)

	target, diags := p.Outputs[0].Target()
	require.False(t, diags.HasErrors())
	assert.Equal(t, "step.reduce_mean.zonal", target.String())

	opts, err := p.Options(config.Default())
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Workers)
}

func TestInputsKeepDeclarationOrder(t *testing.T) {
	t.Parallel()
	p, err := Parse("order.hcl", []byte(`
step "add" "sum" {
  inputs = [step.scale.b, source.a, step.scale.b]
}
`))
	require.NoError(t, err)

	inputs, diags := p.Steps[0].InputAddresses()
	require.False(t, diags.HasErrors())
	got := make([]string, len(inputs))
	for i, a := range inputs {
		got[i] = a.String()
	}
	assert.Equal(t, []string{"step.scale.b", "source.a", "step.scale.b"}, got)

	params, diags := p.Steps[0].ParamValues()
	require.False(t, diags.HasErrors())
	assert.Empty(t, params)
}

func TestParseRejectsInvalidPipelines(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "source without location",
			src:     `source "a" {}`,
			wantErr: `Missing required argument`,
		},
		{
			name:    "non-literal location",
			src:     `source "a" { location = 5 }`,
			wantErr: `must be a literal string`,
		},
		{
			name:    "input and inputs",
			src:     `step "scale" "s" { input = source.a ` + "\n" + ` inputs = [source.a] }`,
			wantErr: `Conflicting input arguments`,
		},
		{
			name:    "depends_on not a list",
			src:     `step "scale" "s" { depends_on = step.scale.t }`,
			wantErr: `Invalid depends_on value`,
		},
		{
			name:    "function call",
			src:     `step "scale" "s" { params = { factor = abs(-2) } }`,
			wantErr: `Function calls are not supported`,
		},
		{
			name:    "unknown attribute",
			src:     `step "scale" "s" { count = 2 }`,
			wantErr: `Unsupported argument`,
		},
		{
			name:    "duplicate step",
			src:     "step \"scale\" \"s\" {}\nstep \"scale\" \"s\" {}",
			wantErr: `step.scale.s is already declared`,
		},
		{
			name:    "duplicate engine",
			src:     "engine {}\nengine {}",
			wantErr: `Duplicate "engine" block`,
		},
		{
			name:    "trajectory with negative steps",
			src:     `trajectory "p" {` + "\n" + `u = source.u` + "\n" + `v = source.v` + "\n" + `start = { lat = 0, lon = 0 }` + "\n" + `steps = -1 }`,
			wantErr: `Invalid steps value`,
		},
		{
			name:    "trajectory start without lon",
			src:     `trajectory "p" {` + "\n" + `u = source.u` + "\n" + `v = source.v` + "\n" + `start = { lat = 0 }` + "\n" + `steps = 1 }`,
			wantErr: `lon`,
		},
		{
			name:    "unknown block",
			src:     `runner "http" {}`,
			wantErr: `Unsupported block type`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("bad.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseTrajectory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := `
source "u" { location = "mem://u" }
source "v" { location = "mem://v" }

step "scale" "v_ms" {
  input  = source.v
  params = { factor = 0.5 }
}

trajectory "drift" {
  u     = source.u
  v     = step.scale.v_ms
  start = { lat = 40, lon = -120.5 }
  steps = 10
}
`

	// --- Act ---
	p, err := Parse("main.hcl", []byte(src))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, p.Trajectories, 1)
	tr, ok := p.Trajectory("drift")
	require.True(t, ok)
	assert.Equal(t, "trajectory.drift", tr.Address())
	assert.Equal(t, Position{Lat: 40, Lon: -120.5}, tr.Start)
	assert.Equal(t, 10, tr.Steps)
	u, v, diags := tr.Fields()
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "source.u", u.String())
	assert.Equal(t, "step.scale.v_ms", v.String())
}

func TestInvalidReferences(t *testing.T) {
	t.Parallel()
	p, err := Parse("refs.hcl", []byte(`
step "scale" "s" {
  inputs = [source.a, "literal"]
  params = ["not", "an", "object"]
}
output "o" {
  value = output.other
}
`))
	require.NoError(t, err, "references are only checked when resolved")

	_, diags := p.Steps[0].InputAddresses()
	assert.Contains(t, diags.Error(), "Invalid reference")
	_, diags = p.Steps[0].ParamValues()
	assert.Contains(t, diags.Error(), "Invalid params value")
	_, diags = p.Outputs[0].Target()
	assert.True(t, diags.HasErrors())
}

func TestLoadAggregatesFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, dir, "a_sources.hcl", `source "a" { location = "mem://a" }`)
	writeFile(t, dir, "b_steps.hcl", `
step "scale" "s" { input = source.a }
output "s" { value = step.scale.s }
`)
	writeFile(t, dir, "README.md", "not a pipeline")

	// --- Act ---
	p, err := Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, p.Files, 2)
	assert.Len(t, p.Sources, 1)
	assert.Len(t, p.Steps, 1)
	assert.Nil(t, p.Engine)

	opts, err := p.Options(config.Default())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), opts)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .hcl pipeline files")

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to find pipeline files")

	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `source "a" { location = "mem://a" }`)
	writeFile(t, dir, "b.hcl", `source "a" { location = "mem://b" }`)
	_, err = Load(context.Background(), dir)
	assert.ErrorContains(t, err, "source.a is already declared")

	broken := writeFile(t, t.TempDir(), "broken.hcl", `source "a" {`)
	_, err = Load(context.Background(), broken)
	assert.ErrorContains(t, err, "failed to parse HCL file")
}

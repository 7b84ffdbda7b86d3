package config

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseBody(t *testing.T, src string) hcl.Body {
	t.Helper()
	file, diags := hclsyntax.ParseConfig([]byte(src), "engine.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())
	return file.Body
}

func TestDefault(t *testing.T) {
	t.Parallel()
	opts := Default()
	assert.Equal(t, int64(100_000_000), opts.TargetChunkBytes)
	assert.True(t, opts.AllowMultiDimReduction)
	assert.Positive(t, opts.Workers)
	assert.NoError(t, opts.Validate())
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	body := parseBody(t, `
target_chunk_bytes             = 8000000
workers                        = 3
disabled_coordinate_transforms = ["drop_coord"]
allow_multi_dim_reduction      = false
severity = {
  coordinate_unexpected = "error"
}
`)

	// --- Act ---
	opts, err := Decode(body, Default())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, int64(8_000_000), opts.TargetChunkBytes)
	assert.Equal(t, 3, opts.Workers)
	assert.False(t, opts.AllowMultiDimReduction)
	assert.True(t, opts.TransformDisabled("drop_coord"))
	assert.False(t, opts.TransformDisabled("isel"))
	assert.Equal(t, "error", opts.Severity["coordinate_unexpected"])
	assert.Empty(t, opts.SpillDir)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := Decode(parseBody(t, `workers = 0`), Default())
	assert.ErrorContains(t, err, "workers must be positive")

	_, err = Decode(parseBody(t, `severity = { cycle = "fatal" }`), Default())
	assert.ErrorContains(t, err, "severity for 'cycle'")

	_, err = Decode(parseBody(t, `unknown_knob = 1`), Default())
	assert.ErrorContains(t, err, "failed to decode engine block")
}

func TestDecodeNilBody(t *testing.T) {
	t.Parallel()
	opts, err := Decode(nil, Default())
	require.NoError(t, err)
	assert.Equal(t, Default().TargetChunkBytes, opts.TargetChunkBytes)
}

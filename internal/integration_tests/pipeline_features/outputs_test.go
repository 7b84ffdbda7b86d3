package integration_tests

import (
	"testing"

	"github.com/specialistvlad/lineagegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: pipelines without output blocks materialize their sinks
func TestPipelineFeatures_SinksAreDefaultOutputs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
source "t" {
  location = "synthetic://ones?dims=x:4"
}

step "scale" "double" {
  input  = source.t
  params = { factor = 2 }
}

step "offset" "plus_one" {
  input  = source.t
  params = { value = 1 }
}
`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Len(t, result.Summary.Outputs, 2)
	assert.Equal(t, []float64{2, 2, 2, 2}, result.OutputNamed(t, "step.scale.double").Values)
	assert.Equal(t, []float64{2, 2, 2, 2}, result.OutputNamed(t, "step.offset.plus_one").Values)
}

// Test for: blocks may be spread across several files
func TestPipelineFeatures_UnifiedLoading(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"sources.hcl": `
source "t" {
  location = "synthetic://ramp?dims=x:3"
}
`,
		"steps/negate.hcl": `
step "negate" "flipped" {
  input = source.t
}
`,
		"outputs.hcl": `
output "flipped" {
  value = step.negate.flipped
}
`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, []float64{0, -1, -2}, result.OutputNamed(t, "flipped").Values)
}

// Test for: depends_on adds ordering without adding data inputs
func TestPipelineFeatures_ExplicitDependency(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
source "t" {
  location = "synthetic://ones?dims=x:2"
}

step "scale" "first" {
  input  = source.t
  params = { factor = 3 }
}

step "offset" "second" {
  input      = source.t
  params     = { value = 5 }
  depends_on = [step.scale.first]
}

output "first" {
  value = step.scale.first
}

output "second" {
  value = step.offset.second
}
`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, []float64{3, 3}, result.OutputNamed(t, "first").Values)
	assert.Equal(t, []float64{6, 6}, result.OutputNamed(t, "second").Values)
	assert.NotContains(t, result.OutputNamed(t, "second").Attrs["history"], "scale(")
}

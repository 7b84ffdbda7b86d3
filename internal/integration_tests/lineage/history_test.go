package integration_tests

import (
	"strings"
	"testing"

	"github.com/specialistvlad/lineagegrid/internal/app"
	"github.com/specialistvlad/lineagegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: the history attribute lists every applied operation in order
func TestLineage_HistoryFollowsPipeline(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
source "t" {
  location = "synthetic://ramp?dims=lat:4,lon:4&units=K&history=ingested"
}

step "scale" "doubled" {
  input  = source.t
  params = { factor = 2 }
}

step "isel" "north" {
  input  = step.scale.doubled
  params = { dim = "lat", start = 2, stop = 4 }
}

step "reduce_max" "peak" {
  input  = step.isel.north
  params = { dims = ["lon"] }
}

output "peak" {
  value = step.reduce_max.peak
}
`,
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	peak := result.OutputNamed(t, "peak")
	require.True(t, peak.Usable)
	assert.Equal(t, []string{"lat"}, peak.Dims)
	assert.Equal(t, []float64{22, 30}, peak.Values)
	assert.Contains(t, peak.Coords, "lat")

	history := peak.Attrs["history"]
	require.True(t, strings.HasPrefix(history, "ingested\n"), "pre-existing history is kept: %q", history)
	positions := []int{
		strings.Index(history, "load("),
		strings.Index(history, "scale("),
		strings.Index(history, "isel("),
		strings.Index(history, "reduce_max("),
	}
	for i, p := range positions {
		require.GreaterOrEqual(t, p, 0, "entry %d missing from history %q", i, history)
		if i > 0 {
			assert.Greater(t, p, positions[i-1], "history out of order: %q", history)
		}
	}
}

// Test for: the result gate reports missing attributes, and the severity
// policy can relax it
func TestLineage_SeverityPolicy(t *testing.T) {
	t.Parallel()

	pipeline := func(severity string) string {
		return `
engine {
  required_attributes = ["standard_name"]
  severity            = { attribute_missing = "` + severity + `" }
}

source "t" {
  location = "synthetic://ones?dims=x:2"
}

output "t" {
  value = source.t
}
`
	}

	t.Run("error blocks the result", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": pipeline("error")})
		require.ErrorIs(t, result.Err, app.ErrUnusableResults)
		out := result.OutputNamed(t, "t")
		assert.False(t, out.Usable)
		assert.Contains(t, out.Codes(), "attribute_missing")
		assert.Equal(t, []float64{1, 1}, out.Values, "data is still reported")
	})

	t.Run("warning keeps it usable", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": pipeline("warning")})
		require.NoError(t, result.Err)
		out := result.OutputNamed(t, "t")
		assert.True(t, out.Usable)
		require.NotEmpty(t, out.Violations)
		assert.Equal(t, "warning", out.Violations[0].Severity)
	})
}

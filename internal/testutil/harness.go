package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/lineagegrid/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Output    string
	// Summary is decoded from Output when the run wrote one.
	Summary *Summary
	Err     error
	App     *app.App
}

// OutputNamed returns the named output of the summary, failing the test when
// it is missing.
func (r *HarnessResult) OutputNamed(t *testing.T, name string) OutputSummary {
	t.Helper()
	require.NotNil(t, r.Summary, "run wrote no summary; error: %v", r.Err)
	for _, o := range r.Summary.Outputs {
		if o.Name == name {
			return o
		}
	}
	require.Failf(t, "output not found", "no output named '%s' in summary", name)
	return OutputSummary{}
}

// RunIntegrationTest writes files into a temporary pipeline directory and
// runs the application over it with a background context.
func RunIntegrationTest(t *testing.T, files map[string]string, configure ...func(*app.Config)) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, configure...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided
// context. Each configure func may adjust the app configuration.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, configure ...func(*app.Config)) *HarnessResult {
	t.Helper()

	pipelineDir := filepath.Join(t.TempDir(), "pipeline")
	require.NoError(t, os.Mkdir(pipelineDir, 0o755))
	for name, content := range files {
		filePath := filepath.Join(pipelineDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	cfg := app.Config{
		PipelinePath: pipelineDir,
		LogLevel:     "debug",
		LogFormat:    "text",
		Workers:      4,
	}
	for _, f := range configure {
		f(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	out := &bytes.Buffer{}
	testApp := app.NewApp(out, logBuffer, appConfig)
	runErr := testApp.Run(ctx)

	if os.Getenv("LINEAGEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	result := &HarnessResult{
		LogOutput: logBuffer.String(),
		Output:    out.String(),
		Err:       runErr,
		App:       testApp,
	}
	if out.Len() > 0 && appConfig.OutputFormat == "json" {
		var s Summary
		require.NoError(t, json.Unmarshal(out.Bytes(), &s), "summary is not valid JSON")
		result.Summary = &s
	}
	return result
}

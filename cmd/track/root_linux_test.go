//go:build linux

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/track/pkg/report"
	"github.com/srodi/track/pkg/supervisor"
)

// The test binary doubles as the child runner, exactly like the real binary.
func TestMain(m *testing.M) {
	if supervisor.IsChild(os.Args) {
		os.Exit(supervisor.RunChild(supervisor.ChildArgv(os.Args)))
	}
	os.Exit(m.Run())
}

func TestTrackFullReport(t *testing.T) {
	code, stdout, _ := runTrack(t, "--color", "never", "sh", "-c", "exit 0")
	assert.Equal(t, exitOK, code)

	lines := strings.Split(stdout, "\n")
	assert.Equal(t, "sh -c exit 0", lines[0])
	for _, label := range []string{"System Time:", "Max Memory:", "Voluntary context switches:", "Block output operations:"} {
		assert.Contains(t, stdout, label)
	}
}

func TestTrackNonZeroExitStillReports(t *testing.T) {
	code, stdout, _ := runTrack(t, "--color", "never", "-c", "sh", "-c", "exit 7")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "exited with code 7")
	assert.Contains(t, stdout, "Involuntary context switches:")
	assert.NotContains(t, stdout, "Max Memory:")
}

func TestTrackExitCodePassthrough(t *testing.T) {
	code, _, _ := runTrack(t, "--exit-code", "--color", "never", "sh", "-c", "exit 3")
	assert.Equal(t, 3, code)

	code, _, _ = runTrack(t, "--exit-code", "--color", "never", "sh", "-c", "kill -TERM $$")
	assert.Equal(t, 128+15, code)
}

func TestTrackMissingExecutable(t *testing.T) {
	code, stdout, stderr := runTrack(t, "/nonexistent/track-e2e")
	assert.Equal(t, exitFailure, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "cannot launch /nonexistent/track-e2e")
}

func TestTrackScriptWithoutInterpreter(t *testing.T) {
	script := filepath.Join(t.TempDir(), "plain-script")
	require.NoError(t, os.WriteFile(script, []byte("exit 3\n"), 0o755))

	code, stdout, stderr := runTrack(t, "--exit-code", "--color", "never", script)
	assert.Equal(t, 3, code, stderr)
	assert.Contains(t, stdout, "exited with code 3")
}

func TestTrackFlagsAfterTargetBelongToTarget(t *testing.T) {
	code, stdout, _ := runTrack(t, "--color", "never", "sh", "-c", "exit 0", "-t")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Page Reclaims:", "-t after the target must not enable selective mode")
}

func TestTrackJSONToFileWithMetrics(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "run.json")
	prom := filepath.Join(dir, "track.prom")

	code, stdout, _ := runTrack(t, "-f", "json", "-o", out, "--metrics-file", prom, "sh", "-c", "exit 0")
	require.Equal(t, exitOK, code)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rec report.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, []string{"sh", "-c", "exit 0"}, rec.Command)
	assert.NotEmpty(t, rec.RunID)
	require.NotNil(t, rec.Usage)
	assert.Positive(t, rec.Usage.MaxRSSKiB)

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `track_usage_available{command="sh"} 1`)
}

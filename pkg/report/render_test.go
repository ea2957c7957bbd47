package report

import (
	"bytes"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/track/pkg/types"
	"github.com/srodi/track/pkg/ui"
)

func sampleSpec(t *testing.T) types.TrackedCommandSpec {
	t.Helper()
	spec, err := types.NewTrackedCommandSpec([]string{"sleep", "1"})
	require.NoError(t, err)
	return spec
}

func sampleStats() *types.CommandStats {
	return &types.CommandStats{
		Elapsed: 61 * time.Second,
		Usage: types.ResourceUsage{
			UserTime:            1500 * time.Microsecond,
			SystemTime:          2 * time.Second,
			MaxRSSKiB:           2048,
			MinorFaults:         120,
			MajorFaults:         3,
			Swaps:               0,
			BlockInputOps:       8,
			BlockOutputOps:      16,
			VoluntarySwitches:   5,
			InvoluntarySwitches: 9,
		},
	}
}

func render(t *testing.T, stats *types.CommandStats, sections types.Sections) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSpec(t), stats, sections, Options{Color: ui.ColorNever}))
	return buf.String()
}

func TestRenderFullReport(t *testing.T) {
	expected := strings.Join([]string{
		"sleep 1",
		separator,
		"1 minutes 1 seconds",
		separator,
		"System Time:    2000000 micros",
		"User Time:      1500 micros",
		separator,
		"Max Memory:     2048 K",
		"Swaps:          0",
		separator,
		"Involuntary context switches: 9",
		"Voluntary context switches: 5",
		separator,
		"Page Reclaims:  120",
		"Page Faults:    3",
		"Block input operations: 8",
		"Block output operations: 16",
		separator,
	}, "\n") + "\n"

	assert.Equal(t, expected, render(t, sampleStats(), types.Sections{}))
}

func TestRenderSelectiveCanonicalOrder(t *testing.T) {
	out := render(t, sampleStats(), types.Sections{IO: true, Timer: true})

	assert.Contains(t, out, "1 minutes 1 seconds")
	assert.Contains(t, out, "Page Reclaims:")
	assert.NotContains(t, out, "Max Memory:")
	assert.NotContains(t, out, "context switches")
	assert.Less(t, strings.Index(out, "System Time:"), strings.Index(out, "Page Reclaims:"))
}

func TestRenderEverySubsetShowsExactlyThoseSections(t *testing.T) {
	markers := map[types.Section]string{
		types.SectionTimer:  "System Time:",
		types.SectionMemory: "Max Memory:",
		types.SectionCPU:    "Voluntary context switches:",
		types.SectionIO:     "Block output operations:",
	}
	order := []types.Section{types.SectionTimer, types.SectionMemory, types.SectionCPU, types.SectionIO}

	for mask := 1; mask < 16; mask++ {
		sections := types.Sections{
			Timer:  mask&1 != 0,
			Memory: mask&2 != 0,
			CPU:    mask&4 != 0,
			IO:     mask&8 != 0,
		}
		out := render(t, sampleStats(), sections)

		want := sections.Selected()
		last := -1
		for _, s := range order {
			idx := strings.Index(out, markers[s])
			if !containsSection(want, s) {
				assert.Equal(t, -1, idx, "mask %04b should omit %s", mask, s)
				continue
			}
			require.NotEqual(t, -1, idx, "mask %04b should show %s", mask, s)
			assert.Greater(t, idx, last, "mask %04b: %s out of order", mask, s)
			last = idx
		}
	}
}

func containsSection(list []types.Section, s types.Section) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestRenderShowsMemoryShare(t *testing.T) {
	stats := sampleStats()
	stats.TotalMemoryBytes = 8 << 20
	out := render(t, stats, types.Sections{Memory: true})
	assert.Contains(t, out, "Max Memory:     2048 K (25.00% of RAM)")
}

func TestRenderNonZeroExitHasSameShape(t *testing.T) {
	ok := render(t, sampleStats(), types.Sections{})

	failed := sampleStats()
	failed.Exit = types.ChildExitOutcome{Code: 7}
	out := render(t, failed, types.Sections{})

	assert.Contains(t, out, "exited with code 7")
	assert.Equal(t, ok, strings.Replace(out, "exited with code 7\n", "", 1))
}

func TestRenderSignaled(t *testing.T) {
	stats := sampleStats()
	stats.Exit = types.ChildExitOutcome{Code: -1, Signaled: true, Signal: syscall.SIGKILL}
	assert.Contains(t, render(t, stats, types.Sections{}), "terminated by signal 9")
}

func TestRenderUsageUnavailableKeepsElapsed(t *testing.T) {
	stats := sampleStats()
	stats.UsageErr = errors.New("querying resource usage: EFAULT")

	for _, sections := range []types.Sections{{}, {CPU: true}, {Timer: true}} {
		out := render(t, stats, sections)
		assert.Contains(t, out, "1 minutes 1 seconds")
		assert.Contains(t, out, "resource usage unavailable")
		assert.NotContains(t, out, "System Time:")
		assert.NotContains(t, out, "context switches")
	}
}

func TestRenderColorAlways(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSpec(t), sampleStats(), types.Sections{Timer: true}, Options{Color: ui.ColorAlways}))
	assert.Contains(t, buf.String(), "\x1b[")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderPropagatesWriteErrors(t *testing.T) {
	err := Render(failingWriter{}, sampleSpec(t), sampleStats(), types.Sections{}, Options{Color: ui.ColorNever})
	assert.EqualError(t, err, "disk full")
}

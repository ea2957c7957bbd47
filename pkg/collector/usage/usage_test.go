package usage

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/track/pkg/handoff"
	"github.com/srodi/track/pkg/logging"
	"github.com/srodi/track/pkg/types"
)

type fakeSource struct {
	delivery handoff.Delivery
	err      error
}

func (f fakeSource) Receive() (handoff.Delivery, error) { return f.delivery, f.err }

func started(at types.Stamp) fakeSource {
	return fakeSource{delivery: handoff.Delivery{Start: &at}}
}

func stubKernel(t *testing.T, ru types.ResourceUsage, ruErr error, total uint64, totalErr error) {
	t.Helper()
	origUsage, origTotal := childrenUsage, totalMemory
	t.Cleanup(func() {
		childrenUsage = origUsage
		totalMemory = origTotal
	})
	childrenUsage = func() (types.ResourceUsage, error) { return ru, ruErr }
	totalMemory = func() (uint64, error) { return total, totalErr }
}

func TestCollectComputesElapsedAndUsage(t *testing.T) {
	want := types.ResourceUsage{UserTime: 3 * time.Millisecond, MaxRSSKiB: 2048, VoluntarySwitches: 4}
	stubKernel(t, want, nil, 1<<30, nil)

	stats, err := NewCollector(nil).Collect(started(1_000), 61_000_001_000)
	require.NoError(t, err)
	assert.Equal(t, types.Stamp(1_000), stats.Start)
	assert.Equal(t, 61*time.Second, stats.Elapsed)
	assert.Equal(t, want, stats.Usage)
	assert.True(t, stats.UsageAvailable())
	assert.Equal(t, uint64(1<<30), stats.TotalMemoryBytes)
}

func TestCollectMissingStartIsReadError(t *testing.T) {
	stubKernel(t, types.ResourceUsage{}, nil, 0, nil)

	_, err := NewCollector(nil).Collect(fakeSource{}, 10)
	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.ErrorIs(t, err, handoff.ErrNoStart)
}

func TestCollectReceiveFailureIsReadError(t *testing.T) {
	stubKernel(t, types.ResourceUsage{}, nil, 0, nil)

	_, err := NewCollector(nil).Collect(fakeSource{err: handoff.ErrMalformed}, 10)
	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.ErrorIs(t, err, handoff.ErrMalformed)
}

func TestCollectUsageFailureIsNotFatal(t *testing.T) {
	queryErr := errors.New("EFAULT")
	stubKernel(t, types.ResourceUsage{MaxRSSKiB: 99}, queryErr, 0, errors.New("no meminfo"))

	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: "warn", Format: "text", Output: &logs})

	stats, err := NewCollector(logger).Collect(started(5), 25)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Nanosecond, stats.Elapsed)
	assert.False(t, stats.UsageAvailable())
	assert.Equal(t, types.ResourceUsage{}, stats.Usage)

	var usageErr *UsageQueryError
	require.True(t, errors.As(stats.UsageErr, &usageErr))
	assert.ErrorIs(t, stats.UsageErr, queryErr)
	assert.Contains(t, logs.String(), "usage query failed")
	assert.Zero(t, stats.TotalMemoryBytes)
}

func TestCollectClampsNegativeElapsed(t *testing.T) {
	stubKernel(t, types.ResourceUsage{}, nil, 0, nil)

	stats, err := NewCollector(nil).Collect(started(100), 50)
	require.NoError(t, err)
	assert.Zero(t, stats.Elapsed)
}

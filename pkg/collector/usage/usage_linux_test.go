//go:build linux

package usage

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestQueryChildrenSeesReapedChild(t *testing.T) {
	require.NoError(t, exec.Command("sh", "-c", "exit 0").Run())

	ru, err := queryChildren()
	require.NoError(t, err)
	assert.Positive(t, ru.MaxRSSKiB)
}

func TestFromRusage(t *testing.T) {
	ru := unix.Rusage{
		Utime:  unix.Timeval{Sec: 1, Usec: 500},
		Stime:  unix.Timeval{Usec: 250},
		Maxrss: 4096,
		Minflt: 10,
		Majflt: 2,
		Nswap:  0,
		Nvcsw:  7,
		Nivcsw: 3,
	}
	got := fromRusage(&ru)
	assert.Equal(t, int64(1_000_500_000), got.UserTime.Nanoseconds())
	assert.Equal(t, int64(250_000), got.SystemTime.Nanoseconds())
	assert.Equal(t, int64(4096), got.MaxRSSKiB)
	assert.Equal(t, int64(10), got.MinorFaults)
	assert.Equal(t, int64(2), got.MajorFaults)
	assert.Equal(t, int64(7), got.VoluntarySwitches)
	assert.Equal(t, int64(3), got.InvoluntarySwitches)
}

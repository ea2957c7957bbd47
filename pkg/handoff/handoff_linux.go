//go:build linux
// +build linux

package handoff

import (
	"fmt"
	"os"

	"github.com/srodi/track/pkg/types"
	"golang.org/x/sys/unix"
)

// Open creates the pipe. Both ends are close-on-exec, so only a child that is
// explicitly handed the write end ever sees it.
func Open() (*Channel, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("creating start channel: %w", err)
	}
	r := os.NewFile(uintptr(fds[0]), "track-handoff-r")
	w := os.NewFile(uintptr(fds[1]), "track-handoff-w")
	return newChannel(r, w), nil
}

// Now reads CLOCK_MONOTONIC, which is shared by every process on the host.
func Now() (types.Stamp, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, fmt.Errorf("reading monotonic clock: %w", err)
	}
	return types.Stamp(ts.Nano()), nil
}

//go:build linux
// +build linux

package usage

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/srodi/track/pkg/types"
)

// queryChildren aggregates every child this process has reaped so far.
func queryChildren() (types.ResourceUsage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return types.ResourceUsage{}, err
	}
	return fromRusage(&ru), nil
}

func fromRusage(ru *unix.Rusage) types.ResourceUsage {
	return types.ResourceUsage{
		UserTime:            time.Duration(unix.TimevalToNsec(ru.Utime)),
		SystemTime:          time.Duration(unix.TimevalToNsec(ru.Stime)),
		MaxRSSKiB:           int64(ru.Maxrss),
		MinorFaults:         int64(ru.Minflt),
		MajorFaults:         int64(ru.Majflt),
		Swaps:               int64(ru.Nswap),
		BlockInputOps:       int64(ru.Inblock),
		BlockOutputOps:      int64(ru.Oublock),
		VoluntarySwitches:   int64(ru.Nvcsw),
		InvoluntarySwitches: int64(ru.Nivcsw),
	}
}

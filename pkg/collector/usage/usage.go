// Package usage assembles CommandStats once the tracked command has been reaped:
// the start stamp from the handoff channel, the elapsed time and the kernel's
// resource counters for terminated children.
package usage

import (
	"errors"
	"fmt"

	"github.com/srodi/track/pkg/collector/memory"
	"github.com/srodi/track/pkg/handoff"
	"github.com/srodi/track/pkg/logging"
	"github.com/srodi/track/pkg/types"
)

// ErrUnsupported is returned on platforms without getrusage(RUSAGE_CHILDREN).
var ErrUnsupported = errors.New("resource usage requires linux")

// childrenUsage and totalMemory allow tests to stub the kernel.
var (
	childrenUsage = queryChildren
	totalMemory   = memory.TotalMemoryBytes
)

// ReadError means the start stamp could not be retrieved, so no measurement exists.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading start time: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// UsageQueryError means the kernel refused the resource-usage query. It is
// recorded on CommandStats and never aborts a run.
type UsageQueryError struct {
	Err error
}

func (e *UsageQueryError) Error() string {
	return fmt.Sprintf("querying resource usage: %v", e.Err)
}

func (e *UsageQueryError) Unwrap() error { return e.Err }

// StartSource yields what the child sent over the handoff channel.
type StartSource interface {
	Receive() (handoff.Delivery, error)
}

// Collector reads usage for reaped children.
type Collector struct {
	logger *logging.Logger
}

// NewCollector returns a collector logging through logger; nil discards.
func NewCollector(logger *logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Collector{logger: logger}
}

// Collect must only be called after the child has been reaped. It fails with
// *ReadError when no start stamp arrived; a failed usage query is logged and
// left on the returned stats.
func (c *Collector) Collect(src StartSource, finish types.Stamp) (*types.CommandStats, error) {
	d, err := src.Receive()
	if err != nil {
		return nil, &ReadError{Err: err}
	}
	if d.Start == nil {
		return nil, &ReadError{Err: handoff.ErrNoStart}
	}

	stats := &types.CommandStats{
		Start:   *d.Start,
		Finish:  finish,
		Elapsed: finish.Sub(*d.Start),
	}
	if stats.Elapsed < 0 {
		c.logger.Debug("finish stamp precedes start stamp", "start", stats.Start, "finish", finish)
		stats.Elapsed = 0
	}

	ru, err := childrenUsage()
	if err != nil {
		stats.UsageErr = &UsageQueryError{Err: err}
		c.logger.Warn("usage query failed", "err", err)
	} else {
		stats.Usage = ru
	}

	if total, err := totalMemory(); err != nil {
		c.logger.Debug("total memory unavailable", "err", err)
	} else {
		stats.TotalMemoryBytes = total
	}
	return stats, nil
}

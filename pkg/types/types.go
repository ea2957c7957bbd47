package types

import (
	"errors"
	"fmt"
	"syscall"
	"time"
)

// ErrEmptyCommand is returned when a tracked command has no executable.
var ErrEmptyCommand = errors.New("target command to track must be provided")

// TrackedCommandSpec is the argv of the command being measured. Element 0 is the
// executable, the rest are its arguments. It is never mutated after creation.
type TrackedCommandSpec struct {
	argv []string
}

// NewTrackedCommandSpec copies argv into an immutable spec.
func NewTrackedCommandSpec(argv []string) (TrackedCommandSpec, error) {
	if len(argv) == 0 || argv[0] == "" {
		return TrackedCommandSpec{}, ErrEmptyCommand
	}
	return TrackedCommandSpec{argv: append([]string(nil), argv...)}, nil
}

// Argv returns a copy of the full argument vector.
func (s TrackedCommandSpec) Argv() []string {
	return append([]string(nil), s.argv...)
}

// Executable returns argv[0].
func (s TrackedCommandSpec) Executable() string {
	if len(s.argv) == 0 {
		return ""
	}
	return s.argv[0]
}

// Empty reports whether the spec was built without NewTrackedCommandSpec.
func (s TrackedCommandSpec) Empty() bool {
	return len(s.argv) == 0
}

// Stamp is a CLOCK_MONOTONIC reading. Stamps taken by different processes on the
// same host share an origin, so they can be subtracted.
type Stamp int64

// Sub returns s-earlier as a duration.
func (s Stamp) Sub(earlier Stamp) time.Duration {
	return time.Duration(int64(s) - int64(earlier))
}

// ResourceUsage holds the kernel counters reported for terminated children.
type ResourceUsage struct {
	UserTime            time.Duration
	SystemTime          time.Duration
	MaxRSSKiB           int64 // Linux reports ru_maxrss in kilobytes
	MinorFaults         int64 // page reclaims
	MajorFaults         int64
	Swaps               int64
	BlockInputOps       int64
	BlockOutputOps      int64
	VoluntarySwitches   int64
	InvoluntarySwitches int64
}

// ChildExitOutcome describes how the tracked command terminated.
type ChildExitOutcome struct {
	Code     int
	Signaled bool
	Signal   syscall.Signal
}

// Success reports a clean zero exit.
func (o ChildExitOutcome) Success() bool {
	return !o.Signaled && o.Code == 0
}

// ShellStatus is the status a shell would report: the exit code, or
// 128+signal for a killed command.
func (o ChildExitOutcome) ShellStatus() int {
	if o.Signaled {
		return 128 + int(o.Signal)
	}
	return o.Code
}

func (o ChildExitOutcome) String() string {
	if o.Signaled {
		return fmt.Sprintf("terminated by signal %d (%s)", int(o.Signal), o.Signal)
	}
	return fmt.Sprintf("exited with code %d", o.Code)
}

// CommandStats accumulates the measurements of one tracked run.
type CommandStats struct {
	Start   Stamp
	Finish  Stamp
	Elapsed time.Duration
	Exit    ChildExitOutcome

	// Usage is only meaningful when UsageErr is nil.
	Usage    ResourceUsage
	UsageErr error

	// TotalMemoryBytes is physical memory of the host, 0 when unknown.
	TotalMemoryBytes uint64
}

// UsageAvailable reports whether the resource counters can be rendered.
func (s *CommandStats) UsageAvailable() bool {
	return s != nil && s.UsageErr == nil
}

// Sections toggles report sections. The zero value selects everything.
type Sections struct {
	Timer  bool
	CPU    bool
	Memory bool
	IO     bool
}

// Section names a report section.
type Section string

const (
	SectionTimer  Section = "timer"
	SectionMemory Section = "memory"
	SectionCPU    Section = "cpu"
	SectionIO     Section = "io"
)

// Selective reports whether at least one section was explicitly requested.
func (s Sections) Selective() bool {
	return s.Timer || s.CPU || s.Memory || s.IO
}

// Selected returns the sections to render in canonical order.
func (s Sections) Selected() []Section {
	all := !s.Selective()
	out := make([]Section, 0, 4)
	if all || s.Timer {
		out = append(out, SectionTimer)
	}
	if all || s.Memory {
		out = append(out, SectionMemory)
	}
	if all || s.CPU {
		out = append(out, SectionCPU)
	}
	if all || s.IO {
		out = append(out, SectionIO)
	}
	return out
}

// Enable turns on a section by name.
func (s *Sections) Enable(name string) error {
	switch Section(name) {
	case SectionTimer:
		s.Timer = true
	case SectionMemory, "mem":
		s.Memory = true
	case SectionCPU:
		s.CPU = true
	case SectionIO:
		s.IO = true
	default:
		return fmt.Errorf("unknown section %q", name)
	}
	return nil
}

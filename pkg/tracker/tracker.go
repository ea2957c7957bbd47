// Package tracker sequences one tracked run: spawn and reap the command, then
// collect its usage. Every result is an Outcome; callers switch on its Kind.
package tracker

import (
	"errors"
	"fmt"

	"github.com/srodi/track/pkg/collector/usage"
	"github.com/srodi/track/pkg/handoff"
	"github.com/srodi/track/pkg/logging"
	"github.com/srodi/track/pkg/supervisor"
	"github.com/srodi/track/pkg/types"
)

// MissingTargetMessage accompanies the help screen when no command was given.
const MissingTargetMessage = "Target command to track must be provided"

// Invocation is the parsed command line.
type Invocation struct {
	Argv          []string
	Sections      types.Sections
	HelpRequested bool
	// HelpMessage is shown above the help screen, empty for an explicit -h.
	HelpMessage string
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	Tracked OutcomeKind = iota
	HelpRequested
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Tracked:
		return "tracked"
	case HelpRequested:
		return "help"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// FailureKind classifies an ExecutionFailure.
type FailureKind int

const (
	FailureSpawn FailureKind = iota
	FailureChildSetup
	FailureRead
)

func (k FailureKind) String() string {
	switch k {
	case FailureSpawn:
		return "spawn"
	case FailureChildSetup:
		return "child setup"
	case FailureRead:
		return "read"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// ExecutionFailure is a run that produced no measurement.
type ExecutionFailure struct {
	Kind FailureKind
	Err  error
}

func (f *ExecutionFailure) Error() string { return f.Err.Error() }

func (f *ExecutionFailure) Unwrap() error { return f.Err }

// Outcome is the result of Run. Stats is set only for Tracked, Failure only
// for Failed.
type Outcome struct {
	Kind        OutcomeKind
	Spec        types.TrackedCommandSpec
	Sections    types.Sections
	PID         int
	Stats       *types.CommandStats
	HelpMessage string
	Failure     *ExecutionFailure
}

// Executor spawns and reaps the tracked command.
type Executor interface {
	Execute(ch *handoff.Channel, spec types.TrackedCommandSpec) (*supervisor.Execution, error)
}

// UsageSource builds CommandStats after the child was reaped.
type UsageSource interface {
	Collect(src usage.StartSource, finish types.Stamp) (*types.CommandStats, error)
}

// Tracker runs invocations.
type Tracker struct {
	exec        Executor
	usage       UsageSource
	openChannel func() (*handoff.Channel, error)
	logger      *logging.Logger
}

// New wires a tracker; a nil logger discards.
func New(exec Executor, src UsageSource, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{exec: exec, usage: src, openChannel: handoff.Open, logger: logger}
}

// Run executes inv at most once. It never returns partial stats: a spawn,
// setup or read failure yields a Failed outcome without a report.
func (t *Tracker) Run(inv Invocation) Outcome {
	if inv.HelpRequested {
		return Outcome{Kind: HelpRequested, HelpMessage: inv.HelpMessage}
	}
	spec, err := types.NewTrackedCommandSpec(inv.Argv)
	if err != nil {
		return Outcome{Kind: HelpRequested, HelpMessage: MissingTargetMessage}
	}
	out := Outcome{Spec: spec, Sections: inv.Sections}

	ch, err := t.openChannel()
	if err != nil {
		return failed(out, FailureSpawn, &supervisor.SpawnError{Op: "pipe", Err: err})
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil {
			t.logger.Warn("closing start channel", "err", cerr)
		}
	}()

	t.logger.Debug("tracking command", "argv", spec.Argv())
	execution, err := t.exec.Execute(ch, spec)
	if err != nil {
		return failed(out, classify(err), err)
	}
	out.PID = execution.PID

	stats, err := t.usage.Collect(ch, execution.Finish)
	if err != nil {
		return failed(out, FailureRead, err)
	}
	stats.Exit = execution.Exit
	out.Kind = Tracked
	out.Stats = stats
	t.logger.Debug("tracked command", "pid", execution.PID, "elapsed", stats.Elapsed, "outcome", execution.Exit.String())
	if ru := execution.Usage; ru != nil {
		t.logger.Debug("direct child usage", "pid", execution.PID, "max_rss_kib", ru.Maxrss, "voluntary_switches", ru.Nvcsw)
	}
	return out
}

func failed(out Outcome, kind FailureKind, err error) Outcome {
	out.Kind = Failed
	out.Failure = &ExecutionFailure{Kind: kind, Err: err}
	return out
}

func classify(err error) FailureKind {
	var setupErr *supervisor.ChildSetupError
	var readErr *usage.ReadError
	switch {
	case errors.As(err, &setupErr):
		return FailureChildSetup
	case errors.As(err, &readErr):
		return FailureRead
	default:
		return FailureSpawn
	}
}

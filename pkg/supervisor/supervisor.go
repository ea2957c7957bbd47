// Package supervisor spawns the tracked command, waits for it and classifies
// how it ended.
//
// Go cannot run code between fork and exec, so the supervisor re-executes its
// own binary with ChildRoleArg as the first argument. That process (the child
// runner) stamps the monotonic clock, sends the stamp over the start channel
// and replaces itself with the target via execve. If it cannot, it reports the
// reason on the channel and exits with SetupFailureExitCode.
//
// The child runner's own start-up runs before execve and is measured with the
// target: the start stamp follows Go runtime init, and the children's usage
// counters carry a floor of a few milliseconds of CPU and a few hundred minor
// faults. Max RSS is a high-water mark and never drops below the runner's.
package supervisor

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/srodi/track/pkg/logging"
	"github.com/srodi/track/pkg/types"
)

const (
	// ChildRoleArg marks a re-executed binary as the child runner.
	ChildRoleArg = "__track_child__"

	// ChildFD is the descriptor the start channel's write end lands on in the child.
	ChildFD = 3

	// SetupFailureExitCode is the child runner's exit status when the target
	// could not be launched. A target may legitimately exit 127 too, so the
	// supervisor only trusts it together with a setup-failure record.
	SetupFailureExitCode = 127
)

// ErrUnsupported is returned on platforms other than linux.
var ErrUnsupported = errors.New("process supervision requires linux")

// SpawnError reports a failure to create or wait for the child.
type SpawnError struct {
	Op  string // "spawn", "wait" or "clock"
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ChildSetupError reports that the child could not become the target program.
type ChildSetupError struct {
	Executable string
	Errno      syscall.Errno
	Reason     string
}

func (e *ChildSetupError) Error() string {
	return fmt.Sprintf("cannot launch %s: %s", e.Executable, e.Reason)
}

// Unwrap exposes the errno, so errors.Is(err, fs.ErrNotExist) works.
func (e *ChildSetupError) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

// Execution is what the parent learns from a reaped child.
type Execution struct {
	PID    int
	Finish types.Stamp
	Exit   types.ChildExitOutcome

	// Usage is wait4's view of this one child, nil if unavailable.
	Usage *syscall.Rusage
}

// Supervisor runs one tracked command at a time.
type Supervisor struct {
	self   string
	stdin  *os.File
	stdout *os.File
	stderr *os.File
	logger *logging.Logger
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithSelf sets the binary re-executed as the child runner.
func WithSelf(path string) Option {
	return func(s *Supervisor) { s.self = path }
}

// WithStdio sets the standard streams handed to the tracked command.
func WithStdio(stdin, stdout, stderr *os.File) Option {
	return func(s *Supervisor) {
		s.stdin, s.stdout, s.stderr = stdin, stdout, stderr
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// New returns a supervisor that re-executes /proc/self/exe and shares the
// caller's standard streams with the target.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		self:   "/proc/self/exe",
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsChild reports whether args (normally os.Args) belong to a child runner.
func IsChild(args []string) bool {
	return len(args) > 1 && args[1] == ChildRoleArg
}

// ChildArgv returns the target argv of a child runner invocation.
func ChildArgv(args []string) []string {
	if !IsChild(args) {
		return nil
	}
	return args[2:]
}

func outcomeFromWaitStatus(ws syscall.WaitStatus) types.ChildExitOutcome {
	if ws.Signaled() {
		return types.ChildExitOutcome{Code: -1, Signaled: true, Signal: ws.Signal()}
	}
	return types.ChildExitOutcome{Code: ws.ExitStatus()}
}

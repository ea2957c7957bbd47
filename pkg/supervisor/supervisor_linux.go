//go:build linux
// +build linux

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/srodi/track/pkg/handoff"
	"github.com/srodi/track/pkg/types"
)

// Execute spawns spec through the child runner, waits for it and classifies the
// termination. ch must be freshly opened; the caller keeps ownership and closes
// it once the collector has read the start stamp.
func (s *Supervisor) Execute(ch *handoff.Channel, spec types.TrackedCommandSpec) (*Execution, error) {
	if spec.Empty() {
		return nil, types.ErrEmptyCommand
	}
	childEnd := ch.ChildEnd()
	if childEnd == nil {
		return nil, &SpawnError{Op: "spawn", Err: errors.New("start channel already used")}
	}

	argv := spec.Argv()
	cmd := exec.Command(s.self, append([]string{ChildRoleArg}, argv...)...)
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	cmd.ExtraFiles = []*os.File{childEnd} // becomes ChildFD

	// The terminal delivers ^C to the whole process group. The child keeps the
	// default disposition; the supervisor swallows it so it can still report.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Op: "spawn", Err: err}
	}
	if err := ch.ReleaseChildEnd(); err != nil {
		s.logger.Warn("releasing start channel write end", "err", err)
	}
	pid := cmd.Process.Pid
	s.logger.Debug("spawned tracked command", "pid", pid, "command", spec.Executable())

	waitErr := cmd.Wait()
	finish, clockErr := handoff.Now()

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return nil, &SpawnError{Op: "wait", Err: waitErr}
	}
	if clockErr != nil {
		return nil, &SpawnError{Op: "clock", Err: clockErr}
	}

	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return nil, &SpawnError{Op: "wait", Err: fmt.Errorf("unexpected wait status %T", cmd.ProcessState.Sys())}
	}
	outcome := outcomeFromWaitStatus(ws)
	s.logger.Debug("reaped tracked command", "pid", pid, "outcome", outcome.String())

	if !outcome.Signaled && outcome.Code == SetupFailureExitCode {
		if failure := setupFailure(ch); failure != nil {
			return nil, &ChildSetupError{
				Executable: failure.Executable,
				Errno:      failure.Errno,
				Reason:     failure.Reason,
			}
		}
	}

	ru, _ := cmd.ProcessState.SysUsage().(*syscall.Rusage)
	return &Execution{PID: pid, Finish: finish, Exit: outcome, Usage: ru}, nil
}

func setupFailure(ch *handoff.Channel) *handoff.SetupFailure {
	d, err := ch.Receive()
	if err != nil {
		return nil
	}
	return d.Failure
}

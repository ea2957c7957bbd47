//go:build linux
// +build linux

package supervisor

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/srodi/track/pkg/handoff"
)

const shellPath = "/bin/sh"

// RunChild is the child runner. It never returns on success because the
// process image is replaced by the target; otherwise it returns the exit code
// the process should terminate with.
func RunChild(argv []string) int {
	sender := handoff.NewSender(os.NewFile(ChildFD, "track-start"))
	if len(argv) == 0 || argv[0] == "" {
		_ = sender.SendFailure(handoff.SetupFailure{Errno: unix.EINVAL, Reason: "empty command"})
		return SetupFailureExitCode
	}

	// Stamp first: everything below counts towards the tracked command.
	// Without a start stamp there is nothing to measure, so the target is not run.
	stamp, err := handoff.Now()
	if err == nil {
		err = sender.SendStart(stamp)
	}
	if err != nil {
		_ = sender.SendFailure(handoff.SetupFailure{
			Executable: argv[0],
			Errno:      errnoOf(err),
			Reason:     "recording start time: " + err.Error(),
		})
		return SetupFailureExitCode
	}

	path, err := lookPath(argv[0])
	if err != nil {
		_ = sender.SendFailure(failureFrom(argv[0], err))
		return SetupFailureExitCode
	}

	// The target must not inherit the pipe, or the parent never sees EOF.
	unix.CloseOnExec(ChildFD)
	err = execvp(path, argv, os.Environ())

	_ = sender.SendFailure(failureFrom(argv[0], err))
	return SetupFailureExitCode
}

// execvp replaces the process with path. A file the kernel does not recognise
// as an executable (a script without "#!") is run by /bin/sh, as execvp(3) does.
func execvp(path string, argv, env []string) error {
	err := unix.Exec(path, argv, env)
	if !errors.Is(err, unix.ENOEXEC) {
		return err
	}
	shArgv := append([]string{"sh", path}, argv[1:]...)
	if serr := unix.Exec(shellPath, shArgv, env); serr != nil {
		return err
	}
	return nil
}

// lookPath resolves name the way execvp does, including PATH entries of ".".
func lookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if errors.Is(err, exec.ErrDot) {
		return path, nil
	}
	return path, err
}

func failureFrom(executable string, err error) handoff.SetupFailure {
	errno := errnoOf(err)
	reason := err.Error()
	if errno != 0 {
		reason = errno.Error()
	}
	return handoff.SetupFailure{Executable: executable, Errno: errno, Reason: reason}
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	switch {
	case errors.As(err, &errno):
		return errno
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return unix.ENOENT
	case errors.Is(err, fs.ErrPermission):
		return unix.EACCES
	default:
		return 0
	}
}

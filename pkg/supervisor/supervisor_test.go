package supervisor

import (
	"errors"
	"io/fs"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsChild(t *testing.T) {
	assert.True(t, IsChild([]string{"track", ChildRoleArg, "ls"}))
	assert.False(t, IsChild([]string{"track", "ls"}))
	assert.False(t, IsChild([]string{"track"}))
	assert.False(t, IsChild([]string{"track", "-t", ChildRoleArg}))
}

func TestChildArgv(t *testing.T) {
	assert.Equal(t, []string{"ls", "-l"}, ChildArgv([]string{"track", ChildRoleArg, "ls", "-l"}))
	assert.Empty(t, ChildArgv([]string{"track", ChildRoleArg}))
	assert.Nil(t, ChildArgv([]string{"track", "ls"}))
}

func TestChildSetupErrorUnwrapsErrno(t *testing.T) {
	err := error(&ChildSetupError{Executable: "nope", Errno: syscall.ENOENT, Reason: "no such file or directory"})
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "cannot launch nope: no such file or directory", err.Error())

	bare := &ChildSetupError{Executable: "nope", Reason: "odd"}
	assert.Nil(t, bare.Unwrap())
}

func TestSpawnErrorUnwraps(t *testing.T) {
	inner := errors.New("fork: resource temporarily unavailable")
	err := error(&SpawnError{Op: "spawn", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "spawn: fork: resource temporarily unavailable", err.Error())
}

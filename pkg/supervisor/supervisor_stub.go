//go:build !linux
// +build !linux

package supervisor

import (
	"github.com/srodi/track/pkg/handoff"
	"github.com/srodi/track/pkg/types"
)

// Execute is not supported on this platform.
func (s *Supervisor) Execute(_ *handoff.Channel, _ types.TrackedCommandSpec) (*Execution, error) {
	return nil, ErrUnsupported
}

// RunChild is not supported on this platform.
func RunChild(_ []string) int {
	return SetupFailureExitCode
}

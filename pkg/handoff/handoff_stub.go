//go:build !linux
// +build !linux

package handoff

import "github.com/srodi/track/pkg/types"

// Open always fails on unsupported platforms.
func Open() (*Channel, error) {
	return nil, ErrUnsupported
}

// Now always fails on unsupported platforms.
func Now() (types.Stamp, error) {
	return 0, ErrUnsupported
}

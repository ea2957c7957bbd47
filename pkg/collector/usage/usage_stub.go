//go:build !linux
// +build !linux

package usage

import "github.com/srodi/track/pkg/types"

func queryChildren() (types.ResourceUsage, error) {
	return types.ResourceUsage{}, ErrUnsupported
}

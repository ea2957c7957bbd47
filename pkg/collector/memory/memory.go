// Package memory relates a tracked command's peak resident set to the
// machine it ran on.
package memory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
)

// virtualMemory and openMeminfo allow tests to stub the host.
var (
	virtualMemory = mem.VirtualMemory
	openMeminfo   = func() (io.ReadCloser, error) { return os.Open("/proc/meminfo") }
)

// TotalMemoryBytes returns the total system memory in bytes.
// TODO: honour cgroup memory limits when running inside a container.
func TotalMemoryBytes() (uint64, error) {
	vm, err := virtualMemory()
	if err == nil && vm != nil && vm.Total > 0 {
		return vm.Total, nil
	}
	total, merr := meminfoTotal()
	if merr != nil {
		if err != nil {
			return 0, fmt.Errorf("virtual memory: %w; meminfo: %w", err, merr)
		}
		return 0, merr
	}
	return total, nil
}

func meminfoTotal() (uint64, error) {
	f, err := openMeminfo()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return parseMemTotal(f)
}

// parseMemTotal reads the MemTotal entry of a meminfo listing, in bytes.
func parseMemTotal(r io.Reader) (uint64, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok || key != "MemTotal" {
			continue
		}
		value, unit, _ := strings.Cut(strings.TrimSpace(rest), " ")
		kib, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing MemTotal %q: %w", rest, err)
		}
		if unit != "" && unit != "kB" {
			return 0, fmt.Errorf("MemTotal in unexpected unit %q", unit)
		}
		return kib * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading meminfo: %w", err)
	}
	return 0, errors.New("meminfo has no MemTotal entry")
}

// PeakBytes converts a getrusage max RSS (KiB on linux) to bytes.
func PeakBytes(maxRSSKiB int64) uint64 {
	if maxRSSKiB <= 0 {
		return 0
	}
	return uint64(maxRSSKiB) * 1024
}

// ShareOfTotal returns the peak RSS as a percentage of total memory, or 0 when
// the total is unknown.
func ShareOfTotal(maxRSSKiB int64, totalBytes uint64) float64 {
	if totalBytes == 0 {
		return 0
	}
	return float64(PeakBytes(maxRSSKiB)) / float64(totalBytes) * 100
}

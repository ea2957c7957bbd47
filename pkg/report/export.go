package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/srodi/track/pkg/types"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json and yaml (or yml); empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format %q (want text, json or yaml)", s)
	}
}

// UsageRecord mirrors types.ResourceUsage with stable field names.
type UsageRecord struct {
	SystemTimeMicros    int64 `json:"system_time_us" yaml:"system_time_us"`
	UserTimeMicros      int64 `json:"user_time_us" yaml:"user_time_us"`
	MaxRSSKiB           int64 `json:"max_rss_kib" yaml:"max_rss_kib"`
	Swaps               int64 `json:"swaps" yaml:"swaps"`
	InvoluntarySwitches int64 `json:"involuntary_context_switches" yaml:"involuntary_context_switches"`
	VoluntarySwitches   int64 `json:"voluntary_context_switches" yaml:"voluntary_context_switches"`
	PageReclaims        int64 `json:"page_reclaims" yaml:"page_reclaims"`
	PageFaults          int64 `json:"page_faults" yaml:"page_faults"`
	BlockInputOps       int64 `json:"block_input_operations" yaml:"block_input_operations"`
	BlockOutputOps      int64 `json:"block_output_operations" yaml:"block_output_operations"`
}

// Record is the machine-readable form of one tracked run.
type Record struct {
	RunID            string       `json:"run_id" yaml:"run_id"`
	Command          []string     `json:"command" yaml:"command"`
	ExitCode         int          `json:"exit_code" yaml:"exit_code"`
	Signal           string       `json:"signal,omitempty" yaml:"signal,omitempty"`
	ElapsedNanos     int64        `json:"elapsed_ns" yaml:"elapsed_ns"`
	Elapsed          string       `json:"elapsed" yaml:"elapsed"`
	Usage            *UsageRecord `json:"usage,omitempty" yaml:"usage,omitempty"`
	UsageError       string       `json:"usage_error,omitempty" yaml:"usage_error,omitempty"`
	TotalMemoryBytes uint64       `json:"total_memory_bytes,omitempty" yaml:"total_memory_bytes,omitempty"`
}

// NewRecord flattens stats into a Record. An empty runID gets a fresh UUID.
func NewRecord(runID string, spec types.TrackedCommandSpec, stats *types.CommandStats) Record {
	if runID == "" {
		runID = uuid.NewString()
	}
	rec := Record{
		RunID:            runID,
		Command:          spec.Argv(),
		ExitCode:         stats.Exit.Code,
		ElapsedNanos:     stats.Elapsed.Nanoseconds(),
		Elapsed:          Decompose(stats.Elapsed.Nanoseconds()).String(),
		TotalMemoryBytes: stats.TotalMemoryBytes,
	}
	if stats.Exit.Signaled {
		rec.Signal = stats.Exit.Signal.String()
	}
	if !stats.UsageAvailable() {
		rec.UsageError = stats.UsageErr.Error()
		return rec
	}
	u := stats.Usage
	rec.Usage = &UsageRecord{
		SystemTimeMicros:    u.SystemTime.Microseconds(),
		UserTimeMicros:      u.UserTime.Microseconds(),
		MaxRSSKiB:           u.MaxRSSKiB,
		Swaps:               u.Swaps,
		InvoluntarySwitches: u.InvoluntarySwitches,
		VoluntarySwitches:   u.VoluntarySwitches,
		PageReclaims:        u.MinorFaults,
		PageFaults:          u.MajorFaults,
		BlockInputOps:       u.BlockInputOps,
		BlockOutputOps:      u.BlockOutputOps,
	}
	return rec
}

// WriteJSON writes rec as indented JSON.
func WriteJSON(w io.Writer, rec Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// WriteYAML writes rec as a YAML document.
func WriteYAML(w io.Writer, rec Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return err
	}
	return enc.Close()
}

// WriteFile replaces path atomically so readers never see a partial report.
func WriteFile(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Write renders the run in format f to w.
func Write(w io.Writer, f Format, rec Record, spec types.TrackedCommandSpec, stats *types.CommandStats, sections types.Sections, opts Options) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, rec)
	case FormatYAML:
		return WriteYAML(w, rec)
	case FormatText, "":
		return Render(w, spec, stats, sections, opts)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

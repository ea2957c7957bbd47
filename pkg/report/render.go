package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/srodi/track/pkg/collector/memory"
	"github.com/srodi/track/pkg/types"
	"github.com/srodi/track/pkg/ui"
)

const separator = "-----------------------------------------------------------"

// Options controls text rendering.
type Options struct {
	Color ui.ColorMode
}

type printer struct {
	w      io.Writer
	styles ui.Styles
	err    error
}

func (p *printer) line(style lipgloss.Style, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, style.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) separator() {
	p.line(p.styles.Separator, separator)
}

// labelled prints "label value" with the label padded to 15 columns.
func (p *printer) labelled(style lipgloss.Style, label, format string, args ...any) {
	p.line(style, "%-15s "+format, append([]any{label}, args...)...)
}

// Render writes the text report for one tracked run. Sections appear in
// canonical order; when the usage counters are unavailable only the elapsed
// line is shown.
func Render(w io.Writer, spec types.TrackedCommandSpec, stats *types.CommandStats, sections types.Sections, opts Options) error {
	p := &printer{w: w, styles: ui.NewStyles(ui.NewRenderer(w, opts.Color))}

	p.line(p.styles.Command, "%s", strings.Join(spec.Argv(), " "))
	if !stats.Exit.Success() {
		p.line(p.styles.Status, "%s", stats.Exit.String())
	}

	if !stats.UsageAvailable() {
		p.separator()
		p.line(p.styles.Timer, "%s", Decompose(stats.Elapsed.Nanoseconds()).String())
		p.separator()
		p.line(p.styles.Note, "resource usage unavailable: %v", stats.UsageErr)
		p.separator()
		return p.err
	}

	u := stats.Usage
	for _, section := range sections.Selected() {
		p.separator()
		switch section {
		case types.SectionTimer:
			p.line(p.styles.Timer, "%s", Decompose(stats.Elapsed.Nanoseconds()).String())
			p.separator()
			p.labelled(p.styles.CPUTime, "System Time:", "%d micros", u.SystemTime.Microseconds())
			p.labelled(p.styles.CPUTime, "User Time:", "%d micros", u.UserTime.Microseconds())
		case types.SectionMemory:
			if stats.TotalMemoryBytes > 0 {
				p.labelled(p.styles.Memory, "Max Memory:", "%d K (%.2f%% of RAM)",
					u.MaxRSSKiB, memory.ShareOfTotal(u.MaxRSSKiB, stats.TotalMemoryBytes))
			} else {
				p.labelled(p.styles.Memory, "Max Memory:", "%d K", u.MaxRSSKiB)
			}
			p.labelled(p.styles.Memory, "Swaps:", "%d", u.Swaps)
		case types.SectionCPU:
			p.labelled(p.styles.Switches, "Involuntary context switches:", "%d", u.InvoluntarySwitches)
			p.labelled(p.styles.Switches, "Voluntary context switches:", "%d", u.VoluntarySwitches)
		case types.SectionIO:
			p.labelled(p.styles.IO, "Page Reclaims:", "%d", u.MinorFaults)
			p.labelled(p.styles.IO, "Page Faults:", "%d", u.MajorFaults)
			p.labelled(p.styles.IO, "Block input operations:", "%d", u.BlockInputOps)
			p.labelled(p.styles.IO, "Block output operations:", "%d", u.BlockOutputOps)
		}
	}
	p.separator()
	return p.err
}

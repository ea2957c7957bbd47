// Package ui holds the colour palette, renderer setup and banner shared by the
// report and the help screen.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette
var (
	ColorTimer     = lipgloss.Color("#B4E33D") // lime
	ColorCPUTime   = lipgloss.Color("#32FA96") // spring green
	ColorMemory    = lipgloss.Color("#3296FA") // azure
	ColorSwitches  = lipgloss.Color("#7FFFD4") // aquamarine
	ColorIO        = lipgloss.Color("#E6AF2E") // honey
	ColorSeparator = lipgloss.Color("#FFFFFF")
	ColorFailure   = lipgloss.Color("#EF4444")
	ColorMuted     = lipgloss.Color("#9CA3AF")
)

// ColorMode selects when escape sequences are emitted.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode accepts auto, always and never; empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways:
		return ColorAlways, nil
	case ColorNever:
		return ColorNever, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

// NewRenderer returns a renderer for w. Auto mode lets lipgloss inspect w, so
// pipes and files get plain text.
func NewRenderer(w io.Writer, mode ColorMode) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.TrueColor)
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// Styles are the per-section text styles of the report.
type Styles struct {
	Command   lipgloss.Style
	Status    lipgloss.Style
	Separator lipgloss.Style
	Timer     lipgloss.Style
	CPUTime   lipgloss.Style
	Memory    lipgloss.Style
	Switches  lipgloss.Style
	IO        lipgloss.Style
	Note      lipgloss.Style
}

// NewStyles builds the report styles on r.
func NewStyles(r *lipgloss.Renderer) Styles {
	fg := func(c lipgloss.Color) lipgloss.Style { return r.NewStyle().Foreground(c) }
	return Styles{
		Command:   r.NewStyle().Bold(true),
		Status:    fg(ColorFailure).Bold(true),
		Separator: fg(ColorSeparator),
		Timer:     fg(ColorTimer),
		CPUTime:   fg(ColorCPUTime),
		Memory:    fg(ColorMemory),
		Switches:  fg(ColorSwitches),
		IO:        fg(ColorIO),
		Note:      fg(ColorMuted).Italic(true),
	}
}

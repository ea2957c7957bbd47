package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tagline follows the wordmark on the help screen.
const Tagline = "resource usage of a single command"

var trackLetters = [][]string{
	{"████████╗", "╚══██╔══╝", "   ██║   ", "   ██║   ", "   ██║   ", "   ╚═╝   "},
	{"██████╗ ", "██╔══██╗", "██████╔╝", "██╔══██╗", "██║  ██║", "╚═╝  ╚═╝"},
	{" █████╗ ", "██╔══██╗", "███████║", "██╔══██║", "██║  ██║", "╚═╝  ╚═╝"},
	{" ██████╗", "██╔════╝", "██║     ", "██║     ", "╚██████╗", " ╚═════╝"},
	{"██╗  ██╗", "██║ ██╔╝", "█████╔╝ ", "██╔═██╗ ", "██║  ██╗", "╚═╝  ╚═╝"},
}

// the report's section colours, in report order
var bannerGradient = []lipgloss.Color{ColorTimer, ColorCPUTime, ColorMemory, ColorSwitches, ColorIO}

// Banner renders the track wordmark with r.
func Banner(r *lipgloss.Renderer) string {
	var b strings.Builder

	rows := make([]string, len(trackLetters[0]))
	for i, letter := range trackLetters {
		style := r.NewStyle().Bold(true).Foreground(bannerGradient[i%len(bannerGradient)])
		for row := range letter {
			rows[row] += style.Render(letter[row]) + " "
		}
	}
	for _, line := range rows {
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(r.NewStyle().Bold(true).Foreground(ColorTimer).Render("track"))
	b.WriteString("  •  " + Tagline + "\n\n")

	return b.String()
}

// Package theme holds the terminal styles of the kidquest CLI.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Palette shared by every command.
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Good = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Bad = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Highlight = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	Rule = lipgloss.NewStyle().
		Foreground(Border)
)

// Separator returns a horizontal rule of width cells.
func Separator(width int) string {
	return Rule.Render(strings.Repeat("─", width))
}

// Bar renders pct (0-100) as a filled bar of width cells followed by the
// percentage.
func Bar(pct, width int) string {
	if width < 4 {
		width = 4
	}
	filled := width * pct / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	color := Secondary
	if pct < 40 {
		color = Error
	}
	on := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	off := Rule.Render(strings.Repeat("░", width-filled))
	return on + off + Dim.Render(fmt.Sprintf(" %3d%%", pct))
}

// Pad right-pads s to width visible cells, ignoring ANSI sequences.
func Pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Package ui renders scan results for the terminal. All printing lives
// here and in the CLI layer; the engine packages stay silent and return
// data.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette.
var (
	Primary   = lipgloss.Color("#7D56F4")
	Secondary = lipgloss.Color("#00D4AA")

	High   = lipgloss.Color("#FF6B6B")
	Medium = lipgloss.Color("#FFD93D")
	Low    = lipgloss.Color("#6BCB77")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Danger  = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
)

// Pre-configured styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(22)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	TrackerStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	BlockedStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)
)

// SeverityStyle colors a fingerprinting severity label.
func SeverityStyle(severity string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch severity {
	case "high":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(High)
	case "medium":
		return base.Foreground(lipgloss.Color("#000000")).Background(Medium)
	case "low":
		return base.Foreground(lipgloss.Color("#000000")).Background(Low)
	default:
		return base.Foreground(Muted)
	}
}

// ScoreStyle colors a privacy score: green is clean, red is leaky.
func ScoreStyle(score int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case score >= 90:
		return base.Foreground(Success)
	case score >= 60:
		return base.Foreground(Warning)
	default:
		return base.Foreground(Danger)
	}
}

// ColorEnabled reports whether the terminal renders color; plain pipes get
// unstyled output.
func ColorEnabled() bool {
	return termenv.ColorProfile() != termenv.Ascii
}

// DisableColor forces unstyled output regardless of terminal support.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

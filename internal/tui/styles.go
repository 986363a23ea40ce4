package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#10B981")
	colorAccent    = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
	colorFg        = lipgloss.Color("#F9FAFB")
)

// Styles
var (
	// Title styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	// Box styles
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	// Transcript styles
	InputEchoStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	OutputStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	CommandOutputStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Italic(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(colorError)

	ValueStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	// Status styles
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(colorFg).
			Padding(0, 1)

	// Help style
	HelpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Input style
	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(colorPrimary).
				Padding(0, 1)

	// Tab styles
	TabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(colorMuted)

	ActiveTabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(colorPrimary).
			Bold(true).
			Underline(true)
)

// RenderTitle renders a view title
func RenderTitle(title string) string {
	return TitleStyle.Render(title)
}

// RenderError renders an error line
func RenderError(err string) string {
	return ErrorMessageStyle.Render(err)
}

// RenderHelp renders a help line
func RenderHelp(help string) string {
	return HelpStyle.Render(help)
}

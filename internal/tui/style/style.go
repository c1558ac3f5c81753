// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Package-level styles; lipgloss styles are values and safe to share.
var (
	// Title is used for the app header and state headings.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary text such as the elapsed clock.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Recording marks a live recording.
	Recording = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	// Success is used for saved-file notices.
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	// Error is used for recorder failures.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Warning is used for the paused state and incomplete output.
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Label is used for setting names (e.g., "Area:", "Audio:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// Muted is used for de-emphasized values (e.g., output paths).
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	// Panel frames the settings summary.
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)
)

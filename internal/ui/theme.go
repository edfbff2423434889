package ui

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	colorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	colorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	colorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)

	addButtonStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(colorGreen).
			Padding(0, 1)

	closeButtonStyle = addButtonStyle.Background(colorRed)

	countStyle = lipgloss.NewStyle().Foreground(colorGray)

	taskStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorBorder)

	// reminderStyle marks tasks with a reminder set, like the green edge of
	// the web version.
	reminderStyle = taskStyle.BorderForeground(colorGreen)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)

	dayStyle = lipgloss.NewStyle().Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().Foreground(colorRed)

	helpStyle = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
)

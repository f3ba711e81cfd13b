package tui

import "github.com/charmbracelet/lipgloss"

const outlineWidth = 32

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	faintStyle   = lipgloss.NewStyle().Faint(true)
	dirtyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	outlineStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	outlineFocusedStyle = outlineStyle.BorderForeground(lipgloss.Color("63"))
	selectedStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))
)

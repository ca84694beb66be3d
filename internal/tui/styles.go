package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/calgrid/internal/tui/theme"
)

var (
	docStyle = lipgloss.NewStyle().Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(theme.Accent).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	modeStyle = lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1)

	dayTitleStyle = lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(theme.Danger).
			Padding(0, 1)

	dangerStyle = lipgloss.NewStyle().
			Foreground(theme.Danger).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Faint)
)

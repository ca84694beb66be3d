// Package theme holds the colors shared by the TUI components.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/calgrid/internal/constants"
)

var (
	Accent = lipgloss.Color("205")
	Muted  = lipgloss.Color("241")
	Faint  = lipgloss.Color("238")
	Text   = lipgloss.Color("252")
	Danger = lipgloss.Color("196")
)

var palette = map[string]lipgloss.Color{
	constants.ColorDefault: lipgloss.Color("111"),
	constants.ColorRed:     lipgloss.Color("203"),
	constants.ColorGreen:   lipgloss.Color("114"),
	constants.ColorYellow:  lipgloss.Color("221"),
	constants.ColorPurple:  lipgloss.Color("141"),
	constants.ColorPink:    lipgloss.Color("218"),
	constants.ColorIndigo:  lipgloss.Color("105"),
}

// EventColor maps an event color name to a terminal color. Unknown names get the
// default.
func EventColor(name string) lipgloss.Color {
	if c, ok := palette[name]; ok {
		return c
	}
	return palette[constants.ColorDefault]
}

// EventStyle renders text in an event's color.
func EventStyle(name string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(EventColor(name))
}

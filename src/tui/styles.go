package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StyleConfig is the colour palette of the insight browser.
type StyleConfig struct {
	Accent     lipgloss.Color
	Background lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Selection  lipgloss.Color

	// Keyed by lower-case Linear workflow state.
	StatusColors map[string]lipgloss.Color
}

// DefaultStyles returns the dark palette.
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		Accent:     lipgloss.Color("#F1C40F"),
		Background: lipgloss.Color("#1C1C1C"),
		Text:       lipgloss.Color("#ECECEC"),
		Muted:      lipgloss.Color("#8A8A8A"),
		Border:     lipgloss.Color("#4E4E4E"),
		Selection:  lipgloss.Color("#333333"),
		StatusColors: map[string]lipgloss.Color{
			"triage":      lipgloss.Color("#F39C12"),
			"backlog":     lipgloss.Color("#5DADE2"),
			"todo":        lipgloss.Color("#5DADE2"),
			"in progress": lipgloss.Color("#AF7AC5"),
			"in review":   lipgloss.Color("#AF7AC5"),
			"done":        lipgloss.Color("#58D68D"),
			"canceled":    lipgloss.Color("#EC7063"),
			"duplicate":   lipgloss.Color("#EC7063"),
		},
	}
}

// StatusColor returns the colour of a ticket state, Muted when unknown.
func (s *StyleConfig) StatusColor(status string) lipgloss.Color {
	if c, ok := s.StatusColors[strings.ToLower(strings.TrimSpace(status))]; ok {
		return c
	}
	return s.Muted
}

// HelpStyle is used for the key hints under the panels.
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.Muted).
		Padding(0, 2)
}

// PanelStyle draws a bordered panel; the focused panel gets the accent border.
func (s *StyleConfig) PanelStyle(focused bool) lipgloss.Style {
	border := s.Border
	if focused {
		border = s.Accent
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}

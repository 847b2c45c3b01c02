package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// columnHeader lines up with the rows drawn by Delegate.
func columnHeader(d *Delegate) string {
	return strings.Join([]string{
		fmt.Sprintf("%*s", d.RankWidth, "Rk"),
		fmt.Sprintf("%*s", d.QuoteWidth, "Qt"),
		TruncateAndPad("Status", statusWidth, false),
		"Summary",
	}, " │ ")
}

// renderListPanel draws the column header above the bordered insight list.
// The list itself is sized in resizeComponents.
func (m MainModel) renderListPanel(width, height int) string {
	heading := lipgloss.NewStyle().
		Foreground(m.styles.Accent).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(Truncate(columnHeader(m.listView.GetDelegate()), width-4, true))

	body := m.styles.PanelStyle(!m.detailFocused).
		Width(width - 2).
		Height(height).
		Render(m.listView.Render())

	return lipgloss.JoinVertical(lipgloss.Left, heading, body)
}

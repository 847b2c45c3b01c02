package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// listShare is the fraction of the width given to the insight list.
const listShare = 0.4

type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

type keyHint struct {
	key  string
	desc string
}

var (
	listHints = []keyHint{
		{"j/k", "Nav"}, {"Enter", "View"}, {"Tab", "Channel"},
		{"/", "Search"}, {"r", "Refresh"}, {"q", "Quit"},
	}
	detailHints = []keyHint{
		{"j/k", "Scroll"}, {"Esc", "Back"}, {"q", "Quit"},
	}
)

// calculateDimensions is shared by View and resizeComponents so both agree
// on the panel sizes.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// help line, column header row, top and bottom border
	availableHeight := max(0, m.height-headerHeight-4)

	left := int(float64(m.width) * listShare)
	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  left,
		rightPanelWidth: m.width - left,
	}
}

// View renders the whole screen.
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)
	centered := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center).PaddingTop(2)

	switch {
	case m.status == StatusError:
		msg := Wrap(fmt.Sprintf("Failed to load insights: %v", m.err), max(10, m.width-4))
		errView := centered.Foreground(lipgloss.Color("#EC7063")).Render(msg)
		return lipgloss.JoinVertical(lipgloss.Left, header, errView, m.renderHelpText())

	case m.status == StatusLoading && len(m.items) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, header, centered.Render(m.progress.View()))
	}

	dims := m.calculateDimensions()
	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderListPanel(dims.leftPanelWidth, dims.availableHeight),
		m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, panels, m.renderHelpText())
}

func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.Accent).Bold(true)
	sep := lipgloss.NewStyle().Foreground(m.styles.Muted).Render(" • ")

	hints := listHints
	if m.detailFocused {
		hints = detailHints
	}
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = keyStyle.Render(h.key) + " " + h.desc
	}

	// HelpStyle pads two columns on each side.
	return m.styles.HelpStyle().Render(ansi.Truncate(strings.Join(parts, sep), max(0, m.width-4), ""))
}

func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)
	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight

	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	}
}

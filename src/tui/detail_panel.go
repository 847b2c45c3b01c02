package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDetail renders the detail content for an insight
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	content := strings.Builder{}
	ins := item.Insight

	sectionStyle := lipgloss.NewStyle().Foreground(m.styles.Muted).Bold(true)
	bodyStyle := lipgloss.NewStyle().Foreground(m.styles.Text)
	quoteStyle := lipgloss.NewStyle().Foreground(m.styles.Muted).Faint(true)

	header := lipgloss.NewStyle().
		Foreground(m.styles.Accent).
		Bold(true).
		Render(Wrap(fmt.Sprintf("Ticket: %s | Status: %s | Quotes: %d",
			item.TicketLabel(), ins.Status, item.QuoteCount()), maxWidth))
	fmt.Fprintf(&content, "%s\n\n", header)

	fmt.Fprintln(&content, sectionStyle.Render("Summary:"))
	fmt.Fprintln(&content, bodyStyle.Render(Wrap(CleanDisplayText(ins.Summary), maxWidth)))
	fmt.Fprintln(&content)

	if len(ins.Quotes) > 0 {
		fmt.Fprintln(&content, sectionStyle.Render("Quotes:"))
		for _, q := range ins.Quotes {
			if strings.TrimSpace(q) == "" {
				continue
			}
			// Wrap before styling so the width math ignores escape codes
			wrapped := Wrap("> "+CleanDisplayText(q), maxWidth)
			fmt.Fprintln(&content, quoteStyle.Render(wrapped))
		}
		fmt.Fprintln(&content)
	}

	fmt.Fprintln(&content, sectionStyle.Render("Documentation:"))
	doc := ins.DocURL
	if doc == "" {
		doc = "N/A"
	}
	fmt.Fprintln(&content, bodyStyle.Render(Wrap(doc, maxWidth)))
	fmt.Fprintln(&content)

	if ins.URL != "" {
		fmt.Fprintln(&content, sectionStyle.Render("Ticket URL:"))
		fmt.Fprintln(&content, bodyStyle.Render(Wrap(ins.URL, maxWidth)))
		fmt.Fprintln(&content)
	}

	fmt.Fprintln(&content, sectionStyle.Render("Suggestion:"))
	for _, para := range strings.Split(sanitizeBlock(ins.Suggestion), "\n") {
		if strings.TrimSpace(para) == "" {
			fmt.Fprintln(&content)
			continue
		}
		fmt.Fprintln(&content, bodyStyle.Render(Wrap(para, maxWidth)))
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	maxWidth := m.detailViewport.Width - 2 // 1 char padding on each side
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel draws the selected insight, or a placeholder when the
// filters leave nothing to show.
func (m MainModel) renderDetailPanel(width, height int) string {
	panel := m.styles.PanelStyle(m.detailFocused).Width(width - 2).Height(height)

	selected, ok := m.listView.GetSelectedItem()
	if !ok {
		empty := panel.Align(lipgloss.Center, lipgloss.Center).Foreground(m.styles.Muted).Faint(true)
		return lipgloss.JoinVertical(lipgloss.Left, " ", empty.Render("No insights to show"))
	}

	heading := lipgloss.NewStyle().
		Foreground(m.styles.Accent).
		Bold(true).
		Padding(0, 1).
		Render(Truncate("#"+selected.Insight.ChannelName, width-2, true))

	return lipgloss.JoinVertical(lipgloss.Left, heading, panel.Render(m.detailViewport.View()))
}

// sanitizeBlock cleans multi-line text but keeps its line structure.
func sanitizeBlock(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = CleanDisplayText(line)
	}
	return strings.Join(lines, "\n")
}

package tui

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	// Breakdown: panel border (2) + list internal padding/margins (8) = 10 chars total.
	listRenderingOverhead = 10

	// statusWidth fits the usual Linear workflow states ("Triage", "Backlog", "In Progress").
	statusWidth = 11
)

// Delegate renders insight items as table rows.
type Delegate struct {
	RankWidth  int
	QuoteWidth int
	styles     *StyleConfig
}

// NewDelegate creates a new insight table delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		RankWidth:  2, // default minimum
		QuoteWidth: 2, // default minimum
		styles:     styles,
	}
}

// SetColumnWidths sets the widths for the rank and quote count columns
func (d *Delegate) SetColumnWidths(maxRank, maxQuotes int) {
	d.RankWidth = max(2, len(fmt.Sprintf("%d", maxRank)))
	d.QuoteWidth = max(2, len(fmt.Sprintf("%d", maxQuotes)))
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	rankCol := fmt.Sprintf("%*d", d.RankWidth, entry.Rank)
	quoteCol := fmt.Sprintf("%*d", d.QuoteWidth, entry.QuoteCount())
	statusCol := TruncateAndPad(entry.Insight.Status, statusWidth, false)

	// Fixed columns: rank + quotes + status + separators (9)
	fixedWidth := d.RankWidth + d.QuoteWidth + statusWidth + 9
	availableWidth := m.Width() - fixedWidth - listRenderingOverhead

	var snippet string
	if availableWidth > 0 {
		snippet = TruncateAndPad(CleanDisplayText(entry.Insight.Summary), availableWidth, true)
	}

	style := lipgloss.NewStyle().Foreground(d.styles.Muted)
	if isSelected {
		style = style.Bold(true).Foreground(d.styles.Accent).Background(d.styles.Selection)
	}
	statusStyle := style.Foreground(d.styles.StatusColor(entry.Insight.Status))

	fmt.Fprint(w, style.Render(fmt.Sprintf("%s │ %s │ ", rankCol, quoteCol))+
		statusStyle.Render(statusCol)+
		style.Render(" │ "+snippet))
}

func sortByQuotes(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].QuoteCount() > items[j].QuoteCount()
	})
}

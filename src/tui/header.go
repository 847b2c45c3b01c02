package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// AllChannels is the filter value that shows every channel.
const AllChannels = "ALL"

// Header is the status bar: run status, channel filter, search box and the
// number of insights shown.
type Header struct {
	status    string
	filter    string
	channels  []string
	query     string
	searching bool
	shown     int
	total     int
	styles    *StyleConfig
}

func NewHeader(status string, channels []string, styles *StyleConfig) Header {
	return Header{
		status:   status,
		filter:   AllChannels,
		channels: channels,
		styles:   styles,
	}
}

// Filter returns the selected channel, or AllChannels.
func (h Header) Filter() string {
	return h.filter
}

func (h *Header) SetFilter(filter string) {
	h.filter = filter
}

// NextFilter moves to the next channel, wrapping through AllChannels.
func (h *Header) NextFilter() {
	order := append([]string{AllChannels}, h.channels...)
	next := 0
	for i, f := range order {
		if f == h.filter {
			next = (i + 1) % len(order)
			break
		}
	}
	h.filter = order[next]
}

func (h *Header) SetStatus(status string) {
	h.status = status
}

// SetChannels replaces the filter choices. A filter on a channel that
// disappeared falls back to AllChannels.
func (h *Header) SetChannels(channels []string) {
	h.channels = channels
	for _, c := range channels {
		if c == h.filter {
			return
		}
	}
	h.filter = AllChannels
}

func (h *Header) SetSearch(query string, searching bool) {
	h.query = query
	h.searching = searching
}

// SetCounts records how many insights pass the filters out of how many were loaded.
func (h *Header) SetCounts(shown, total int) {
	h.shown = shown
	h.total = total
}

func (h Header) Render(width int) string {
	segment := lipgloss.NewStyle().Foreground(h.styles.Accent).Bold(true).Padding(0, 2)

	var search string
	switch {
	case h.searching:
		search = fmt.Sprintf("🔍 Search: %s█", h.query)
	case h.query != "":
		search = fmt.Sprintf("🔍 Search: %s", h.query)
	default:
		search = "🔍 [/] to search"
	}
	searchStyle := segment.Bold(false).Foreground(h.styles.Muted)
	if h.searching {
		searchStyle = searchStyle.Foreground(h.styles.Accent)
	}

	left := lipgloss.JoinHorizontal(lipgloss.Left,
		segment.Render("💡 "+h.status),
		segment.Render("# Channel: "+h.filter),
		searchStyle.Render(search),
	)
	right := segment.Bold(false).Foreground(h.styles.Muted).Render(fmt.Sprintf("%d/%d", h.shown, h.total))

	gap := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	bar := left + lipgloss.NewStyle().Width(gap).Render("") + right
	if lipgloss.Width(bar) > width {
		bar = left
	}

	return lipgloss.NewStyle().
		Background(h.styles.Background).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.Border).
		Width(width).
		Render(bar)
}

package tui

import (
	"strings"
)

// applyFilter filters items by channel and search query
func (m *MainModel) applyFilter() {
	filter := m.header.Filter()

	var filtered []Item
	for _, item := range m.items {
		if filter != AllChannels && item.Insight.ChannelName != filter {
			continue
		}
		if m.searchQuery != "" && !matches(item, strings.ToLower(m.searchQuery)) {
			continue
		}
		filtered = append(filtered, item)
	}

	m.listView.SetItems(filtered)
	m.header.SetCounts(len(filtered), len(m.items))
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	} else {
		m.detailViewport.SetContent("")
	}
}

// matches searches summary, channel, ticket, status, quotes and suggestion.
func matches(item Item, query string) bool {
	ins := item.Insight
	for _, field := range []string{ins.Summary, ins.ChannelName, ins.Identifier, ins.Status, ins.Suggestion} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	for _, q := range ins.Quotes {
		if strings.Contains(strings.ToLower(q), query) {
			return true
		}
	}
	return false
}

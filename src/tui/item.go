package tui

import "insight-agent/src/contracts"

// Item represents an item that can be displayed in the insight list.
// It wraps the stored Insight and implements bubbles/list.Item.
type Item struct {
	Insight contracts.Insight
	Rank    int
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Insight.Summary }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return i.Insight.Summary }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string { return i.Insight.ChannelName }

// QuoteCount returns the number of quotes behind this insight.
func (i Item) QuoteCount() int {
	return len(i.Insight.Quotes)
}

// TicketLabel returns the ticket identifier, or "-" for dry-run records.
func (i Item) TicketLabel() string {
	if i.Insight.Identifier != "" {
		return i.Insight.Identifier
	}
	return "-"
}

// NewItems ranks insights by quote count, most quoted first. Ties keep store order.
func NewItems(insights []contracts.Insight) []Item {
	items := make([]Item, len(insights))
	for i, ins := range insights {
		items[i] = Item{Insight: ins}
	}
	sortByQuotes(items)
	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

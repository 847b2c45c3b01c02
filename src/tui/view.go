package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// View is the scrollable insight list. Filtering is done by MainModel, so the
// bubbles list only draws and navigates.
type View struct {
	list     list.Model
	delegate *Delegate
}

func NewView() View {
	d := NewDelegate()
	l := list.New(nil, &d, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return View{list: l, delegate: &d}
}

func (v View) Update(msg tea.Msg) (View, tea.Cmd) {
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *View) SetSize(width, height int) {
	v.list.SetSize(width, height)
}

// SetItems replaces the rows and resizes the rank and quote columns to fit.
func (v *View) SetItems(items []Item) {
	rows := make([]list.Item, len(items))
	maxRank, maxQuotes := 0, 0
	for i, item := range items {
		rows[i] = item
		maxRank = max(maxRank, item.Rank)
		maxQuotes = max(maxQuotes, item.QuoteCount())
	}
	v.delegate.SetColumnWidths(maxRank, maxQuotes)
	v.list.SetItems(rows)
}

// Len is the number of rows after filtering.
func (v View) Len() int {
	return len(v.list.Items())
}

func (v View) GetSelectedItem() (Item, bool) {
	item, ok := v.list.SelectedItem().(Item)
	return item, ok
}

func (v View) Render() string {
	return v.list.View()
}

func (v View) GetDelegate() *Delegate {
	return v.delegate
}

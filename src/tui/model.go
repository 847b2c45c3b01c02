// Package tui provides the terminal insight browser: a list of escalated
// insights on the left and the selected insight's quotes, documentation link
// and suggestion on the right.
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"insight-agent/src/contracts"
	"insight-agent/src/store"
)

// LoadStatus is the state of the data behind the browser.
type LoadStatus int

const (
	StatusLoading LoadStatus = iota // run still in flight, polling
	StatusReady
	StatusError
)

const (
	pollInterval = 2 * time.Second
	loadTimeout  = 10 * time.Second
)

// Snapshot is what a Loader returns. Run is nil when browsing every run.
type Snapshot struct {
	Run      *contracts.RunStatus
	Insights []contracts.Insight
}

// Loader fetches the current snapshot.
type Loader func(ctx context.Context) (Snapshot, error)

// StoreLoader loads one run (or every run when runID is empty) from a store.
func StoreLoader(st store.Store, runID string) Loader {
	return func(ctx context.Context) (Snapshot, error) {
		var snap Snapshot
		if runID != "" {
			status, err := st.GetRunStatus(ctx, runID)
			if err != nil {
				return snap, fmt.Errorf("failed to get run %s: %w", runID, err)
			}
			snap.Run = status
		}
		insights, err := st.ListInsights(ctx, runID)
		if err != nil {
			return snap, fmt.Errorf("failed to list insights: %w", err)
		}
		snap.Insights = insights
		return snap, nil
	}
}

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type refreshMsg struct{}

// MainModel is the Bubble Tea model for the insight browser.
type MainModel struct {
	loader Loader
	styles *StyleConfig

	width  int
	height int
	ready  bool

	status LoadStatus
	err    error
	items  []Item

	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel

	detailFocused bool
	searchMode    bool
	searchQuery   string
}

// NewMainModel creates the browser. Nothing is loaded until Init runs.
func NewMainModel(loader Loader) MainModel {
	styles := DefaultStyles()
	return MainModel{
		loader:         loader,
		styles:         styles,
		status:         StatusLoading,
		header:         NewHeader("Loading", nil, styles),
		listView:       NewView(),
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel(),
	}
}

// Run starts the browser in the alternate screen and blocks until it exits.
func Run(loader Loader) error {
	p := tea.NewProgram(NewMainModel(loader), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init starts the spinner and the first load.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.progress.Init(), m.load())
}

func (m MainModel) load() tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		snap, err := loader(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case spinner.TickMsg, ProgressMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case refreshMsg:
		return m, m.load()

	case snapshotMsg:
		return m.applySnapshot(msg)

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m MainModel) applySnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = StatusError
		m.err = msg.err
		m.header.SetStatus("Error")
		return m, nil
	}

	m.err = nil
	m.items = NewItems(msg.snap.Insights)
	m.header.SetChannels(channelsOf(m.items))
	m.header.SetStatus(statusText(msg.snap))
	m.applyFilter()
	if m.ready {
		m.resizeComponents()
	}

	run := msg.snap.Run
	if run != nil && (run.Status == contracts.RunPending || run.Status == contracts.RunProcessing) {
		m.status = StatusLoading
		var stage ProgressMsg
		if run.Clusters > 0 {
			stage = ProgressMsg{Stage: "Filing tickets", Current: run.Tickets, Total: run.Clusters}
		} else {
			stage = ProgressMsg{Stage: fmt.Sprintf("Run %s", run.Status)}
		}
		m.progress, _ = m.progress.Update(stage)
		return m, tea.Tick(pollInterval, func(time.Time) tea.Msg { return refreshMsg{} })
	}

	m.status = StatusReady
	m.progress, _ = m.progress.Update(ProgressMsg{Stage: "complete"})
	return m, nil
}

func (m MainModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m, nil
}

func (m MainModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "tab":
		m.header.NextFilter()
		m.applyFilter()
		return m, nil
	case "enter":
		if m.listView.Len() > 0 {
			m.detailFocused = true
		}
		return m, nil
	case "esc":
		m.detailFocused = false
		return m, nil
	case "r":
		return m, m.load()
	}

	var cmd tea.Cmd
	if m.detailFocused {
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	before, _ := m.listView.GetSelectedItem()
	m.listView, cmd = m.listView.Update(msg)
	if after, ok := m.listView.GetSelectedItem(); ok && after.Rank != before.Rank {
		m.updateDetailContent(after)
	}
	return m, cmd
}

func channelsOf(items []Item) []string {
	seen := make(map[string]bool)
	var channels []string
	for _, item := range items {
		c := item.Insight.ChannelName
		if c != "" && !seen[c] {
			seen[c] = true
			channels = append(channels, c)
		}
	}
	sort.Strings(channels)
	return channels
}

func statusText(snap Snapshot) string {
	if snap.Run == nil {
		return fmt.Sprintf("All runs │ %d insights", len(snap.Insights))
	}
	id := snap.Run.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Run %s │ %s │ %d insights", id, snap.Run.Status, len(snap.Insights))
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var insightLogo = []string{
	"██ ███    ██ ███████ ██  ██████  ██   ██ ████████",
	"██ ████   ██ ██      ██ ██       ██   ██    ██   ",
	"██ ██ ██  ██ ███████ ██ ██   ███ ███████    ██   ",
	"██ ██  ██ ██      ██ ██ ██    ██ ██   ██    ██   ",
	"██ ██   ████ ███████ ██  ██████  ██   ██    ██   ",
}

// Top to bottom.
var logoShades = []lipgloss.Color{"#F7DC6F", "#F4D03F", "#F1C40F", "#D4AC0D", "#B7950B"}

const progressBarWidth = 20

// ProgressMsg reports how far the run being watched has got.
// Stage "complete" stops the spinner.
type ProgressMsg struct {
	Stage   string
	Current int
	Total   int
}

// ProgressModel renders the loading screen shown while a run is in flight.
type ProgressModel struct {
	spinner spinner.Model
	stage   string
	current int
	total   int
	done    bool
}

func NewProgressModel() ProgressModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1C40F"))
	return ProgressModel{spinner: s}
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		m.done = msg.Stage == "complete"
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	lines := make([]string, len(insightLogo))
	for i, line := range insightLogo {
		lines[i] = lipgloss.NewStyle().Foreground(logoShades[i%len(logoShades)]).Bold(true).Render(line)
	}
	logo := strings.Join(lines, "\n")

	var status string
	switch {
	case m.done:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓ Complete! Press (r) to refresh")
	case m.total > 0:
		status = fmt.Sprintf("%s %s %s %d/%d (%.0f%%)", m.spinner.View(), m.stage,
			progressBar(m.current, m.total, progressBarWidth), m.current, m.total,
			float64(m.current)/float64(m.total)*100)
	case m.stage != "":
		status = fmt.Sprintf("%s %s...", m.spinner.View(), m.stage)
	default:
		status = fmt.Sprintf("%s Loading...", m.spinner.View())
	}

	return lipgloss.JoinVertical(lipgloss.Center, logo, "", status)
}

func progressBar(current, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width, current*width/total)
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

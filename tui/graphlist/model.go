package graphlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dukerupert/graphium/internal/graphs"
	"github.com/dukerupert/graphium/tui"
)

// countWorkers bounds the parallel version count requests.
const countWorkers = 4

type phase int

const (
	phaseLoading phase = iota
	phaseList
)

type graphsLoadedMsg struct {
	names  []string
	counts []int
	err    error
}

// Model is the BubbleTea model for the graph list screen.
type Model struct {
	phase   phase
	session *tui.Session
	api     *graphs.API

	names  []string
	counts []int
	cursor int

	spinner spinner.Model
	err     error
}

// New creates a graph list model for the session's connection.
func New(session *tui.Session) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = tui.SpinnerStyle

	return Model{
		phase:   phaseLoading,
		session: session,
		api:     graphs.NewAPI(session.Client),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) load() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx := context.Background()
		names, err := api.GraphNames(ctx)
		if err != nil {
			return graphsLoadedMsg{err: err}
		}
		counts, err := graphs.CountVersions(ctx, graphs.WorkerFactory(api), names, "", countWorkers)
		return graphsLoadedMsg{names: names, counts: counts, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseLoading:
		switch msg := msg.(type) {
		case graphsLoadedMsg:
			m.names = msg.names
			m.counts = msg.counts
			m.err = msg.err
			m.phase = phaseList
			for i, name := range m.names {
				if name == m.session.Graph {
					m.cursor = i
				}
			}
			return m, nil
		case spinner.TickMsg:
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	case phaseList:
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.names) == 0 {
			return m, nil
		}
		m.session.Graph = m.names[m.cursor]
		return m, tui.Back(tui.ScreenVersions)
	case "r":
		m.err = nil
		m.phase = phaseLoading
		return m, tea.Batch(m.spinner.Tick, m.load())
	case "esc", "q":
		return m, tui.Back(tui.ScreenMenu)
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("graphs"))
	b.WriteString("\n")
	b.WriteString(tui.RenderField("Connection", m.session.ConnectionName()))
	b.WriteString("\n")

	switch m.phase {
	case phaseLoading:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading graphs...")
		return b.String()

	case phaseList:
		if m.err != nil {
			b.WriteString(tui.ErrorStyle.Render("Error: ") + m.err.Error() + "\n")
		}
		if len(m.names) == 0 && m.err == nil {
			b.WriteString("  No graphs on this server.\n")
		}
		for i, name := range m.names {
			count := ""
			if i < len(m.counts) {
				count = fmt.Sprintf("%d versions", m.counts[i])
			}
			line := fmt.Sprintf("    %-32s %s", name, count)
			if i == m.cursor {
				line = tui.CursorStyle.Render(fmt.Sprintf("  > %-32s", name)) + " " + count
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(tui.HelpStyle.Render("\nj/k: navigate  enter: versions  r: reload  esc: menu"))
	}
	return b.String()
}

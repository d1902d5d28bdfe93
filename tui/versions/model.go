package versions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dukerupert/graphium/internal/graphs"
	"github.com/dukerupert/graphium/tui"
	"github.com/dustin/go-humanize"
)

type phase int

const (
	phaseLoading phase = iota
	phaseDisplay
	phaseConfirmDelete
	phaseUpdating
)

type versionsLoadedMsg struct {
	versions []graphs.Version
	err      error
}

type stateChangedMsg struct {
	version string
	state   string
	err     error
}

// Model is the BubbleTea model for the version list of one graph.
type Model struct {
	phase   phase
	session *tui.Session
	api     *graphs.API

	versions []graphs.Version
	cursor   int
	message  string

	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
	err      error
}

// New creates a version list model for the session's graph.
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

// headerHeight is the number of fixed lines above the viewport (title + connection + graph + blank + section header).
const headerHeight = 6

// footerHeight is the number of fixed lines below the viewport (status + help bar).
const footerHeight = 3

func (m Model) load() tea.Cmd {
	api := m.api
	graph := m.session.Graph
	return func() tea.Msg {
		vs, err := api.Versions(context.Background(), graph, "")
		return versionsLoadedMsg{versions: vs, err: err}
	}
}

func (m Model) setState(version, state string) tea.Cmd {
	api := m.api
	graph := m.session.Graph
	return func() tea.Msg {
		var err error
		if state == graphs.StateActive {
			_, err = api.Activate(context.Background(), graph, version)
		} else {
			_, err = api.MarkDeleted(context.Background(), graph, version)
		}
		return stateChangedMsg{version: version, state: state, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = ws.Width
		m.height = ws.Height
		m.viewport.Width = ws.Width
		m.viewport.Height = m.viewportHeight()
	}

	switch m.phase {
	case phaseLoading, phaseUpdating:
		return m.updateWaiting(msg)
	case phaseDisplay:
		return m.updateDisplay(msg)
	case phaseConfirmDelete:
		return m.updateConfirmDelete(msg)
	}
	return m, nil
}

func (m Model) updateWaiting(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case versionsLoadedMsg:
		m.versions = msg.versions
		m.err = msg.err
		if m.cursor >= len(m.versions) {
			m.cursor = 0
		}
		m.phase = phaseDisplay
		m.initViewport()
		return m, nil
	case stateChangedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseDisplay
			m.refresh()
			return m, nil
		}
		m.message = fmt.Sprintf("%s is now %s", msg.version, msg.state)
		m.phase = phaseLoading
		return m, tea.Batch(m.spinner.Tick, m.load())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) viewportHeight() int {
	h := m.height - headerHeight - footerHeight
	if h < 1 {
		h = 20 // fallback before first WindowSizeMsg
	}
	return h
}

func (m *Model) initViewport() {
	m.viewport = viewport.New(m.width, m.viewportHeight())
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderVersions())
	// Keep the cursor line visible.
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m Model) updateDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.versions)-1 {
			m.cursor++
		}
	case "a":
		if v, ok := m.selected(); ok && v.State != graphs.StateActive {
			m.err = nil
			m.phase = phaseUpdating
			return m, tea.Batch(m.spinner.Tick, m.setState(v.Version, graphs.StateActive))
		}
	case "d":
		if v, ok := m.selected(); ok && v.State != graphs.StateDeleted {
			m.phase = phaseConfirmDelete
		}
	case "r":
		m.err = nil
		m.message = ""
		m.phase = phaseLoading
		return m, tea.Batch(m.spinner.Tick, m.load())
	case "esc":
		return m, tui.Back(tui.ScreenGraphs)
	case "q":
		return m, tea.Quit
	}
	m.refresh()
	return m, nil
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y":
		v, _ := m.selected()
		m.err = nil
		m.phase = phaseUpdating
		return m, tea.Batch(m.spinner.Tick, m.setState(v.Version, graphs.StateDeleted))
	case "n", "esc":
		m.phase = phaseDisplay
	}
	return m, nil
}

func (m Model) selected() (graphs.Version, bool) {
	if m.cursor < 0 || m.cursor >= len(m.versions) {
		return graphs.Version{}, false
	}
	return m.versions[m.cursor], true
}

// renderVersions builds the scrollable content string for the viewport.
func (m Model) renderVersions() string {
	if len(m.versions) == 0 {
		return "  (no versions)\n"
	}

	var b strings.Builder
	for i, v := range m.versions {
		prefix := "    "
		name := v.Version
		if i == m.cursor {
			prefix = tui.CursorStyle.Render("  > ")
			name = tui.CursorStyle.Render(fmt.Sprintf("%-16s", v.Version))
		} else {
			name = fmt.Sprintf("%-16s", v.Version)
		}
		state := tui.StateStyle(v.State).Render(fmt.Sprintf("%-8s", v.State))
		b.WriteString(fmt.Sprintf("%s%s %s %12s segments  %s\n",
			prefix, name, state, humanize.Comma(int64(v.SegmentsCount)), validity(v)))
	}
	return b.String()
}

func validity(v graphs.Version) string {
	if v.ValidFrom == 0 {
		return ""
	}
	from := time.UnixMilli(v.ValidFrom).Format("2006-01-02")
	if v.ValidTo == 0 {
		return "valid from " + from
	}
	return fmt.Sprintf("valid %s to %s", from, time.UnixMilli(v.ValidTo).Format("2006-01-02"))
}

// View renders the current phase.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("versions"))
	b.WriteString("\n")
	b.WriteString(tui.RenderField("Connection", m.session.ConnectionName()))
	b.WriteString(tui.RenderField("Graph", m.session.Graph))
	b.WriteString("\n")

	switch m.phase {
	case phaseLoading:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading versions...")

	case phaseUpdating:
		v, _ := m.selected()
		b.WriteString(m.spinner.View())
		b.WriteString(fmt.Sprintf(" Updating %s...", v.Version))

	case phaseConfirmDelete:
		v, _ := m.selected()
		b.WriteString(fmt.Sprintf("Mark version %s of %s as deleted?\n", v.Version, m.session.Graph))
		b.WriteString(tui.HelpStyle.Render("\ny: confirm  n: cancel"))

	case phaseDisplay:
		b.WriteString(tui.LabelStyle.Render(fmt.Sprintf("── Versions (%d) ───────────────", len(m.versions))))
		b.WriteString("\n")
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		switch {
		case m.err != nil:
			b.WriteString(tui.ErrorStyle.Render("Error: ") + m.err.Error())
		case m.message != "":
			b.WriteString(tui.SuccessStyle.Render(m.message))
		}
		b.WriteString(tui.HelpStyle.Render("\nj/k: navigate  a: activate  d: delete  r: reload  esc: graphs  q: quit"))
	}

	return b.String()
}

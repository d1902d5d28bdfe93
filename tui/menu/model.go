package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dukerupert/graphium/tui"
)

type menuItem struct {
	label   string
	screen  tui.Screen
	heading string // non-empty = section header rendered above this item
}

var items = []menuItem{
	{label: "Connections", screen: tui.ScreenConnections, heading: "Server"},
	{label: "Graphs", screen: tui.ScreenGraphs, heading: "Data"},
	{label: "Versions", screen: tui.ScreenVersions},
}

// Model is the main menu screen.
type Model struct {
	session *tui.Session
	cursor  int
	notice  string
}

// New creates a new menu model.
func New(session *tui.Session) Model {
	return Model{session: session}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(items)-1 {
				m.cursor++
			}
		case "enter":
			item := items[m.cursor]
			if item.screen != tui.ScreenConnections && !m.session.Client.Connected() {
				m.notice = "Select a connection first."
				return m, nil
			}
			if item.screen == tui.ScreenVersions && m.session.Graph == "" {
				m.notice = "Pick a graph on the Graphs screen first."
				return m, nil
			}
			m.notice = ""
			return m, tui.Back(item.screen)
		case "q", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("graphium"))
	b.WriteString("\n")
	conn := m.session.ConnectionName()
	if conn == "" {
		conn = "(none)"
	}
	b.WriteString(tui.RenderField("Connection", conn))
	if m.session.Graph != "" {
		b.WriteString(tui.RenderField("Graph", m.session.Graph))
	}

	for i, item := range items {
		if item.heading != "" {
			b.WriteString("\n")
			b.WriteString(tui.LabelStyle.Render(item.heading) + "\n")
		}
		line := fmt.Sprintf("    %s", item.label)
		if i == m.cursor {
			line = tui.CursorStyle.Render("  > " + item.label)
		}
		b.WriteString(line + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + tui.WarnStyle.Render(m.notice) + "\n")
	}
	b.WriteString(tui.HelpStyle.Render("\nj/k: navigate  enter: select  q: quit"))
	return b.String()
}

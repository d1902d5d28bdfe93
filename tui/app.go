package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/internal/rest"
)

// Screen identifies a TUI screen.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenConnections
	ScreenGraphs
	ScreenVersions
)

// SwitchScreenMsg tells the app to switch to a different screen.
type SwitchScreenMsg struct {
	Screen Screen
}

// ScreenFactory creates a fresh model for a screen (used on re-entry).
type ScreenFactory func() tea.Model

// Session is the state shared between screens: the connection store, the
// client bound to the selected connection and the graph being browsed.
type Session struct {
	Store  *connection.Store
	Client *rest.Client
	Graph  string
}

// ConnectionName returns the bound connection's name, or "".
func (s *Session) ConnectionName() string {
	if c := s.Client.Connection(); c != nil {
		return c.Name
	}
	return ""
}

// app is the root model that routes between screens.
type app struct {
	screens   map[Screen]tea.Model
	factories map[Screen]ScreenFactory
	current   Screen
}

func (a app) Init() tea.Cmd {
	return a.screens[a.current].Init()
}

func (a app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case SwitchScreenMsg:
		a.current = msg.Screen
		if factory, ok := a.factories[msg.Screen]; ok {
			a.screens[msg.Screen] = factory()
		}
		return a, a.screens[a.current].Init()
	}

	updated, cmd := a.screens[a.current].Update(msg)
	a.screens[a.current] = updated
	return a, cmd
}

func (a app) View() string {
	return a.screens[a.current].View()
}

// Run starts the TUI with the given initial screen, screen map, and optional factories.
func Run(initial Screen, screens map[Screen]tea.Model, factories map[Screen]ScreenFactory) error {
	if _, ok := screens[initial]; !ok {
		return fmt.Errorf("initial screen %d not found in screen map", initial)
	}
	p := tea.NewProgram(app{
		screens:   screens,
		factories: factories,
		current:   initial,
	}, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Back returns a command switching to screen.
func Back(screen Screen) tea.Cmd {
	return func() tea.Msg {
		return SwitchScreenMsg{Screen: screen}
	}
}

func RenderField(label, value string) string {
	return LabelStyle.Render(label+":") + " " + ValueStyle.Render(value) + "\n"
}

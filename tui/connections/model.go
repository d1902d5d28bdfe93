package connections

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/tui"
)

// fieldSpec describes one editable connection field.
type fieldSpec struct {
	label       string
	placeholder string
	required    bool
}

var fields = []fieldSpec{
	{label: "Name", placeholder: "local", required: true},
	{label: "Host", placeholder: connection.DefaultHost, required: true},
	{label: "Port", placeholder: "8080 (empty for none)"},
	{label: "Base path", placeholder: connection.DefaultBasePath},
	{label: "Kind", placeholder: "POSTGRES or NEO4J"},
	{label: "Auth ref", placeholder: "credential reference (optional)"},
	{label: "Read-only", placeholder: "y/n"},
}

const (
	fieldName = iota
	fieldHost
	fieldPort
	fieldBasePath
	fieldKind
	fieldAuthRef
	fieldReadOnly
)

type phase int

const (
	phaseList phase = iota
	phaseConnecting
	phaseField
	phaseConfirmDelete
	phaseDone
)

type connectDoneMsg struct {
	conn connection.Connection
	err  error
}

// Model is the BubbleTea model for the connections screen.
type Model struct {
	phase   phase
	session *tui.Session
	conns   []connection.Connection
	cursor  int

	editing     string // name of the connection being edited, "" when adding
	fieldIdx    int
	fieldValues []string
	textInput   textinput.Model
	spinner     spinner.Model
	message     string
	err         error
}

// New creates a new connections model. Loads the list synchronously.
func New(session *tui.Session) Model {
	conns, err := session.Store.Load(nil)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = tui.SpinnerStyle

	return Model{
		phase:   phaseList,
		session: session,
		conns:   conns,
		spinner: s,
		err:     err,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseList:
		return m.updateList(msg)
	case phaseConnecting:
		return m.updateConnecting(msg)
	case phaseField:
		return m.updateField(msg)
	case phaseConfirmDelete:
		return m.updateConfirmDelete(msg)
	case phaseDone:
		return m.updateDone(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	// Item count: existing connections + "Add new connection" entry.
	itemCount := len(m.conns) + 1

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < itemCount-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor == len(m.conns) {
			return m.startEditor(nil)
		}
		m.err = nil
		m.phase = phaseConnecting
		return m, tea.Batch(m.spinner.Tick, m.connect(m.conns[m.cursor]))
	case "e":
		if m.cursor < len(m.conns) {
			return m.startEditor(&m.conns[m.cursor])
		}
	case "d":
		if m.cursor < len(m.conns) {
			m.phase = phaseConfirmDelete
		}
	case "esc", "q":
		return m, tui.Back(tui.ScreenMenu)
	}
	return m, nil
}

func (m Model) startEditor(c *connection.Connection) (tea.Model, tea.Cmd) {
	m.fieldIdx = 0
	m.fieldValues = make([]string, len(fields))
	m.editing = ""
	if c != nil {
		m.editing = c.Name
		m.fieldValues = valuesOf(*c)
	}
	m.err = nil
	m.phase = phaseField
	m.textInput = initFieldInput(m.fieldIdx, m.fieldValues[m.fieldIdx])
	return m, textinput.Blink
}

func (m Model) updateConnecting(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.message = fmt.Sprintf("Connected to %s (%s)", msg.conn.Name, msg.conn.URL())
		}
		m.phase = phaseDone
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateField(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			val := strings.TrimSpace(m.textInput.Value())
			if val == "" && fields[m.fieldIdx].required {
				return m, nil
			}
			m.fieldValues[m.fieldIdx] = val

			if m.fieldIdx < len(fields)-1 {
				m.fieldIdx++
				m.textInput = initFieldInput(m.fieldIdx, m.fieldValues[m.fieldIdx])
				return m, textinput.Blink
			}

			// All fields collected.
			m.err = m.save()
			if m.err == nil {
				m.conns, m.err = m.session.Store.Load(nil)
				m.message = fmt.Sprintf("Connection %s saved!", m.fieldValues[fieldName])
			}
			m.phase = phaseDone
			return m, nil

		case "esc":
			if m.fieldIdx > 0 {
				m.fieldIdx--
				m.textInput = initFieldInput(m.fieldIdx, m.fieldValues[m.fieldIdx])
				return m, textinput.Blink
			}
			m.phase = phaseList
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) save() error {
	c, err := buildConnection(m.fieldValues)
	if err != nil {
		return err
	}
	if m.editing != "" {
		return m.session.Store.Update(m.editing, c)
	}
	for _, existing := range m.conns {
		if existing.Name == c.Name {
			return fmt.Errorf("connection %q already exists", c.Name)
		}
	}
	return m.session.Store.Add(c)
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y":
		name := m.conns[m.cursor].Name
		if err := m.session.Store.Remove(name); err != nil {
			m.err = err
			m.phase = phaseDone
			return m, nil
		}
		if m.session.ConnectionName() == name {
			m.session.Client.Disconnect()
		}
		m.conns, m.err = m.session.Store.Load(nil)
		// Adjust cursor if it's now out of bounds.
		if m.cursor > len(m.conns) {
			m.cursor = len(m.conns)
		}
		m.phase = phaseList
		return m, nil
	case "n", "esc":
		m.phase = phaseList
		return m, nil
	}
	return m, nil
}

func (m Model) updateDone(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "enter":
		m.err = nil
		m.message = ""
		m.phase = phaseList
		return m, nil
	case "esc", "q":
		return m, tui.Back(tui.ScreenMenu)
	}
	return m, nil
}

func (m Model) connect(c connection.Connection) tea.Cmd {
	client := m.session.Client
	return func() tea.Msg {
		err := client.Connect(context.Background(), c)
		return connectDoneMsg{conn: c, err: err}
	}
}

// initFieldInput creates a focused text input for the current field.
func initFieldInput(fieldIdx int, value string) textinput.Model {
	f := fields[fieldIdx]
	ti := textinput.New()
	ti.Placeholder = f.placeholder
	ti.CharLimit = 256
	ti.SetValue(value)
	ti.Focus()
	return ti
}

func valuesOf(c connection.Connection) []string {
	v := make([]string, len(fields))
	v[fieldName] = c.Name
	v[fieldHost] = c.Host
	if c.Port != nil {
		v[fieldPort] = strconv.Itoa(*c.Port)
	}
	v[fieldBasePath] = c.BasePath
	v[fieldKind] = string(c.Kind)
	v[fieldAuthRef] = c.AuthRef
	v[fieldReadOnly] = "n"
	if c.ReadOnly {
		v[fieldReadOnly] = "y"
	}
	return v
}

// buildConnection turns the editor fields into a validated connection.
func buildConnection(values []string) (connection.Connection, error) {
	c := connection.New(values[fieldName])
	if values[fieldHost] != "" {
		c.Host = values[fieldHost]
	}
	if p := values[fieldPort]; p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return c, fmt.Errorf("port %q is not a number", p)
		}
		c.Port = connection.IntPtr(port)
	}
	c.BasePath = values[fieldBasePath]
	kind, err := connection.ParseKind(values[fieldKind])
	if err != nil {
		return c, err
	}
	c.Kind = kind
	c.AuthRef = values[fieldAuthRef]
	switch strings.ToLower(values[fieldReadOnly]) {
	case "y", "yes", "true":
		c.ReadOnly = true
	case "", "n", "no", "false":
	default:
		return c, fmt.Errorf("read-only must be y or n")
	}
	return c, c.Validate()
}

// View renders the current phase.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("connections"))
	b.WriteString("\n")

	switch m.phase {
	case phaseList:
		if m.err != nil {
			b.WriteString(tui.ErrorStyle.Render("Error: ") + m.err.Error() + "\n\n")
		}
		current := m.session.ConnectionName()
		for i, c := range m.conns {
			status := ""
			if c.Name == current {
				status = tui.SuccessStyle.Render("connected")
			}
			if c.ReadOnly {
				status += " " + tui.WarnStyle.Render("read-only")
			}
			line := fmt.Sprintf("    %s  %s  %s", c.Name, c.URL(), status)
			if i == m.cursor {
				line = tui.CursorStyle.Render(fmt.Sprintf("  > %s", c.Name)) + fmt.Sprintf("  %s  %s", c.URL(), status)
			}
			b.WriteString(line + "\n")
		}
		// "Add new connection" entry.
		addLine := "    Add new connection"
		if m.cursor == len(m.conns) {
			addLine = tui.CursorStyle.Render("  > Add new connection")
		}
		b.WriteString(addLine + "\n")
		b.WriteString(tui.HelpStyle.Render("\nj/k: navigate  enter: connect  e: edit  d: delete  esc: menu"))

	case phaseConnecting:
		c := m.conns[m.cursor]
		b.WriteString(tui.RenderField("Connection", c.Name))
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(fmt.Sprintf(" Connecting to %s...", c.URL()))

	case phaseField:
		title := "Add connection"
		if m.editing != "" {
			title = "Edit " + m.editing
		}
		b.WriteString(title + "\n\n")

		// Show previously entered fields as summary.
		for i := 0; i < m.fieldIdx; i++ {
			b.WriteString(tui.RenderField(fields[i].label, m.fieldValues[i]))
		}

		f := fields[m.fieldIdx]
		b.WriteString(fmt.Sprintf("%s:\n\n", f.label))
		b.WriteString(m.textInput.View())
		b.WriteString(tui.HelpStyle.Render("\nenter: next  esc: back"))

	case phaseConfirmDelete:
		b.WriteString(fmt.Sprintf("Delete connection %q?\n", m.conns[m.cursor].Name))
		b.WriteString(tui.HelpStyle.Render("\ny: confirm  n: cancel"))

	case phaseDone:
		if m.err != nil {
			b.WriteString(tui.ErrorStyle.Render("Error: "))
			b.WriteString(m.err.Error())
		} else {
			b.WriteString(tui.SuccessStyle.Render(m.message))
		}
		b.WriteString(tui.HelpStyle.Render("\nenter: back to connections  esc: menu"))
	}

	return b.String()
}

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dev-dami/relaychat/internal/chat"
)

var (
	blueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	blackStyle  = lipgloss.NewStyle()
	noticeStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	inputStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true).BorderForeground(lipgloss.Color("62"))
)

// chrome is the number of rows taken by the status line and the input box.
const chrome = 3

func styleFor(c chat.Color) lipgloss.Style {
	if c == chat.ColorBlue {
		return blueStyle
	}
	return blackStyle
}

type (
	statusMsg struct {
		text  string
		color chat.Color
	}
	replaceMsg      struct{ notice string }
	appendMsg       struct{ line chat.Line }
	inputEnabledMsg bool
	focusMsg        struct{}
)

// Model renders the chat: a status label, the scrollback and an input line.
type Model struct {
	status      string
	statusColor chat.Color
	lines       []string
	enabled     bool

	viewport viewport.Model
	input    textinput.Model
	submit   func(string)
}

// NewModel returns a model that hands every entered line to submit.
func NewModel(submit func(string)) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "connecting..."
	in.CharLimit = 1024

	return Model{
		status:   "Connecting...",
		viewport: viewport.New(80, 20),
		input:    in,
		submit:   submit,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.enabled {
				return m, nil
			}
			text := m.input.Value()
			m.input.Reset()
			if m.submit != nil {
				m.submit(text)
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if !m.enabled {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case statusMsg:
		m.status = msg.text
		m.statusColor = msg.color
		return m, nil

	case replaceMsg:
		m.lines = []string{noticeStyle.Render(msg.notice)}
		m.refresh()
		return m, nil

	case appendMsg:
		m.lines = append(m.lines, styleFor(msg.line.Color).Render(msg.line.String()))
		m.refresh()
		return m, nil

	case inputEnabledMsg:
		m.enabled = bool(msg)
		if m.enabled {
			m.input.Placeholder = ""
			return m, nil
		}
		m.input.Blur()
		return m, nil

	case focusMsg:
		if !m.enabled {
			return m, nil
		}
		cmd := m.input.Focus()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		styleFor(m.statusColor).Bold(true).Render(m.status),
		inputStyle.Render(m.input.View()),
	)
}

func (m Model) Status() string          { return m.status }
func (m Model) StatusColor() chat.Color { return m.statusColor }
func (m Model) Lines() []string         { return m.lines }
func (m Model) InputEnabled() bool      { return m.enabled }
func (m Model) InputFocused() bool      { return m.input.Focused() }

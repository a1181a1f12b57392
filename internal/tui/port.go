package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dev-dami/relaychat/internal/chat"
)

// Port forwards chat.UI calls to a running bubbletea program. Calls block
// until the program accepts them and return at once after it exits.
type Port struct {
	send func(tea.Msg)
}

var _ chat.UI = (*Port)(nil)

// NewProgram builds the chat program and the port that drives it. Lines the
// user enters go to submit.
func NewProgram(submit func(string), opts ...tea.ProgramOption) (*tea.Program, *Port) {
	p := tea.NewProgram(NewModel(submit), opts...)
	return p, &Port{send: p.Send}
}

func (p *Port) SetStatus(text string, color chat.Color) {
	p.send(statusMsg{text: text, color: color})
}

func (p *Port) ReplaceScrollback(notice string) { p.send(replaceMsg{notice: notice}) }
func (p *Port) AppendLine(line chat.Line)       { p.send(appendMsg{line: line}) }
func (p *Port) SetInputEnabled(on bool)         { p.send(inputEnabledMsg(on)) }
func (p *Port) FocusInput()                     { p.send(focusMsg{}) }

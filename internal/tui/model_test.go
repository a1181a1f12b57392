package tui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/dev-dami/relaychat/internal/chat"
)

// recordingPort captures what a Port would send to the program.
func recordingPort() (*Port, *[]tea.Msg) {
	var msgs []tea.Msg
	return &Port{send: func(m tea.Msg) { msgs = append(msgs, m) }}, &msgs
}

func apply(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func typeText(m Model, text string) Model {
	return apply(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestPortDrivesModel(t *testing.T) {
	port, msgs := recordingPort()
	port.ReplaceScrollback("Connected using websocket")
	port.SetInputEnabled(true)
	port.FocusInput()
	port.SetStatus("Choose name:", chat.ColorBlack)
	port.AppendLine(chat.Line{Author: "Ann", Body: "hi", Color: chat.ColorBlue, Time: time.Date(2024, 1, 1, 7, 5, 0, 0, time.Local)})

	m := apply(NewModel(nil), *msgs...)
	require.Equal(t, "Choose name:", m.Status())
	require.True(t, m.InputEnabled())
	require.True(t, m.InputFocused())
	require.Len(t, m.Lines(), 2)
	require.Contains(t, m.Lines()[0], "Connected using websocket")
	require.Contains(t, m.Lines()[1], "Ann @ 07:05: hi")
	require.Contains(t, m.View(), "Choose name:")

	port.ReplaceScrollback("reset")
	m = apply(m, (*msgs)[len(*msgs)-1])
	require.Len(t, m.Lines(), 1)
}

func TestEnterSubmitsAndClears(t *testing.T) {
	var got []string
	m := NewModel(func(text string) { got = append(got, text) })
	m = apply(m, inputEnabledMsg(true), focusMsg{})

	m = typeText(m, "Ann")
	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"Ann"}, got)
	require.Empty(t, m.input.Value())

	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"Ann", ""}, got, "blank lines are left to the client")
}

func TestDisabledInputIgnoresKeys(t *testing.T) {
	var got []string
	m := NewModel(func(text string) { got = append(got, text) })

	m = typeText(m, "early")
	m = apply(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, got)
	require.Empty(t, m.input.Value())

	m = apply(m, inputEnabledMsg(true), focusMsg{}, inputEnabledMsg(false))
	require.False(t, m.InputFocused())
}

func TestCtrlCQuits(t *testing.T) {
	_, cmd := NewModel(nil).Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	m := apply(NewModel(nil), tea.WindowSizeMsg{Width: 100, Height: 40})
	require.Equal(t, 100, m.viewport.Width)
	require.Equal(t, 40-chrome, m.viewport.Height)
}

func TestPlainWritesAndReads(t *testing.T) {
	var out bytes.Buffer
	p := NewPlain(&out)

	p.ReplaceScrollback("Connected using long-polling")
	p.SetStatus("Choose name:", chat.ColorBlack)
	p.SetStatus("Choose name:", chat.ColorBlack)
	p.AppendLine(chat.Line{Author: "Bob", Body: "yo", Time: time.Date(2024, 1, 1, 13, 9, 0, 0, time.Local)})

	require.Equal(t, "-- Connected using long-polling --\n[Choose name:]\nBob @ 13:09: yo\n", out.String())

	var got []string
	require.NoError(t, p.ReadLines(context.Background(), strings.NewReader("dropped\n"), func(s string) { got = append(got, s) }))
	require.Empty(t, got)
	require.Contains(t, out.String(), "line dropped")

	p.SetInputEnabled(true)
	require.NoError(t, p.ReadLines(context.Background(), strings.NewReader("Ann\nhello\n"), func(s string) { got = append(got, s) }))
	require.Equal(t, []string{"Ann", "hello"}, got)
}

func TestPlainReadLinesStopsOnCancel(t *testing.T) {
	p := NewPlain(&bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, p.ReadLines(ctx, r, func(string) {}))
}

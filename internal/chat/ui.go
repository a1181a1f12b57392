package chat

import (
	"fmt"
	"time"
)

type Color string

const (
	ColorBlue  Color = "blue"
	ColorBlack Color = "black"
)

// UI is everything the client needs from the screen.
type UI interface {
	SetStatus(text string, color Color)
	// ReplaceScrollback clears the scrollback and leaves a single notice.
	ReplaceScrollback(notice string)
	AppendLine(line Line)
	SetInputEnabled(enabled bool)
	FocusInput()
}

// Line is one rendered chat message.
type Line struct {
	Author string
	Body   string
	Color  Color
	Time   time.Time
}

// String renders "<author> @ HH:MM: <body>" in local time.
func (l Line) String() string {
	return fmt.Sprintf("%s @ %s: %s", l.Author, Clock(l.Time), l.Body)
}

// Clock formats t as zero-padded HH:MM in local time.
func Clock(t time.Time) string {
	return t.Local().Format("15:04")
}

package server

import "strings"

const (
	DefaultRoom   = "the-chat"
	defaultAuthor = "Anon"
)

// Message is a chat payload relayed between clients. Clients send author and
// message; the relay fills in the rest before fan-out.
type Message struct {
	Author  string `json:"author"`
	Message string `json:"message"`
	Room    string `json:"room,omitempty"`
	Time    int64  `json:"time,omitempty"`
	ID      string `json:"id,omitempty"`
}

// normalize trims fields and applies fallbacks. It reports false for
// messages that should not be relayed.
func (m *Message) normalize(room string) bool {
	m.Message = strings.TrimSpace(m.Message)
	m.Author = strings.TrimSpace(m.Author)
	m.Room = strings.TrimSpace(m.Room)

	if m.Message == "" {
		return false
	}
	if m.Author == "" {
		m.Author = defaultAuthor
	}
	// The endpoint decides the room.
	m.Room = room
	if m.Room == "" {
		m.Room = DefaultRoom
	}
	return true
}

package server

import (
	"sync"
	"time"
)

type entry struct {
	seq     uint64
	payload []byte
}

// history keeps the most recent payloads of a room for long-polling clients.
// Sequence numbers start at 1; a cursor of N asks for everything after N.
type history struct {
	mu      sync.Mutex
	size    int
	head    uint64
	entries []entry
	notify  chan struct{}
}

func newHistory(size int) *history {
	if size <= 0 {
		size = 1
	}
	return &history{size: size, notify: make(chan struct{})}
}

func (h *history) append(payload []byte) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head++
	h.entries = append(h.entries, entry{seq: h.head, payload: payload})
	if over := len(h.entries) - h.size; over > 0 {
		h.entries = append([]entry(nil), h.entries[over:]...)
	}
	close(h.notify)
	h.notify = make(chan struct{})
	return h.head
}

func (h *history) Head() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.head
}

func (h *history) since(cursor uint64) ([]entry, uint64, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []entry
	for _, e := range h.entries {
		if e.seq > cursor {
			out = append(out, e)
		}
	}
	return out, h.head, h.notify
}

// wait returns entries after cursor, blocking up to timeout for the first
// one. A cursor ahead of head (the relay restarted) returns immediately with
// no entries so the client resynchronizes on head.
func (h *history) wait(cursor uint64, timeout time.Duration, stop <-chan struct{}) ([]entry, uint64) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		entries, head, notify := h.since(cursor)
		if len(entries) > 0 || cursor > head {
			return entries, head
		}
		select {
		case <-notify:
		case <-timer.C:
			return nil, head
		case <-stop:
			return nil, head
		}
	}
}

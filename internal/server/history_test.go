package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistoryKeepsMostRecent(t *testing.T) {
	h := newHistory(2)
	for _, p := range []string{"a", "b", "c"} {
		h.append([]byte(p))
	}
	require.Equal(t, uint64(3), h.Head())

	entries, head, _ := h.since(0)
	require.Equal(t, uint64(3), head)
	require.Len(t, entries, 2)
	require.Equal(t, "b", string(entries[0].payload))
	require.Equal(t, uint64(3), entries[1].seq)
}

func TestHistoryWaitTimesOut(t *testing.T) {
	h := newHistory(4)
	h.append([]byte("a"))

	start := time.Now()
	entries, head := h.wait(1, 50*time.Millisecond, nil)
	require.Empty(t, entries)
	require.Equal(t, uint64(1), head)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestHistoryWaitWakesOnAppend(t *testing.T) {
	h := newHistory(4)
	go func() {
		time.Sleep(20 * time.Millisecond)
		h.append([]byte("late"))
	}()

	entries, _ := h.wait(0, 2*time.Second, nil)
	require.Len(t, entries, 1)
	require.Equal(t, "late", string(entries[0].payload))
}

func TestHistoryWaitCursorAheadReturnsAtOnce(t *testing.T) {
	h := newHistory(4)
	h.append([]byte("a"))

	entries, head := h.wait(10, time.Minute, nil)
	require.Empty(t, entries)
	require.Equal(t, uint64(1), head)
}

func TestHistoryWaitStops(t *testing.T) {
	h := newHistory(4)
	stop := make(chan struct{})
	close(stop)

	entries, _ := h.wait(0, time.Minute, stop)
	require.Empty(t, entries)
}

func TestMessageNormalize(t *testing.T) {
	m := Message{Author: "  ", Message: " hi ", Room: "ignored"}
	require.True(t, m.normalize("lobby"))
	require.Equal(t, "Anon", m.Author)
	require.Equal(t, "hi", m.Message)
	require.Equal(t, "lobby", m.Room)

	m = Message{Author: "Bob", Message: "x"}
	require.True(t, m.normalize(""))
	require.Equal(t, DefaultRoom, m.Room)

	m = Message{Author: "Bob", Message: "   "}
	require.False(t, m.normalize("lobby"))
}

package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dev-dami/relaychat/internal/channel"
)

// lockedUI records calls from the loop goroutine for the test goroutine.
type lockedUI struct {
	mu sync.Mutex
	fakeUI
}

func (u *lockedUI) SetStatus(text string, color Color) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fakeUI.SetStatus(text, color)
}

func (u *lockedUI) ReplaceScrollback(notice string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fakeUI.ReplaceScrollback(notice)
}

func (u *lockedUI) AppendLine(line Line) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fakeUI.AppendLine(line)
}

func (u *lockedUI) SetInputEnabled(on bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fakeUI.SetInputEnabled(on)
}

func (u *lockedUI) FocusInput() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fakeUI.FocusInput()
}

func (u *lockedUI) lineCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.lines)
}

func TestLoopSerializesCallbacksAndInput(t *testing.T) {
	ui := &lockedUI{}
	client := NewClient(ui)
	client.Attach(&fakeSender{})
	loop := NewLoop(client)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	loop.OnOpen(channel.Response{Transport: channel.TransportWebSocket})
	loop.Submit("Alice")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			loop.OnMessage(channel.Response{Body: `{"author":"Bob","message":"hey","time":1700000000000}`})
		}()
		go func() {
			defer wg.Done()
			loop.Submit("hello")
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return ui.lineCount() == 40 }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		done := make(chan State, 1)
		loop.Do(func() { done <- client.State() })
		return <-done == StateLoggedIn
	}, time.Second, 10*time.Millisecond)

	loop.OnClose(channel.Response{State: channel.StateClosed})
	require.Eventually(t, func() bool {
		done := make(chan bool, 1)
		loop.Do(func() { done <- client.LoggedIn() })
		return !<-done
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLoopNeverBlocksProducers(t *testing.T) {
	ui := &lockedUI{}
	client := NewClient(ui)
	sender := &lockedSender{}
	client.Attach(sender)
	loop := NewLoop(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	release := make(chan struct{})
	require.True(t, loop.Do(func() { <-release }))

	queued := make(chan struct{})
	go func() {
		loop.OnOpen(channel.Response{Transport: channel.TransportWebSocket})
		loop.Submit("Alice")
		for i := 0; i < 500; i++ {
			loop.OnMessage(channel.Response{Body: `{"author":"Bob","message":"hey"}`})
		}
		loop.Submit("hi")
		close(queued)
	}()
	select {
	case <-queued:
	case <-time.After(2 * time.Second):
		t.Fatal("producers blocked while the loop was busy")
	}
	close(release)

	require.Eventually(t, func() bool { return sender.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, `{"author":"Alice","message":"Alice"}`, sender.first())
	require.Eventually(t, func() bool { return ui.lineCount() == 501 }, 2*time.Second, 10*time.Millisecond)
}

func TestLoopRejectsWorkAfterStop(t *testing.T) {
	loop := NewLoop(NewClient(&lockedUI{}))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	cancel()

	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	require.False(t, loop.Do(func() {}))
}

type lockedSender struct {
	mu     sync.Mutex
	pushed []string
}

func (s *lockedSender) Push(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, payload)
	return nil
}

func (s *lockedSender) PushLocal(string) error { return nil }

func (s *lockedSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushed)
}

func (s *lockedSender) first() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushed[0]
}

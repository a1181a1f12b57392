package chat

import (
	"context"
	"sync"

	"github.com/dev-dami/relaychat/internal/channel"
)

// Loop funnels channel callbacks and user input onto a single goroutine, so
// the Client state is only ever touched from Run. It implements
// channel.Handler.
//
// The queue is unbounded and enqueueing never blocks: the UI submits input
// from its own update loop, which must keep draining the calls Run makes
// into it.
type Loop struct {
	client *Client

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

var _ channel.Handler = (*Loop)(nil)

func NewLoop(client *Client) *Loop {
	return &Loop{
		client: client,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Run processes events in the order they were queued until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
		for {
			batch := l.take()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fn()
			}
		}
	}
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	close(l.done)
}

// Do queues fn to run on the loop goroutine. It returns false when the loop
// has stopped.
func (l *Loop) Do(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) Submit(text string) {
	l.Do(func() { l.client.Submit(text) })
}

func (l *Loop) OnOpen(resp channel.Response) {
	l.Do(func() { l.client.OnOpen(resp) })
}

func (l *Loop) OnReconnect(req channel.Request, resp channel.Response) {
	l.Do(func() { l.client.OnReconnect(req, resp) })
}

func (l *Loop) OnClose(resp channel.Response) {
	l.Do(func() { l.client.OnClose(resp) })
}

func (l *Loop) OnError(resp channel.Response) {
	l.Do(func() { l.client.OnError(resp) })
}

func (l *Loop) OnMessage(resp channel.Response) {
	l.Do(func() { l.client.OnMessage(resp) })
}

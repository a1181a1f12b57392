package channel

import (
	"context"
	"sync"
)

// LocalBus connects sockets in the same process that share an endpoint URL.
// It backs PushLocal for every transport and carries all traffic for the
// local transport.
type LocalBus struct {
	mu    sync.Mutex
	peers map[string]map[*Socket]struct{}
}

// DefaultLocalBus is used by sockets created without WithLocalBus.
var DefaultLocalBus = NewLocalBus()

func NewLocalBus() *LocalBus {
	return &LocalBus{peers: map[string]map[*Socket]struct{}{}}
}

func (b *LocalBus) join(endpoint string, s *Socket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.peers[endpoint]
	if !ok {
		set = map[*Socket]struct{}{}
		b.peers[endpoint] = set
	}
	set[s] = struct{}{}
}

func (b *LocalBus) leave(endpoint string, s *Socket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.peers[endpoint]
	delete(set, s)
	if len(set) == 0 {
		delete(b.peers, endpoint)
	}
}

// deliver hands payload to every peer on endpoint except from and returns
// how many peers received it.
func (b *LocalBus) deliver(endpoint string, from *Socket, payload string) int {
	b.mu.Lock()
	targets := make([]*Socket, 0, len(b.peers[endpoint]))
	for peer := range b.peers[endpoint] {
		if peer != from {
			targets = append(targets, peer)
		}
	}
	b.mu.Unlock()

	for _, peer := range targets {
		peer.deliverLocal(payload)
	}
	return len(targets)
}

// Peers returns the number of sockets joined on endpoint.
func (b *LocalBus) Peers(endpoint string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers[endpoint])
}

// localTransport has no connection of its own: inbound payloads arrive
// through the bus and receive only waits for shutdown.
type localTransport struct {
	socket *Socket

	once   sync.Once
	closed chan struct{}
}

func newLocalTransport(s *Socket) *localTransport {
	return &localTransport{socket: s, closed: make(chan struct{})}
}

func (t *localTransport) name() string { return TransportLocal }

func (t *localTransport) connect(context.Context) error { return nil }

func (t *localTransport) receive(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, ErrNotConnected
	}
}

func (t *localTransport) send(_ context.Context, payload string) error {
	t.socket.bus.deliver(t.socket.req.URL, t.socket, payload)
	return nil
}

func (t *localTransport) close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

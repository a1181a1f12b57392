package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Socket is a subscription to one endpoint. It owns the active transport,
// falls back to the secondary transport when the preferred one cannot
// connect, and reconnects after the connection drops.
type Socket struct {
	req     Request
	handler Handler

	bus        *LocalBus
	dialer     *websocket.Dialer
	httpClient *http.Client
	logger     zerolog.Logger

	mu      sync.Mutex
	current transport
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
}

type Option func(*Socket)

func WithLocalBus(bus *LocalBus) Option {
	return func(s *Socket) { s.bus = bus }
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(s *Socket) { s.dialer = dialer }
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Socket) { s.httpClient = client }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Socket) { s.logger = logger }
}

// NewSocket prepares a socket without connecting. Callers that need to hand
// the socket to the handler before the first callback use NewSocket and
// then Connect.
func NewSocket(req Request, handler Handler, opts ...Option) (*Socket, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	s := &Socket{
		req:     req,
		handler: handler,
		bus:     DefaultLocalBus,
		logger:  log.Logger,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if level, err := zerolog.ParseLevel(req.LogLevel); err == nil && req.LogLevel != "" {
		s.logger = s.logger.Level(level)
	}
	s.logger = s.logger.With().Str("component", "channel").Str("url", req.URL).Logger()
	return s, nil
}

// Subscribe creates a socket and connects it.
func Subscribe(ctx context.Context, req Request, handler Handler, opts ...Option) (*Socket, error) {
	s, err := NewSocket(req, handler, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect opens the first transport that works and starts the receive loop.
// OnOpen fires before Connect returns; when no transport connects OnError
// fires and the error is returned.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("socket is closed")
	}
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("socket is already connected")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	t, err := s.open(runCtx)
	if err != nil {
		cancel()
		close(s.done)
		s.handler.OnError(Response{State: StateError, Err: err})
		return err
	}
	s.bus.join(s.req.URL, s)
	s.handler.OnOpen(Response{Transport: t.name(), State: StateOpening, Status: http.StatusOK})

	go s.run(runCtx, t)
	return nil
}

// Push sends payload over the active transport.
func (s *Socket) Push(payload string) error {
	s.mu.Lock()
	t := s.current
	s.mu.Unlock()
	if t == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.req.SendTimeout)
	defer cancel()
	if err := t.send(ctx, payload); err != nil {
		return errors.Wrapf(err, "push over %s", t.name())
	}
	return nil
}

// PushLocal delivers payload to the other sockets in this process that
// subscribed to the same URL, without touching the network.
func (s *Socket) PushLocal(payload string) error {
	n := s.bus.deliver(s.req.URL, s, payload)
	s.logger.Trace().Int("peers", n).Msg("local push")
	return nil
}

// Transport returns the name of the active transport, or "" when
// disconnected.
func (s *Socket) Transport() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.name()
}

// Close stops the receive loop, closes the transport and fires OnClose.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	t := s.current
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	var err error
	if t != nil {
		err = t.close()
	}
	<-s.done
	return err
}

// Done is closed once the receive loop has stopped.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

func (s *Socket) deliverLocal(payload string) {
	s.handler.OnMessage(Response{
		Transport: TransportLocal,
		State:     StateMessageReceived,
		Status:    http.StatusOK,
		Body:      payload,
	})
}

func (s *Socket) open(ctx context.Context) (transport, error) {
	var errs []error
	for _, name := range s.req.transports() {
		t, err := s.newTransport(name)
		if err != nil {
			return nil, err
		}
		if err := t.connect(ctx); err != nil {
			s.logger.Warn().Err(err).Str("transport", name).Msg("connect failed")
			errs = append(errs, errors.Wrap(err, name))
			continue
		}
		s.mu.Lock()
		s.current = t
		s.mu.Unlock()
		s.logger.Debug().Str("transport", name).Msg("connected")
		return t, nil
	}
	return nil, joinErrors(errs)
}

func (s *Socket) run(ctx context.Context, t transport) {
	defer close(s.done)
	defer s.bus.leave(s.req.URL, s)

	for {
		err := s.pump(ctx, t)
		_ = t.close()
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()

		resp := Response{Transport: t.name(), State: StateClosed}
		if ctx.Err() != nil {
			s.handler.OnClose(resp)
			return
		}
		s.logger.Warn().Err(err).Str("transport", t.name()).Msg("connection lost")
		resp.Err = err
		s.handler.OnClose(resp)

		next, err := s.reconnect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.handler.OnError(Response{Transport: t.name(), State: StateError, Err: err})
			}
			return
		}
		t = next
		s.handler.OnOpen(Response{Transport: t.name(), State: StateReopened, Status: http.StatusOK})
	}
}

func (s *Socket) pump(ctx context.Context, t transport) error {
	for {
		bodies, err := t.receive(ctx)
		if err != nil {
			return err
		}
		for _, body := range bodies {
			s.handler.OnMessage(Response{
				Transport: t.name(),
				State:     StateMessageReceived,
				Status:    http.StatusOK,
				Body:      body,
			})
		}
	}
}

func (s *Socket) reconnect(ctx context.Context) (transport, error) {
	var lastErr error = ErrNotConnected
	for attempt := 1; attempt <= s.req.MaxReconnectOnClose; attempt++ {
		timer := time.NewTimer(s.req.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		s.handler.OnReconnect(s.req, Response{State: StateReconnecting})
		s.logger.Info().Int("attempt", attempt).Msg("reconnecting")
		t, err := s.open(ctx)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "gave up after %d reconnect attempts", s.req.MaxReconnectOnClose)
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return ErrNotConnected
	case 1:
		return errs[0]
	}
	msg := errs[0].Error()
	for _, err := range errs[1:] {
		msg += "; " + err.Error()
	}
	return errors.New(msg)
}

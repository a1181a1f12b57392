package channel

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Transport names understood by Subscribe.
const (
	TransportWebSocket   = "websocket"
	TransportLongPolling = "long-polling"
	TransportLocal       = "local"
)

// Response states, mirroring the lifecycle a Handler observes.
const (
	StateOpening         = "opening"
	StateReopened        = "re-opening"
	StateMessageReceived = "messageReceived"
	StateReconnecting    = "re-connecting"
	StateClosed          = "closed"
	StateError           = "error"
)

const (
	DefaultContentType       = "application/json"
	DefaultReconnectInterval = time.Second
	DefaultMaxReconnect      = 5
	DefaultSendTimeout       = 10 * time.Second
)

var ErrNotConnected = errors.New("channel is not connected")

// Request configures a subscription.
type Request struct {
	URL                 string
	ContentType         string
	LogLevel            string
	Transport           string
	FallbackTransport   string
	TrackMessageLength  bool
	Headers             map[string]string
	ReconnectInterval   time.Duration
	MaxReconnectOnClose int
	SendTimeout         time.Duration
}

// Response is handed to every Handler callback.
type Response struct {
	Transport string
	State     string
	Status    int
	Body      string
	Err       error
}

// Handler receives lifecycle callbacks from a Socket. Callbacks may run on
// the socket's own goroutines and must not block for long.
type Handler interface {
	OnOpen(resp Response)
	OnReconnect(req Request, resp Response)
	OnClose(resp Response)
	OnError(resp Response)
	OnMessage(resp Response)
}

func (r Request) withDefaults() Request {
	if r.ContentType == "" {
		r.ContentType = DefaultContentType
	}
	if r.Transport == "" {
		r.Transport = TransportWebSocket
	}
	if r.ReconnectInterval <= 0 {
		r.ReconnectInterval = DefaultReconnectInterval
	}
	if r.MaxReconnectOnClose < 0 {
		r.MaxReconnectOnClose = 0
	}
	if r.SendTimeout <= 0 {
		r.SendTimeout = DefaultSendTimeout
	}
	return r
}

// Validate reports configuration problems before any connection attempt.
func (r Request) Validate() error {
	if !KnownTransport(r.Transport) {
		return errors.Errorf("unknown transport %q", r.Transport)
	}
	if r.FallbackTransport != "" && !KnownTransport(r.FallbackTransport) {
		return errors.Errorf("unknown fallback transport %q", r.FallbackTransport)
	}
	if r.Transport == TransportLocal && r.FallbackTransport == "" {
		if r.URL == "" {
			return errors.New("url is required")
		}
		return nil
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return errors.Wrapf(err, "parse url %q", r.URL)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return errors.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Errorf("url %q has no host", r.URL)
	}
	return nil
}

// KnownTransport reports whether name is a transport Subscribe can open.
func KnownTransport(name string) bool {
	switch name {
	case TransportWebSocket, TransportLongPolling, TransportLocal:
		return true
	}
	return false
}

// transports returns the connection order: preferred first, then fallback.
func (r Request) transports() []string {
	out := []string{r.Transport}
	if r.FallbackTransport != "" && r.FallbackTransport != r.Transport {
		out = append(out, r.FallbackTransport)
	}
	return out
}

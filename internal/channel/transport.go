package channel

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Query parameters and headers shared with the relay server.
const (
	ParamTransport        = "X-Atmosphere-Transport"
	ParamTrackMessageSize = "X-Atmosphere-TrackMessageSize"
	ParamCursor           = "cursor"
	HeaderCursor          = "X-Relay-Cursor"
	PollPathSuffix        = "/poll"
	trackSizeEnable       = "true"
)

// transport is one way of carrying payloads to and from the endpoint.
type transport interface {
	name() string
	connect(ctx context.Context) error
	// receive blocks until at least one payload arrives, the connection
	// fails, or ctx is done. An empty slice with a nil error is allowed.
	receive(ctx context.Context) ([]string, error)
	send(ctx context.Context, payload string) error
	close() error
}

func (s *Socket) newTransport(name string) (transport, error) {
	switch name {
	case TransportWebSocket:
		return newWebSocketTransport(s.req, s.dialer, s.logger), nil
	case TransportLongPolling:
		return newPollTransport(s.req, s.httpClient, s.logger), nil
	case TransportLocal:
		return newLocalTransport(s), nil
	}
	return nil, errors.Errorf("unknown transport %q", name)
}

// endpointURL rewrites the request URL for a transport, adding the query
// parameters the server expects.
func endpointURL(raw, transportName string, track bool, websocketScheme bool) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse url %q", raw)
	}
	switch {
	case websocketScheme && u.Scheme == "http":
		u.Scheme = "ws"
	case websocketScheme && u.Scheme == "https":
		u.Scheme = "wss"
	case !websocketScheme && u.Scheme == "ws":
		u.Scheme = "http"
	case !websocketScheme && u.Scheme == "wss":
		u.Scheme = "https"
	}
	q := u.Query()
	q.Set(ParamTransport, transportName)
	if track {
		q.Set(ParamTrackMessageSize, trackSizeEnable)
	}
	u.RawQuery = q.Encode()
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

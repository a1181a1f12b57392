package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type webSocketTransport struct {
	req    Request
	dialer *websocket.Dialer
	logger zerolog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn
	decoder FrameDecoder
}

func newWebSocketTransport(req Request, dialer *websocket.Dialer, logger zerolog.Logger) *webSocketTransport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &webSocketTransport{req: req, dialer: dialer, logger: logger}
}

func (t *webSocketTransport) name() string { return TransportWebSocket }

func (t *webSocketTransport) connect(ctx context.Context) error {
	u, err := endpointURL(t.req.URL, TransportWebSocket, t.req.TrackMessageLength, true)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Content-Type", t.req.ContentType)
	for name, value := range t.req.Headers {
		header.Set(name, value)
	}
	conn, resp, err := t.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return errors.Wrapf(err, "dial %s: status %d", u.Redacted(), resp.StatusCode)
		}
		return errors.Wrapf(err, "dial %s", u.Redacted())
	}
	t.conn = conn
	return nil
}

func (t *webSocketTransport) receive(_ context.Context) ([]string, error) {
	if t.conn == nil {
		return nil, ErrNotConnected
	}
	messageType, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
		return nil, nil
	}
	if !t.req.TrackMessageLength {
		return []string{string(data)}, nil
	}
	frames, err := t.decoder.Feed(data)
	if err != nil {
		t.logger.Warn().Err(err).Str("transport", TransportWebSocket).Msg("dropping malformed frame")
	}
	return frames, nil
}

func (t *webSocketTransport) send(ctx context.Context, payload string) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
		defer func() { _ = t.conn.SetWriteDeadline(time.Time{}) }()
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (t *webSocketTransport) close() error {
	if t.conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return t.conn.Close()
}

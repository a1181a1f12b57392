package channel

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// pollTransport waits on GET <url>/poll?cursor=N and sends with POST <url>.
// The server answers 204 when the wait times out and advertises the next
// cursor in X-Relay-Cursor.
type pollTransport struct {
	req    Request
	client *http.Client
	logger zerolog.Logger

	base    *url.URL
	cursor  uint64
	decoder FrameDecoder
}

func newPollTransport(req Request, client *http.Client, logger zerolog.Logger) *pollTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &pollTransport{req: req, client: client, logger: logger}
}

func (t *pollTransport) name() string { return TransportLongPolling }

func (t *pollTransport) connect(ctx context.Context) error {
	base, err := endpointURL(t.req.URL, TransportLongPolling, t.req.TrackMessageLength, false)
	if err != nil {
		return err
	}
	t.base = base

	// Without a cursor the server answers right away with the current head,
	// so only messages published after connecting are delivered.
	resp, err := t.do(ctx, http.MethodGet, t.pollURL(nil), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return errors.Errorf("long-polling handshake: status %d", resp.StatusCode)
	}
	cursor, err := parseCursor(resp.Header.Get(HeaderCursor))
	if err != nil {
		return errors.Wrap(err, "long-polling handshake")
	}
	t.cursor = cursor
	return nil
}

func (t *pollTransport) receive(ctx context.Context) ([]string, error) {
	if t.base == nil {
		return nil, ErrNotConnected
	}
	resp, err := t.do(ctx, http.MethodGet, t.pollURL(&t.cursor), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read poll response")
	}
	switch {
	case resp.StatusCode == http.StatusNoContent:
	case resp.StatusCode >= 300:
		return nil, errors.Errorf("poll: status %d", resp.StatusCode)
	}
	if raw := resp.Header.Get(HeaderCursor); raw != "" {
		cursor, err := parseCursor(raw)
		if err != nil {
			return nil, errors.Wrap(err, "poll")
		}
		t.cursor = cursor
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !t.req.TrackMessageLength {
		return []string{string(body)}, nil
	}
	frames, err := t.decoder.Feed(body)
	if err != nil {
		t.logger.Warn().Err(err).Str("transport", TransportLongPolling).Msg("dropping malformed frame")
	}
	return frames, nil
}

func (t *pollTransport) send(ctx context.Context, payload string) error {
	if t.base == nil {
		return ErrNotConnected
	}
	u := *t.base
	resp, err := t.do(ctx, http.MethodPost, &u, strings.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return errors.Errorf("send: status %d", resp.StatusCode)
	}
	return nil
}

func (t *pollTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *pollTransport) pollURL(cursor *uint64) *url.URL {
	u := *t.base
	u.Path += PollPathSuffix
	q := u.Query()
	if cursor != nil {
		q.Set(ParamCursor, strconv.FormatUint(*cursor, 10))
	}
	u.RawQuery = q.Encode()
	return &u
}

func (t *pollTransport) do(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", t.req.ContentType)
	for name, value := range t.req.Headers {
		req.Header.Set(name, value)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, u.Redacted())
	}
	return resp, nil
}

func parseCursor(raw string) (uint64, error) {
	if raw == "" {
		return 0, errors.New("missing cursor")
	}
	cursor, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "cursor %q", raw)
	}
	return cursor, nil
}

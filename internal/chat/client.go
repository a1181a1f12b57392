package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dev-dami/relaychat/internal/channel"
)

const (
	StatusChooseName = "Choose name:"
	// NamePrompt primes transports that need a local echo before they proceed.
	NamePrompt      = "Name?"
	ConnectionError = "Sorry, but there's some problem with your socket or the server is down"
)

// Sender is the part of a channel the client writes to.
type Sender interface {
	Push(payload string) error
	PushLocal(payload string) error
}

// Client binds a channel to a UI. It is not safe for concurrent use; run it
// behind a Loop when callbacks arrive from several goroutines.
type Client struct {
	ui     UI
	sender Sender
	now    func() time.Time
	logger zerolog.Logger

	state       State
	displayName string
	author      string
	transport   string
}

type Option func(*Client)

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(ui UI, opts ...Option) *Client {
	c := &Client{
		ui:     ui,
		now:    time.Now,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "chat").Logger()
	return c
}

// Attach sets the channel the client pushes to.
func (c *Client) Attach(sender Sender) {
	c.sender = sender
}

func (c *Client) State() State        { return c.state }
func (c *Client) LoggedIn() bool      { return c.state == StateLoggedIn }
func (c *Client) DisplayName() string { return c.displayName }
func (c *Client) Author() string      { return c.author }
func (c *Client) Transport() string   { return c.transport }

func (c *Client) OnOpen(resp channel.Response) {
	c.transport = resp.Transport
	c.ui.ReplaceScrollback(fmt.Sprintf("Connected using %s", resp.Transport))
	c.ui.SetInputEnabled(true)
	c.ui.FocusInput()
	c.ui.SetStatus(StatusChooseName, ColorBlack)

	if c.displayName == "" {
		c.state = StateAwaitingName
	} else {
		c.state = StateAwaitingConfirmation
	}
	c.logger.Debug().Str("transport", resp.Transport).Stringer("state", c.state).Msg("channel open")

	if resp.Transport == channel.TransportLocal {
		c.pushLocal(NamePrompt)
	}
}

func (c *Client) OnReconnect(_ channel.Request, _ channel.Response) {
	c.logger.Info().Msg("reconnecting")
}

func (c *Client) OnClose(resp channel.Response) {
	c.state = StateDisconnected
	c.logger.Debug().Err(resp.Err).Msg("channel closed")
}

func (c *Client) OnError(resp channel.Response) {
	c.logger.Warn().Err(resp.Err).Str("transport", resp.Transport).Msg("channel error")
	c.ui.ReplaceScrollback(ConnectionError)
}

func (c *Client) OnMessage(resp channel.Response) {
	if c.displayName == "" {
		return
	}
	msg, err := DecodeMessage(resp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("body", resp.Body).Msg("dropping payload that is not a chat message")
		return
	}
	if c.state != StateLoggedIn {
		c.confirmLogin()
		return
	}

	c.ui.SetInputEnabled(true)
	color := ColorBlack
	if msg.Author == c.author {
		color = ColorBlue
	}
	at, ok := msg.Time.Time()
	if !ok {
		at = c.now()
	}
	c.ui.AppendLine(Line{Author: msg.Author, Body: msg.Message, Color: color, Time: at})
}

// Submit handles one line the user entered. The UI has already read and
// cleared the input field.
func (c *Client) Submit(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if c.author == "" {
		c.author = text
	}

	payload, err := EncodeMessage(c.author, text)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode outgoing message")
		return
	}
	c.push(payload)

	if c.displayName == "" {
		c.displayName = text
		c.confirmLogin()
		return
	}
	// Shown before the relay echoes it back; the transcript may briefly
	// disagree if the relay never does.
	c.ui.AppendLine(Line{Author: c.author, Body: text, Color: ColorBlue, Time: c.now()})
}

func (c *Client) confirmLogin() {
	c.state = StateLoggedIn
	c.ui.SetStatus(c.displayName+": ", ColorBlue)
	c.ui.SetInputEnabled(true)
	c.ui.FocusInput()
	c.pushLocal(c.displayName)
	c.logger.Info().Str("name", c.displayName).Msg("logged in")
}

func (c *Client) push(payload string) {
	if c.sender == nil {
		c.logger.Warn().Msg("no channel attached, dropping outgoing message")
		return
	}
	if err := c.sender.Push(payload); err != nil {
		c.logger.Warn().Err(err).Msg("push failed")
	}
}

func (c *Client) pushLocal(payload string) {
	if c.sender == nil {
		return
	}
	if err := c.sender.PushLocal(payload); err != nil {
		c.logger.Warn().Err(err).Msg("local push failed")
	}
}

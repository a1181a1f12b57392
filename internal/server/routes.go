package server

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/dev-dami/relaychat/internal/channel"
)

const endpointPrefix = "/atmosphere"

func (s *Server) routes() {
	s.app.Get("/", s.handleIndex)
	s.app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	endpoint := endpointPrefix + "/:room"
	s.app.Get(endpoint+channel.PollPathSuffix, s.handlePoll)
	s.app.Post(endpoint, s.handlePost)
	s.app.Get(endpoint, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(s.hub.HandleWebSocket))
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Instance": s.hub.ID(),
		"Rooms":    s.hub.Stats(),
		"Default":  endpointPrefix + "/" + DefaultRoom,
	})
}

func (s *Server) handlePost(c *fiber.Ctx) error {
	room := c.Params("room", DefaultRoom)
	var m Message
	if err := json.Unmarshal(c.Body(), &m); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "payload is not a chat message")
	}
	if !m.normalize(room) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := s.hub.Publish(m); err != nil {
		s.logger.Error().Err(err).Str("room", room).Msg("publish failed")
		return fiber.ErrServiceUnavailable
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// handlePoll answers long-polling clients. Without a cursor it returns the
// current head at once; with one it waits up to the poll timeout for newer
// messages. Length-tracking clients get every pending message in one
// response, the others one message per response.
func (s *Server) handlePoll(c *fiber.Ctx) error {
	hist := s.hub.history(c.Params("room", DefaultRoom))

	raw := c.Query(channel.ParamCursor)
	if raw == "" {
		c.Set(channel.HeaderCursor, strconv.FormatUint(hist.Head(), 10))
		return c.SendStatus(fiber.StatusNoContent)
	}
	cursor, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid cursor")
	}

	entries, head := hist.wait(cursor, s.cfg.PollTimeout, s.stopping)
	if len(entries) == 0 {
		next := cursor
		if cursor > head {
			next = head
		}
		c.Set(channel.HeaderCursor, strconv.FormatUint(next, 10))
		return c.SendStatus(fiber.StatusNoContent)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	if c.Query(channel.ParamTrackMessageSize) != "true" {
		c.Set(channel.HeaderCursor, strconv.FormatUint(entries[0].seq, 10))
		return c.Send(entries[0].payload)
	}
	var body []byte
	for _, e := range entries {
		body = append(body, channel.EncodeFrame(e.payload)...)
	}
	c.Set(channel.HeaderCursor, strconv.FormatUint(entries[len(entries)-1].seq, 10))
	return c.Send(body)
}

func pollTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultPollTimeout
	}
	return d
}

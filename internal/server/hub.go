package server

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dev-dami/relaychat/internal/channel"
)

const (
	topic        = "relaychat.messages"
	metadataRoom = "room"
)

type peer struct {
	room  string
	track bool
}

// Hub relays chat messages between the clients of each room. Incoming
// messages go to the backplane; HandleMessages consumes the backplane and
// fans each message out to the websocket clients and long-polling history of
// its room, so several relay instances sharing a backplane stay in sync.
type Hub struct {
	id          string
	publisher   message.Publisher
	subscriber  message.Subscriber
	historySize int
	now         func() time.Time
	logger      zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]peer
	rooms   map[string]*history

	ready     chan struct{}
	readyOnce sync.Once
}

func NewHub(publisher message.Publisher, subscriber message.Subscriber, historySize int, logger zerolog.Logger) *Hub {
	return &Hub{
		id:          uuid.New().String(),
		publisher:   publisher,
		subscriber:  subscriber,
		historySize: historySize,
		now:         time.Now,
		logger:      logger.With().Str("component", "hub").Logger(),
		clients:     make(map[*websocket.Conn]peer),
		rooms:       make(map[string]*history),
		ready:       make(chan struct{}),
	}
}

// ID identifies this relay instance.
func (h *Hub) ID() string { return h.id }

// Ready is closed once HandleMessages is subscribed to the backplane.
func (h *Hub) Ready() <-chan struct{} { return h.ready }

func (h *Hub) HandleWebSocket(conn *websocket.Conn) {
	room := conn.Params("room", DefaultRoom)
	track := conn.Query(channel.ParamTrackMessageSize) == "true"
	h.register(conn, room, track)

	defer func() {
		h.unregister(conn)
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Str("room", room).Msg("read error")
			}
			break
		}

		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			h.logger.Warn().Err(err).Str("room", room).Msg("unmarshal error")
			continue
		}
		if !m.normalize(room) {
			continue
		}
		if err := h.Publish(m); err != nil {
			h.logger.Error().Err(err).Str("room", room).Msg("publish failed")
		}
	}
}

// Publish stamps m and hands it to the backplane. m must be normalized.
func (h *Hub) Publish(m Message) error {
	if m.Time == 0 {
		m.Time = h.now().UnixMilli()
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	msg := message.NewMessage(m.ID, payload)
	msg.Metadata.Set(metadataRoom, m.Room)
	return errors.Wrap(h.publisher.Publish(topic, msg), "publish to backplane")
}

// HandleMessages consumes the backplane until ctx is done or the subscriber
// closes.
func (h *Hub) HandleMessages(ctx context.Context) error {
	ch, err := h.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return errors.Wrap(err, "subscribe to backplane")
	}
	h.readyOnce.Do(func() { close(h.ready) })
	h.logger.Info().Str("instance", h.id).Msg("relay started")

	for msg := range ch {
		var m Message
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			h.logger.Warn().Err(err).Str("uuid", msg.UUID).Msg("dropping undecodable backplane message")
			msg.Ack()
			continue
		}
		room := m.Room
		if room == "" {
			room = msg.Metadata.Get(metadataRoom)
		}
		if room == "" {
			room = DefaultRoom
		}
		h.fanOut(room, msg.Payload)
		msg.Ack()
	}
	h.logger.Info().Msg("relay stopped")
	return nil
}

func (h *Hub) fanOut(room string, payload []byte) {
	h.history(room).append(payload)

	h.mu.Lock()
	targets := make(map[*websocket.Conn]peer)
	for conn, p := range h.clients {
		if p.room == room {
			targets[conn] = p
		}
	}
	h.mu.Unlock()

	for conn, p := range targets {
		data := payload
		if p.track {
			data = channel.EncodeFrame(payload)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn().Err(err).Str("room", room).Msg("write error, dropping client")
			h.unregister(conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) register(conn *websocket.Conn, room string, track bool) {
	h.mu.Lock()
	h.clients[conn] = peer{room: room, track: track}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Str("room", room).Bool("track", track).Int("clients", n).Msg("client joined")
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *Hub) history(room string) *history {
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.rooms[room]
	if !ok {
		hist = newHistory(h.historySize)
		h.rooms[room] = hist
	}
	return hist
}

// RoomStats summarizes a room for the status page.
type RoomStats struct {
	Name     string
	Clients  int
	Messages uint64
}

func (h *Hub) Stats() []RoomStats {
	h.mu.Lock()
	byRoom := map[string]*RoomStats{}
	get := func(name string) *RoomStats {
		s, ok := byRoom[name]
		if !ok {
			s = &RoomStats{Name: name}
			byRoom[name] = s
		}
		return s
	}
	for _, p := range h.clients {
		get(p.room).Clients++
	}
	hists := make(map[string]*history, len(h.rooms))
	for name, hist := range h.rooms {
		hists[name] = hist
	}
	h.mu.Unlock()

	for name, hist := range hists {
		get(name).Messages = hist.Head()
	}
	out := make([]RoomStats, 0, len(byRoom))
	for _, s := range byRoom {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

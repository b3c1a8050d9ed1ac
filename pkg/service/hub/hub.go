package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/utils/errutil"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
)

const (
	defaultBufferSize = 64

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// TypingHandler is called when a client reports that its user is typing
type TypingHandler func(ctx context.Context, orgID types.OrganizationID, actor auth.Principal) error

// Hub fans events out to WebSocket clients grouped by organization room.
// Publish never blocks: a client whose buffer is full misses the event.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	users map[types.UserID]map[*client]struct{}

	bufferSize int
	upgrader   websocket.Upgrader
	onTyping   TypingHandler
	dropped    atomic.Int64
}

var _ interfaces.EventPublisher = &Hub{}

type Option func(*Hub)

// WithBufferSize sets the number of events buffered per client
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		h.bufferSize = size
	}
}

// WithTypingHandler relays typing frames sent by clients
func WithTypingHandler(handler TypingHandler) Option {
	return func(h *Hub) {
		h.onTyping = handler
	}
}

// WithCheckOrigin overrides the origin check of the upgrader
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = check
	}
}

func New(opts ...Option) *Hub {
	h := &Hub{
		rooms:      make(map[string]map[*client]struct{}),
		users:      make(map[types.UserID]map[*client]struct{}),
		bufferSize: defaultBufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetTypingHandler sets the typing relay after construction, since the chat
// use case that handles typing itself publishes through the hub
func (h *Hub) SetTypingHandler(handler TypingHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTyping = handler
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	room      string
	orgID     types.OrganizationID
	principal auth.Principal
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// Serve upgrades the request and attaches the connection to the organization
// room. The caller must have checked that the principal is a member.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, orgID types.OrganizationID, principal auth.Principal) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to upgrade connection", goerr.V("organization_id", orgID))
	}

	c := &client{
		hub:       h,
		conn:      conn,
		room:      model.OrganizationChannel(orgID),
		orgID:     orgID,
		principal: principal,
		send:      make(chan []byte, h.bufferSize),
	}
	h.register(c)

	logging.From(r.Context()).Info("websocket connected",
		"organization_id", orgID, "user_id", principal.UserID)

	ctx := logging.With(context.Background(), logging.From(r.Context()))
	go c.writePump()
	go c.readPump(ctx)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[*client]struct{})
	}
	h.rooms[c.room][c] = struct{}{}

	if h.users[c.principal.UserID] == nil {
		h.users[c.principal.UserID] = make(map[*client]struct{})
	}
	h.users[c.principal.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[c.room]; ok {
		if _, ok := room[c]; !ok {
			return
		}
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.room)
		}
	}
	if conns, ok := h.users[c.principal.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.principal.UserID)
		}
	}
	c.close()
}

// Publish delivers the event to the organization room, or only to the
// connections of the event recipients when they are set
func (h *Hub) Publish(ctx context.Context, event *model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to marshal event", goerr.V("type", event.Type)), "hub publish failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(event.Recipients) > 0 {
		for _, userID := range event.Recipients {
			for c := range h.users[userID] {
				h.deliver(ctx, c, data)
			}
		}
		return
	}

	for c := range h.rooms[event.Channel()] {
		h.deliver(ctx, c, data)
	}
}

func (h *Hub) deliver(ctx context.Context, c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.dropped.Add(1)
		logging.From(ctx).Warn("dropped event for slow client",
			"organization_id", c.orgID, "user_id", c.principal.UserID)
	}
}

// Connections returns the number of clients in the organization room
func (h *Hub) Connections(orgID types.OrganizationID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[model.OrganizationChannel(orgID)])
}

// Dropped returns how many deliveries were skipped because a buffer was full
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0)
	for _, room := range h.rooms {
		for c := range room {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) typingHandler() TypingHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onTyping
}

// inbound is a frame sent by a client
type inbound struct {
	Type types.EventType `json:"type"`
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
		logging.From(ctx).Info("websocket disconnected",
			"organization_id", c.orgID, "user_id", c.principal.UserID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.From(ctx).Warn("websocket read failed", "error", err.Error())
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.From(ctx).Debug("ignored malformed frame", "user_id", c.principal.UserID)
			continue
		}

		if msg.Type == types.EventTypeTyping {
			if handler := c.hub.typingHandler(); handler != nil {
				if err := handler(ctx, c.orgID, c.principal); err != nil {
					_ = errutil.Handle(ctx, err, "failed to relay typing")
				}
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

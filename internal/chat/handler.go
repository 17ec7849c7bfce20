package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jobdeck/jobdeck/api/internal/ws"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Handler upgrades chat requests to WebSocket connections and runs the
// read/write pumps. It expects to sit behind ws.Gateway, which has
// already resolved the connection identity; anonymous connections are
// accepted but their messages are refused.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new chat WebSocket handler
func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced upstream; tokens already gate writes
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP handles GET /v1/chat/ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := ws.FromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:        uuid.New().String(),
		userID:    identity.UserID,
		name:      identity.Name,
		anonymous: identity.Anonymous,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
	h.hub.register(c)

	greeting := &Message{Type: TypeSystem, Body: "connected", SentAt: time.Now().UTC()}
	if c.anonymous {
		greeting.Body = "connected as anonymous, messages are read-only"
	}
	c.trySend(greeting.Encode())

	go h.writePump(conn, c)
	go h.readPump(conn, c)
}

// readPump consumes frames from the connection until it closes
func (h *Handler) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.hub.unregister(c.id)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("chat read error", slog.String("error", err.Error()))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != TypeSay {
			h.reply(c, &Message{Type: TypeError, Body: "unsupported frame"})
			continue
		}

		if c.anonymous {
			h.reply(c, &Message{Type: TypeError, Body: "sign in to send messages"})
			continue
		}
		if msg.Body == "" {
			continue
		}

		h.hub.Broadcast(&Message{
			Type:       TypeMessage,
			Body:       msg.Body,
			SenderID:   c.userID,
			SenderName: c.name,
			SentAt:     time.Now().UTC(),
		})
	}
}

// writePump pushes hub frames and pings to the connection
func (h *Handler) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// reply sends a frame to one client without touching the broadcast path
func (h *Handler) reply(c *client, msg *Message) {
	c.trySend(msg.Encode())
}

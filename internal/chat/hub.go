package chat

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MessageType classifies a frame on the chat wire
type MessageType string

const (
	// Client to server
	TypeSay MessageType = "say"

	// Server to client
	TypeMessage MessageType = "message"
	TypeSystem  MessageType = "system"
	TypeError   MessageType = "error"
)

// Message is a chat frame. Sender fields are set by the server from the
// connection identity, never trusted from the client.
type Message struct {
	Type       MessageType `json:"type"`
	Body       string      `json:"body,omitempty"`
	SenderID   string      `json:"sender_id,omitempty"`
	SenderName string      `json:"sender_name,omitempty"`
	SentAt     time.Time   `json:"sent_at,omitempty"`
}

// Encode marshals the message for the wire
func (m *Message) Encode() []byte {
	data, _ := json.Marshal(m)
	return data
}

// client is one connected WebSocket, registered with the hub. Frames are
// pushed through a buffered channel; a slow reader gets dropped rather
// than blocking the broadcast path.
type client struct {
	id        string
	userID    string
	name      string
	anonymous bool
	send      chan []byte
	done      chan struct{}

	closeOnce sync.Once
	sendMu    sync.Mutex
	closed    bool
}

// trySend queues a frame for the client without blocking. Returns false
// when the buffer is full or the client has been closed.
func (c *client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close releases the client's channels exactly once. The closed flag is
// flipped under sendMu so no trySend can race the close of send.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
	})
}

// Hub tracks connected chat clients and fans broadcast messages out to
// them. One hub serves the whole process.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *slog.Logger
}

// NewHub creates a new chat hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// register adds a connection to the hub
func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c

	h.logger.Debug("chat client connected",
		slog.String("client_id", c.id),
		slog.Bool("anonymous", c.anonymous))
}

// unregister removes a connection and releases its channels
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}
	c.close()
	delete(h.clients, id)

	h.logger.Debug("chat client disconnected", slog.String("client_id", id))
}

// Broadcast fans a message out to every connected client. Clients whose
// buffers are full are skipped.
func (h *Hub) Broadcast(msg *Message) {
	data := msg.Encode()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.trySend(data) {
			h.logger.Debug("chat client buffer full, dropping frame",
				slog.String("client_id", c.id))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients. Pumps that are still draining observe
// the done channel; their late replies are refused by trySend rather
// than hitting a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

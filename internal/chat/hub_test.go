package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestClient(id string, buffer int) *client {
	return &client{
		id:     id,
		userID: "user-" + id,
		name:   "User " + id,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func receiveMessage(t *testing.T, c *client) *Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to decode frame: %v", err)
		}
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

// ============================================================================
// Hub Tests
// ============================================================================

func TestHub_Broadcast_ReachesAllClients(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	a := newTestClient("a", 4)
	b := newTestClient("b", 4)
	hub.register(a)
	hub.register(b)

	hub.Broadcast(&Message{Type: TypeMessage, Body: "hello", SenderID: "user-a"})

	for _, c := range []*client{a, b} {
		msg := receiveMessage(t, c)
		if msg.Body != "hello" {
			t.Errorf("client %s: expected body hello, got %q", c.id, msg.Body)
		}
		if msg.SenderID != "user-a" {
			t.Errorf("client %s: expected sender user-a, got %q", c.id, msg.SenderID)
		}
	}
}

func TestHub_Broadcast_SkipsFullClient(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	full := newTestClient("full", 1)
	full.send <- []byte("stuck")
	healthy := newTestClient("healthy", 4)
	hub.register(full)
	hub.register(healthy)

	hub.Broadcast(&Message{Type: TypeMessage, Body: "through"})

	msg := receiveMessage(t, healthy)
	if msg.Body != "through" {
		t.Errorf("expected healthy client to receive frame, got %q", msg.Body)
	}
	if len(full.send) != 1 {
		t.Errorf("expected full client buffer untouched, got %d frames", len(full.send))
	}
}

func TestHub_Unregister_RemovesClient(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	c := newTestClient("a", 4)
	hub.register(c)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.unregister("a")

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	select {
	case <-c.done:
	default:
		t.Error("expected done channel closed on unregister")
	}

	// Unknown IDs are a no-op
	hub.unregister("missing")
}

func TestHub_Close_DisconnectsEveryone(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	a := newTestClient("a", 4)
	b := newTestClient("b", 4)
	hub.register(a)
	hub.register(b)

	hub.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after close, got %d", hub.ClientCount())
	}
}

func TestHub_Close_RefusesLateSends(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	c := newTestClient("a", 4)
	hub.register(c)

	hub.Close()

	// A read pump that is still draining a buffered frame may reply after
	// the hub has shut down; the send must be refused, never panic.
	if c.trySend([]byte("late")) {
		t.Error("expected send to a closed client to be refused")
	}
}

func TestHub_Close_ConcurrentWithReplies(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	clients := make([]*client, 8)
	for i := range clients {
		clients[i] = newTestClient(string(rune('a'+i)), 2)
		hub.register(clients[i])
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.trySend([]byte("frame"))
			}
		}(c)
	}
	hub.Close()
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after close, got %d", hub.ClientCount())
	}
}

func TestHub_Unregister_ThenCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil)
	c := newTestClient("a", 4)
	hub.register(c)

	hub.unregister("a")
	// Shutdown after the client already left must not double-close
	hub.Close()
	c.close()
}

func TestMessage_Encode_OmitsEmptyFields(t *testing.T) {
	t.Parallel()
	data := (&Message{Type: TypeSystem, Body: "connected"}).Encode()

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if _, ok := decoded["sender_id"]; ok {
		t.Error("expected empty sender_id to be omitted")
	}
	if decoded["type"] != "system" {
		t.Errorf("expected type system, got %v", decoded["type"])
	}
}

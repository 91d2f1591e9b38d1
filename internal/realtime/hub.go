// Package realtime pushes events to connected browsers over websockets.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sendBuffer is the per-connection queue length. A full queue drops the event;
// the notification row stays the durable record.
const sendBuffer = 64

// Client is one websocket connection owned by a user.
type Client struct {
	UserID uuid.UUID
	send   chan []byte

	hub    *Hub
	mu     sync.Mutex
	closed bool
}

// NewClient creates a client bound to a user.
func NewClient(userID uuid.UUID) *Client {
	return &Client{UserID: userID, send: make(chan []byte, sendBuffer)}
}

// Send exposes the outbound queue to the write pump.
func (c *Client) Send() <-chan []byte { return c.send }

// Close unregisters the client and closes its queue. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.send)
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
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

// Hub tracks the live connections of each user.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]map[*Client]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		byUser: make(map[uuid.UUID]map[*Client]struct{}),
		logger: logger.Named("RealtimeHub"),
	}
}

// Register attaches c to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// PublishToUser sends payload to every open connection of userID.
// It returns the number of connections that accepted the event.
func (h *Hub) PublishToUser(userID uuid.UUID, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode realtime payload", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.enqueue(data) {
			delivered++
		} else {
			h.logger.Debug("Dropped realtime event for slow client", zap.String("user_id", userID.String()))
		}
	}
	return delivered
}

// ConnectionCount reports how many sockets userID has open.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Hub maintains the set of active clients and serialises every state change:
// registrations, disconnects, inbound messages and timer ticks all run to
// completion on the Run goroutine, one at a time.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Incoming   chan *ClientMessage
	mu         sync.RWMutex

	// TickInterval drives OnTick. Zero disables ticking.
	TickInterval time.Duration

	// OnConnect is called when a client has been registered.
	OnConnect func(client *Client)
	// OnMessage is called for each incoming client message.
	OnMessage func(cm *ClientMessage)
	// OnDisconnect is called when a client disconnects.
	OnDisconnect func(client *Client)
	// OnTick is called every TickInterval.
	OnTick func(now time.Time)

	nextID atomic.Uint64
	done   chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Incoming:   make(chan *ClientMessage, 256),
		done:       make(chan struct{}),
	}
}

// NextClientID returns a fresh transport identifier.
func (h *Hub) NextClientID() string {
	return fmt.Sprintf("client-%d", h.nextID.Add(1))
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var tick <-chan time.Time
	if h.TickInterval > 0 {
		ticker := time.NewTicker(h.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			h.mu.Unlock()
			slog.Info("client connected", "client", client.ID)
			if h.OnConnect != nil {
				h.OnConnect(client)
			}

		case client := <-h.Unregister:
			h.mu.Lock()
			_, ok := h.Clients[client]
			delete(h.Clients, client)
			h.mu.Unlock()
			if !ok {
				continue
			}
			slog.Info("client disconnected", "client", client.ID)
			if h.OnDisconnect != nil {
				h.OnDisconnect(client)
			}
			close(client.Send)

		case cm := <-h.Incoming:
			if h.OnMessage != nil {
				h.OnMessage(cm)
			}

		case now := <-tick:
			if h.OnTick != nil {
				h.OnTick(now)
			}
		}
	}
}

// Join hands a new client to the Run loop. It reports false once the hub
// has stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// unregister hands a client to the Run loop unless the hub has stopped.
func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// deliver hands an inbound message to the Run loop. It reports false once
// the hub has stopped.
func (h *Hub) deliver(cm *ClientMessage) bool {
	select {
	case h.Incoming <- cm:
		return true
	case <-h.done:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

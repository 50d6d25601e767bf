// Package session binds transport connections to player entities.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ugaemi/hangout-server/internal/game"
	"github.com/ugaemi/hangout-server/internal/world"
	"github.com/ugaemi/hangout-server/internal/ws"
)

// Registry keeps a bidirectional index between live clients and the player
// entities they control. All methods are safe for concurrent use.
type Registry struct {
	store *world.Store

	byClient map[*ws.Client]string // client -> entity id
	byID     map[string]*ws.Client // entity id -> client
	lastSeen map[*ws.Client]time.Time

	mu sync.RWMutex
}

// NewRegistry creates an empty registry backed by store.
func NewRegistry(store *world.Store) *Registry {
	return &Registry{
		store:    store,
		byClient: make(map[*ws.Client]string),
		byID:     make(map[string]*ws.Client),
		lastSeen: make(map[*ws.Client]time.Time),
	}
}

// Connect creates a player for the client and binds the two. A client that
// is already bound keeps its existing entity.
func (r *Registry) Connect(client *ws.Client, now time.Time) *game.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byClient[client]; ok {
		if e, ok := r.store.Get(id); ok {
			return e
		}
	}

	e := r.store.SpawnPlayer()
	r.byClient[client] = e.ID
	r.byID[e.ID] = client
	r.lastSeen[client] = now

	slog.Info("player joined", "client", client.ID, "player", e.ID, "name", e.Name)
	return e
}

// Disconnect unbinds the client and removes its entity from the store.
// Returns the removed id; an unknown client is a no-op.
func (r *Registry) Disconnect(client *ws.Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byClient[client]
	if !ok {
		return "", false
	}
	delete(r.byClient, client)
	delete(r.byID, id)
	delete(r.lastSeen, client)
	r.store.Remove(id)

	slog.Info("player left", "client", client.ID, "player", id)
	return id, true
}

// EntityID returns the id bound to a client.
func (r *Registry) EntityID(client *ws.Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byClient[client]
	return id, ok
}

// Client returns the client bound to an entity id, or nil.
func (r *Registry) Client(id string) *ws.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// Count returns the number of bound clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byClient)
}

// Touch records activity from a client.
func (r *Registry) Touch(client *ws.Client, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byClient[client]; ok {
		r.lastSeen[client] = now
	}
}

// Idle returns clients that have been silent for longer than timeout.
// A non-positive timeout disables idle detection.
func (r *Registry) Idle(now time.Time, timeout time.Duration) []*ws.Client {
	if timeout <= 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []*ws.Client
	for client, seen := range r.lastSeen {
		if now.Sub(seen) > timeout {
			idle = append(idle, client)
		}
	}
	return idle
}

// Broadcast sends a message to every bound client.
func (r *Registry) Broadcast(msg ws.Message) {
	r.BroadcastExcept(msg, nil)
}

// BroadcastExcept sends a message to every bound client but except.
func (r *Registry) BroadcastExcept(msg ws.Message, except *ws.Client) {
	data, err := msg.Encode()
	if err != nil {
		slog.Error("failed to marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for client := range r.byClient {
		if client == except {
			continue
		}
		client.Enqueue(data)
	}
}

// SendTo sends a message to the client bound to id. Returns false if no
// client is bound.
func (r *Registry) SendTo(id string, msg ws.Message) bool {
	client := r.Client(id)
	if client == nil {
		return false
	}
	client.SendMessage(msg)
	return true
}

// Package world owns the authoritative entity store for the single shared
// world. One Store is created per server process.
package world

import (
	"fmt"
	"sync"

	"github.com/ugaemi/hangout-server/internal/game"
)

// Store holds every entity in the world, players and bots alike.
type Store struct {
	world    game.World
	entities map[string]*game.Entity

	mu sync.RWMutex
}

// NewStore creates an empty store for the given world.
func NewStore(w game.World) *Store {
	return &Store{
		world:    w,
		entities: make(map[string]*game.Entity),
	}
}

// World returns the world layout.
func (s *Store) World() game.World {
	return s.world
}

// Add inserts an entity. Returns false if the id is already taken.
func (s *Store) Add(e *game.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[e.ID]; exists {
		return false
	}
	s.entities[e.ID] = e
	return true
}

// SpawnPlayer creates a player with the next default name and adds it.
func (s *Store) SpawnPlayer() *game.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		p := game.NewPlayer(s.world, fmt.Sprintf("Player %d", len(s.entities)+1))
		if _, exists := s.entities[p.ID]; exists {
			continue
		}
		s.entities[p.ID] = p
		return p.Clone()
	}
}

// Remove deletes an entity and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return false
	}
	delete(s.entities, id)
	return true
}

// Get returns a copy of an entity.
func (s *Store) Get(id string) (*game.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Update runs fn on the live entity under the write lock and returns a copy
// of the result. Returns false if the entity does not exist.
func (s *Store) Update(id string, fn func(e *game.Entity)) (*game.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	fn(e)
	return e.Clone(), true
}

// WithEntities runs fn under the write lock with a lookup over live entities.
// The bot tick uses it so a whole tick is applied atomically.
func (s *Store) WithEntities(fn func(lookup func(id string) *game.Entity)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(func(id string) *game.Entity {
		return s.entities[id]
	})
}

// Snapshot returns copies of all entities keyed by id.
func (s *Store) Snapshot() map[string]*game.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*game.Entity, len(s.entities))
	for id, e := range s.entities {
		out[id] = e.Clone()
	}
	return out
}

// Len returns the number of entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Counts returns the number of players and bots.
func (s *Store) Counts() (players, bots int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities {
		if e.IsBot {
			bots++
		} else {
			players++
		}
	}
	return players, bots
}

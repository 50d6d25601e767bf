package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore implements StrokeStore in process memory. It stands in for a
// database where a StrokeStore must outlive a single board, as in tests.
type MemoryStore struct {
	strokes []json.RawMessage
	closed  bool
	mu      sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, stroke json.RawMessage, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.strokes = append(s.strokes, stroke)
	if limit > 0 && len(s.strokes) > limit {
		s.strokes = append(s.strokes[:0], s.strokes[len(s.strokes)-limit:]...)
	}
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.strokes = nil
	return nil
}

func (s *MemoryStore) Load(_ context.Context, limit int) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	strokes := s.strokes
	if limit > 0 && len(strokes) > limit {
		strokes = strokes[len(strokes)-limit:]
	}
	out := make([]json.RawMessage, len(strokes))
	copy(out, strokes)
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

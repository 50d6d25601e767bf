// Package store persists whiteboard strokes.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrClosed is returned by a store that has been closed.
var ErrClosed = errors.New("store: closed")

// StrokeStore defines the interface for persistent whiteboard storage.
type StrokeStore interface {
	// Append stores a stroke and trims the log to the newest limit entries.
	Append(ctx context.Context, stroke json.RawMessage, limit int) error
	// Clear removes every stroke.
	Clear(ctx context.Context) error
	// Load returns up to limit of the newest strokes, oldest first.
	Load(ctx context.Context, limit int) ([]json.RawMessage, error)
	// Close releases resources.
	Close() error
}

// Package whiteboard holds the shared drawing surface: a capped, ordered log
// of opaque stroke records with optional persistence.
package whiteboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultCap is the number of strokes retained when no cap is configured.
const DefaultCap = 10000

// Persister stores strokes outside the process.
type Persister interface {
	Append(ctx context.Context, stroke json.RawMessage, limit int) error
	Clear(ctx context.Context) error
	Load(ctx context.Context, limit int) ([]json.RawMessage, error)
}

const (
	// persistQueueSize bounds the changes waiting for the persister.
	persistQueueSize = 256
	persistTimeout   = 2 * time.Second
)

// persistOp is one queued change. A nil stroke clears the store.
type persistOp struct {
	stroke json.RawMessage
}

// Board is a FIFO stroke log bounded by a fixed limit. When full, the oldest stroke
// is evicted first. Changes reach the persister from Run, never from the
// caller of Draw or Clear.
type Board struct {
	strokes []json.RawMessage
	cap     int
	persist Persister
	queue   chan persistOp

	mu sync.RWMutex
}

// New creates a board. A nil persister keeps strokes in memory only.
func New(limit int, persist Persister) *Board {
	if limit <= 0 {
		limit = DefaultCap
	}
	b := &Board{
		strokes: make([]json.RawMessage, 0, min(limit, 256)),
		cap:     limit,
		persist: persist,
	}
	if persist != nil {
		b.queue = make(chan persistOp, persistQueueSize)
	}
	return b
}

// Restore loads previously persisted strokes, keeping the newest cap.
func (b *Board) Restore(ctx context.Context) error {
	if b.persist == nil {
		return nil
	}
	strokes, err := b.persist.Load(ctx, b.cap)
	if err != nil {
		return fmt.Errorf("load strokes: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(strokes) > b.cap {
		strokes = strokes[len(strokes)-b.cap:]
	}
	b.strokes = append(b.strokes[:0], strokes...)
	slog.Info("whiteboard restored", "strokes", len(b.strokes))
	return nil
}

// Draw appends a copy of stroke and queues it for persistence.
func (b *Board) Draw(stroke json.RawMessage) {
	cp := make(json.RawMessage, len(stroke))
	copy(cp, stroke)

	b.mu.Lock()
	if len(b.strokes) >= b.cap {
		drop := len(b.strokes) - b.cap + 1
		b.strokes = append(b.strokes[:0], b.strokes[drop:]...)
	}
	b.strokes = append(b.strokes, cp)
	b.mu.Unlock()

	b.enqueue(persistOp{stroke: cp})
}

// Clear empties the board and queues the clear for persistence.
func (b *Board) Clear() {
	b.mu.Lock()
	b.strokes = b.strokes[:0]
	b.mu.Unlock()

	b.enqueue(persistOp{})
}

func (b *Board) enqueue(op persistOp) {
	if b.queue == nil {
		return
	}
	select {
	case b.queue <- op:
	default:
		slog.Warn("whiteboard persistence queue full, dropping change", "clear", op.stroke == nil)
	}
}

// Run writes queued changes to the persister in arrival order until ctx is
// done, then flushes what is already queued. Without a persister it returns
// immediately.
func (b *Board) Run(ctx context.Context) error {
	if b.queue == nil {
		return nil
	}
	for {
		select {
		case op := <-b.queue:
			b.write(context.Background(), op)
		case <-ctx.Done():
			b.flush()
			return nil
		}
	}
}

func (b *Board) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for {
		select {
		case op := <-b.queue:
			b.write(ctx, op)
		default:
			return
		}
	}
}

func (b *Board) write(parent context.Context, op persistOp) {
	ctx, cancel := context.WithTimeout(parent, persistTimeout)
	defer cancel()

	var err error
	if op.stroke == nil {
		err = b.persist.Clear(ctx)
	} else {
		err = b.persist.Append(ctx, op.stroke, b.cap)
	}
	if err != nil {
		slog.Error("failed to persist whiteboard change", "clear", op.stroke == nil, "error", err)
	}
}

// Strokes returns the log oldest first.
func (b *Board) Strokes() []json.RawMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]json.RawMessage, len(b.strokes))
	copy(out, b.strokes)
	return out
}

// Len returns the number of retained strokes.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.strokes)
}

// Cap returns the retention limit.
func (b *Board) Cap() int {
	return b.cap
}

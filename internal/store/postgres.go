package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// json, not jsonb: strokes are returned byte-for-byte as they were drawn.
const schema = `
CREATE TABLE IF NOT EXISTS whiteboard_strokes (
    seq BIGSERIAL PRIMARY KEY,
    stroke JSON NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore implements StrokeStore using PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// NewPostgresStore connects to PostgreSQL and initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Append inserts a stroke and drops everything older than the newest limit.
func (s *PostgresStore) Append(ctx context.Context, stroke json.RawMessage, limit int) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO whiteboard_strokes (stroke) VALUES ($1)`, string(stroke)); err != nil {
			return fmt.Errorf("insert stroke: %w", err)
		}
		if limit <= 0 {
			return nil
		}
		_, err := tx.Exec(ctx,
			`DELETE FROM whiteboard_strokes WHERE seq <= (
			     SELECT seq FROM whiteboard_strokes ORDER BY seq DESC OFFSET $1 LIMIT 1
			 )`, limit)
		if err != nil {
			return fmt.Errorf("trim strokes: %w", err)
		}
		return nil
	})
}

// Clear removes every stroke.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM whiteboard_strokes`)
	return err
}

// Load returns up to limit of the newest strokes, oldest first.
func (s *PostgresStore) Load(ctx context.Context, limit int) ([]json.RawMessage, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.pool.Query(ctx,
		`SELECT stroke::text FROM (
		     SELECT seq, stroke FROM whiteboard_strokes ORDER BY seq DESC LIMIT $1
		 ) recent ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, err
	}

	texts, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	strokes := make([]json.RawMessage, len(texts))
	for i, t := range texts {
		strokes[i] = json.RawMessage(t)
	}
	return strokes, nil
}

// Close releases database resources.
func (s *PostgresStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.pool.Close()
	return nil
}

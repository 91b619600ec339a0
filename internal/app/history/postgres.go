package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"callrelay/internal/app/db"
)

// PostgresStore keeps records in the call_durations table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool (see db.NewPool).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const (
	beginSQL = `
INSERT INTO call_durations (channel, started_at, ended_at, duration_seconds)
VALUES ($1, $2, NULL, 0)
ON CONFLICT (channel) DO UPDATE
SET started_at = EXCLUDED.started_at, ended_at = NULL, duration_seconds = 0`

	finishSQL = `
INSERT INTO call_durations (channel, started_at, ended_at, duration_seconds)
VALUES ($1, $2, $3, $4)
ON CONFLICT (channel) DO UPDATE
SET started_at = EXCLUDED.started_at, ended_at = EXCLUDED.ended_at, duration_seconds = EXCLUDED.duration_seconds`

	getSQL = `SELECT started_at, ended_at, duration_seconds FROM call_durations WHERE channel = $1`

	resetSQL = `DELETE FROM call_durations WHERE channel = $1`
)

// Begin implements Store.
func (p *PostgresStore) Begin(ctx context.Context, channel string, startedAt time.Time) error {
	if _, err := p.pool.Exec(ctx, beginSQL, channel, startedAt); err != nil {
		return fmt.Errorf("history: begin %q: %w", channel, err)
	}
	return nil
}

// Finish implements Store.
func (p *PostgresStore) Finish(ctx context.Context, rec Record) error {
	if _, err := p.pool.Exec(ctx, finishSQL, rec.Channel, rec.StartedAt, rec.EndedAt, rec.Duration); err != nil {
		return fmt.Errorf("history: finish %q: %w", rec.Channel, err)
	}
	return nil
}

// Get implements Store.
func (p *PostgresStore) Get(ctx context.Context, channel string) (Record, error) {
	rec := Record{Channel: channel}

	err := p.pool.QueryRow(ctx, getSQL, channel).Scan(&rec.StartedAt, &rec.EndedAt, &rec.Duration)
	if err != nil {
		if db.IsNotFound(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("history: get %q: %w", channel, err)
	}
	return rec, nil
}

// Reset implements Store.
func (p *PostgresStore) Reset(ctx context.Context, channel string) error {
	if _, err := p.pool.Exec(ctx, resetSQL, channel); err != nil {
		return fmt.Errorf("history: reset %q: %w", channel, err)
	}
	return nil
}

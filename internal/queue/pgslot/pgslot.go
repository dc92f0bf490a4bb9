// Package pgslot provides a PostgreSQL implementation of queue.Slot.
package pgslot

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tracer = otel.Tracer("github.com/linnemanlabs/esitriage/internal/queue/pgslot")

//go:embed schema.sql
var schema string

// Slot persists queue slots in the queue_slots table.
type Slot struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Slot. The caller owns
// the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Slot, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Slot{pool: pool}, nil
}

// Get implements queue.Slot.
func (s *Slot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "pgslot.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM queue_slots WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("select slot: %w", err)
	}
	return value, true, nil
}

// Put implements queue.Slot. The row is overwritten; the last writer wins.
func (s *Slot) Put(ctx context.Context, key string, value []byte) error {
	ctx, span := tracer.Start(ctx, "pgslot.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
		attribute.Int("queue.bytes", len(value)),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO queue_slots (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

// Package store implements the Store (C1): durable, transactional state
// for every entity in the pipeline, on top of PostgreSQL via pgx. It
// follows the teacher's internal/db/postgres.go shape directly — a
// struct wrapping a pgxpool.Pool, a schema file executed at startup, and
// typed methods issuing raw SQL with $-placeholders and ON CONFLICT
// upserts, one transaction per logical unit of work.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the connection pool and exposes typed operations for every
// entity in §3. All multi-row updates within a single pipeline stage run
// in one transaction (see each component's method for the unit of work
// it opens).
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pgx pool and pings it once, exactly mirroring the
// teacher's db.Connect.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}
	log.Println("store: connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql. Every statement is
// idempotent (CREATE ... IF NOT EXISTS), so this is safe to call on
// every startup, matching the teacher's InitSchema.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: failed to execute schema: %w", err)
	}
	log.Println("store: schema initialized")
	return nil
}

// Pool exposes the underlying pool for components that need direct
// access (the Audit Log, for one) — mirrors the teacher's GetPool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = fmt.Errorf("store: not found")

// ErrForwardOnlyViolation is returned when a caller attempts to move a
// submission's status somewhere other than forward in the fixed order.
var ErrForwardOnlyViolation = fmt.Errorf("store: status transition is not forward-only")

// ErrDuplicateTxSignature is returned on a unique-constraint violation
// for votes/contributions — the Integrity error kind in §7.
var ErrDuplicateTxSignature = fmt.Errorf("store: duplicate tx_signature")

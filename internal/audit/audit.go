// Package audit implements the Audit Log (C3): a single append-only
// sink. Per §4.3, writes must never block the caller on contention and a
// write failure is logged and dropped, never surfaced to the caller —
// the same "warn, don't fail the enclosing operation" posture the
// teacher uses throughout (e.g. cmd/engine/main.go's
// "Warning: Failed to connect to PostgreSQL, continuing...").
package audit

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityPrefix marks security-relevant audit actions, per §4.3.
const SecurityPrefix = "security_"

// Log is the append-only sink. Production deployments may swap Pool for
// a message-bus-backed implementation without changing call sites — the
// interface is intentionally this narrow.
type Log struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Log {
	return &Log{pool: pool}
}

// Entry writes one audit row. It never returns an error to the caller by
// design: failures are logged locally and swallowed.
func (l *Log) Entry(ctx context.Context, action, resourceID, userID, details string) {
	if l == nil || l.pool == nil {
		log.Printf("[audit] (no sink) action=%s resource=%s user=%s", action, resourceID, userID)
		return
	}
	const sql = `
		INSERT INTO audit_log (timestamp, action, resource_id, user_id, details)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
	`
	_, err := l.pool.Exec(ctx, sql, time.Now().UTC(), action, resourceID, userID, details)
	if err != nil {
		log.Printf("[audit] WARNING: failed to write audit entry (action=%s): %v", action, err)
	}
}

// Security writes an audit entry prefixed per SecurityPrefix, used by
// the API surface for authorization failures (§8's
// security_unauthorized_edit_attempt scenario).
func (l *Log) Security(ctx context.Context, action, resourceID, userID, details string) {
	if !strings.HasPrefix(action, SecurityPrefix) {
		action = SecurityPrefix + action
	}
	l.Entry(ctx, action, resourceID, userID, details)
}

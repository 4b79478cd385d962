// Package audit records state-changing operations into audit_logs and serves
// the audit timeline. The log is insert-only and independent of the
// lifecycle stamps carried on the entities themselves.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents a record stored in audit_logs.
type Entry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Logger writes records into audit_logs. A nil Logger drops entries, so
// services can record unconditionally.
type Logger struct {
	pool *pgxpool.Pool
}

// NewLogger returns a new Logger.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Record persists the log entry.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil || l.pool == nil {
		return nil
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit: entry requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, '0001-01-01T00:00:00Z'::timestamptz), NOW()))`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, metaJSON, entry.At)
	return err
}

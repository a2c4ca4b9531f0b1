package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event log row statuses.
const (
	StatusReceived  = "received"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// EventLogRecord is the audit row for one webhook delivery.
type EventLogRecord struct {
	Key         string          `json:"key"`
	EventID     string          `json:"event_id,omitempty"`
	EventType   string          `json:"event_type"`
	CallID      string          `json:"call_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	ReceivedAt  time.Time       `json:"received_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventLogStore records every received webhook payload for audit, replay
// and idempotency lookups. Rows are append/update only.
type EventLogStore struct {
	pool rowQuerier
}

func NewEventLogStore(pool *pgxpool.Pool) *EventLogStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &EventLogStore{pool: pool}
}

func newEventLogStoreWithExec(exec rowQuerier) *EventLogStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &EventLogStore{pool: exec}
}

// Insert records a delivery with status received. The capture is
// fire-and-forget, so a reconcile worker can finish and mark the key
// processed before this INSERT lands. On conflict only the metadata
// columns are backfilled; status is never touched here, whichever
// transition won stays won.
func (s *EventLogStore) Insert(ctx context.Context, evt Event) error {
	query := `
		INSERT INTO call_events (event_key, event_id, event_type, call_id, payload, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_key) DO UPDATE
		SET event_id   = CASE WHEN call_events.event_id = '' THEN EXCLUDED.event_id ELSE call_events.event_id END,
		    event_type = CASE WHEN call_events.event_type = '' THEN EXCLUDED.event_type ELSE call_events.event_type END,
		    call_id    = CASE WHEN call_events.call_id = '' THEN EXCLUDED.call_id ELSE call_events.call_id END,
		    payload    = COALESCE(call_events.payload, EXCLUDED.payload)
	`
	_, err := s.pool.Exec(ctx, query,
		evt.LogKey(),
		evt.ID,
		evt.RawType,
		evt.Call.ID,
		evt.Raw,
		StatusReceived,
		evt.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("events: insert log row: %w", err)
	}
	return nil
}

// MarkProcessed transitions the key to processed, returning false when it
// was already processed. An upsert rather than an UPDATE: the worker can
// get here before the capture INSERT commits, and a plain UPDATE would
// match zero rows and lose the transition, leaving the key open for a
// redelivery to re-run every effect.
func (s *EventLogStore) MarkProcessed(ctx context.Context, key string) (bool, error) {
	query := `
		INSERT INTO call_events (event_key, status, received_at, processed_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (event_key) DO UPDATE
		SET status = EXCLUDED.status, processed_at = now(), error = ''
		WHERE call_events.status <> EXCLUDED.status
	`
	ct, err := s.pool.Exec(ctx, query, key, StatusProcessed)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// MarkFailed records a terminal reconciliation failure with its error
// message, upserting for the same reason MarkProcessed does. Failures
// are visible only through this audit trail.
func (s *EventLogStore) MarkFailed(ctx context.Context, key, message string) error {
	query := `
		INSERT INTO call_events (event_key, status, error, received_at, processed_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (event_key) DO UPDATE
		SET status = EXCLUDED.status, error = EXCLUDED.error, processed_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, key, StatusFailed, message); err != nil {
		return fmt.Errorf("events: mark failed: %w", err)
	}
	return nil
}

// WasProcessed reports whether any of the candidate keys has a processed
// row. A key can match the stored event key, the raw provider event id,
// or the type_callId pair: deliveries without a provider event id are
// stored under a type_receivedMillis key a redelivery can never
// reproduce, so the pair is the only stable handle such rows have.
func (s *EventLogStore) WasProcessed(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	query := `
		SELECT 1
		FROM call_events
		WHERE (event_key = ANY($1)
			OR event_id = ANY($1)
			OR (call_id <> '' AND event_type || '_' || call_id = ANY($1)))
		AND status = $2
		LIMIT 1
	`
	var exists int
	if err := s.pool.QueryRow(ctx, query, keys, StatusProcessed).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return true, nil
}

// Package event implements the durable cycle-event queue on PostgreSQL.
//
// Delivery is at-least-once: a claim takes a lease, a crash lets the lease
// expire and the event returns to pending. Consumers must be idempotent;
// the queue only guarantees that a due event is eventually handed to exactly
// one worker at a time.
package event

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// Repo provides the cycle-event queue backed by PostgreSQL.
type Repo struct {
	q postgres.Querier
}

// New creates a new event queue repository.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const eventColumns = `id, persona_id, kind, status, scheduled_for, manual,
       manual_location, attempts, leased_until, created_at`

// Enqueue inserts a pending cycle event.
func (r *Repo) Enqueue(ctx context.Context, e domain.CycleEvent) (domain.CycleEvent, error) {
	if err := e.Validate(); err != nil {
		return domain.CycleEvent{}, err
	}

	q := postgres.QuerierFromCtx(ctx, r.q)

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = domain.EventPending
	e.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	insert := builder.Insert("cycle_events").
		Columns("id", "persona_id", "kind", "status", "scheduled_for", "manual",
			"manual_location", "attempts", "created_at").
		Values(e.ID, e.PersonaID, e.Kind, e.Status, e.ScheduledFor.UTC(), e.Manual,
			e.ManualLocation, e.Attempts, e.CreatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING")

	sql, args, err := insert.ToSql()
	if err != nil {
		return domain.CycleEvent{}, fmt.Errorf("build event insert: %w", err)
	}

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return domain.CycleEvent{}, postgres.MapError(err, "cycle event", e.ID)
	}

	return e, nil
}

// claimDueSQL selects due pending events with SKIP LOCKED so concurrent
// workers never claim the same row, then leases them in one statement.
const claimDueSQL = `
WITH due AS (
    SELECT id FROM cycle_events
    WHERE status = 'pending'
      AND scheduled_for <= $1
    ORDER BY scheduled_for ASC
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
UPDATE cycle_events e
SET status       = 'leased',
    attempts     = e.attempts + 1,
    leased_until = $3
FROM due
WHERE e.id = due.id
RETURNING ` + qualifiedEventColumns

const qualifiedEventColumns = `e.id, e.persona_id, e.kind, e.status, e.scheduled_for, e.manual,
       e.manual_location, e.attempts, e.leased_until, e.created_at`

// ClaimDue leases up to limit due events for processing.
func (r *Repo) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]domain.CycleEvent, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	rows, err := q.Query(ctx, claimDueSQL, now.UTC(), limit, now.UTC().Add(lease))
	if err != nil {
		return nil, fmt.Errorf("claim due events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Complete marks a leased event done.
func (r *Repo) Complete(ctx context.Context, id uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.q)

	tag, err := q.Exec(ctx,
		`UPDATE cycle_events SET status = 'done', leased_until = NULL
		 WHERE id = $1 AND status = 'leased'`, id)
	if err != nil {
		return postgres.MapError(err, "cycle event", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cycle event %s: complete: %w", id, domain.ErrInvalidState)
	}
	return nil
}

// Release returns a leased event to pending for a transport-level retry.
// Events past maxAttempts go to the dead letter state instead of looping
// forever.
func (r *Repo) Release(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	q := postgres.QuerierFromCtx(ctx, r.q)

	tag, err := q.Exec(ctx,
		`UPDATE cycle_events
		 SET status = CASE WHEN attempts >= $2 THEN 'dead_letter' ELSE 'pending' END,
		     leased_until = NULL
		 WHERE id = $1 AND status = 'leased'`, id, maxAttempts)
	if err != nil {
		return postgres.MapError(err, "cycle event", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cycle event %s: release: %w", id, domain.ErrInvalidState)
	}
	return nil
}

// ReleaseExpired returns events whose lease ran out (crashed worker) to
// pending. Called periodically by the sweep.
func (r *Repo) ReleaseExpired(ctx context.Context, now time.Time, maxAttempts int) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	tag, err := q.Exec(ctx,
		`UPDATE cycle_events
		 SET status = CASE WHEN attempts >= $2 THEN 'dead_letter' ELSE 'pending' END,
		     leased_until = NULL
		 WHERE status = 'leased' AND leased_until < $1`, now.UTC(), maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("release expired events: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CancelPending cancels every pending event for a persona. This is the STOP
// half of the manual override's cancel-then-replace, and also what Pause uses
// so no scheduled continuation survives it.
func (r *Repo) CancelPending(ctx context.Context, personaID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	tag, err := q.Exec(ctx,
		`UPDATE cycle_events SET status = 'cancelled'
		 WHERE persona_id = $1 AND status = 'pending'`, personaID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending events: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func scanEvents(rows pgx.Rows) ([]domain.CycleEvent, error) {
	var events []domain.CycleEvent
	for rows.Next() {
		var e domain.CycleEvent
		if err := rows.Scan(&e.ID, &e.PersonaID, &e.Kind, &e.Status, &e.ScheduledFor,
			&e.Manual, &e.ManualLocation, &e.Attempts, &e.LeasedUntil, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		events = []domain.CycleEvent{}
	}

	return events, nil
}

// Package persona implements the Persona repository using PostgreSQL.
// All lifecycle mutations are single-row guarded updates: the WHERE clause
// re-checks the persisted status/activity, so a commit racing a concurrent
// stop/manual-trigger affects zero rows instead of resurrecting stale state.
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// Guard is the check-then-act condition for an activity transition. The
// persisted row must still match every set field for the write to apply.
type Guard struct {
	Status   domain.LifecycleStatus
	Activity domain.Activity
	CycleID  *uuid.UUID
}

// Snapshot is the complete activity state written by one transition.
// Transitions always write the full snapshot so observers never see a
// half-updated activity.
type Snapshot struct {
	Activity  domain.Activity
	Details   *string
	StartedAt time.Time
	CycleID   *uuid.UUID
}

// Repo provides persona persistence backed by PostgreSQL.
type Repo struct {
	q postgres.Querier
}

// New creates a new persona repository.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const personaColumns = `id, name, city, bio, lifecycle_status, lifecycle_started_at,
       current_activity, activity_details, activity_started_at, current_cycle_id,
       current_balance, daily_outfit, outfit_date, created_at, updated_at`

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// GetByID returns a persona by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Persona, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	row := q.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = $1`, id)

	p, err := scanPersona(row)
	if err != nil {
		return domain.Persona{}, postgres.MapError(err, "persona", id)
	}
	return p, nil
}

const listStuckSQL = `
SELECT ` + personaColumns + `
FROM personas
WHERE lifecycle_status = 'RUNNING'
  AND current_activity = 'CREATING'
  AND activity_started_at IS NOT NULL
  AND activity_started_at < $1
ORDER BY activity_started_at ASC`

// ListStuck returns running personas whose CREATING step started before the
// given threshold. Used by the recovery sweep.
func (r *Repo) ListStuck(ctx context.Context, olderThan time.Time) ([]domain.Persona, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	rows, err := q.Query(ctx, listStuckSQL, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list stuck personas: %w", err)
	}
	defer rows.Close()

	return scanPersonas(rows)
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create inserts a new persona in the NEW lifecycle state.
func (r *Repo) Create(ctx context.Context, p domain.Persona) (domain.Persona, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	now := time.Now().UTC().Truncate(time.Microsecond)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.LifecycleStatus = domain.LifecycleNew
	p.CurrentActivity = domain.ActivityNone
	p.CreatedAt = now
	p.UpdatedAt = now

	query := builder.Insert("personas").
		Columns("id", "name", "city", "bio", "lifecycle_status", "current_activity",
			"current_balance", "created_at", "updated_at").
		Values(p.ID, p.Name, p.City, p.Bio, p.LifecycleStatus, p.CurrentActivity,
			p.CurrentBalance, p.CreatedAt, p.UpdatedAt)

	sql, args, err := query.ToSql()
	if err != nil {
		return domain.Persona{}, fmt.Errorf("build persona insert: %w", err)
	}

	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return domain.Persona{}, postgres.MapError(err, "persona", p.ID)
	}

	return p, nil
}

const activateSQL = `
UPDATE personas
SET lifecycle_status     = 'RUNNING',
    lifecycle_started_at = COALESCE(lifecycle_started_at, $2),
    updated_at           = $2
WHERE id = $1
  AND lifecycle_status IN ('NEW', 'PAUSED')`

// Activate moves a persona to RUNNING. lifecycle_started_at is set only if it
// was never set before (COALESCE), which makes it immune to pause/resume.
// Returns domain.ErrInvalidState if the persona is not in NEW or PAUSED.
func (r *Repo) Activate(ctx context.Context, id uuid.UUID, now time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.q)

	tag, err := q.Exec(ctx, activateSQL, id, now.UTC())
	if err != nil {
		return postgres.MapError(err, "persona", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("persona %s: activate: %w", id, domain.ErrInvalidState)
	}

	return r.notifyChange(ctx, id, "activate")
}

// TransitionActivity writes a full activity snapshot guarded by the current
// persisted state. It returns false (and no error) when the guard does not
// match: the caller's step was superseded and must be dropped, not retried.
func (r *Repo) TransitionActivity(ctx context.Context, id uuid.UUID, guard Guard, snap Snapshot) (bool, error) {
	if err := domain.ValidateActivityTransition(guard.Activity, snap.Activity); err != nil {
		return false, err
	}

	q := postgres.QuerierFromCtx(ctx, r.q)

	update := builder.Update("personas").
		Set("current_activity", snap.Activity).
		Set("activity_details", snap.Details).
		Set("activity_started_at", snap.StartedAt.UTC()).
		Set("current_cycle_id", snap.CycleID).
		Set("updated_at", snap.StartedAt.UTC()).
		Where(sq.Eq{
			"id":               id,
			"lifecycle_status": guard.Status,
			"current_activity": guard.Activity,
		})
	if guard.CycleID != nil {
		update = update.Where(sq.Eq{"current_cycle_id": *guard.CycleID})
	}

	sql, args, err := update.ToSql()
	if err != nil {
		return false, fmt.Errorf("build activity transition: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return false, postgres.MapError(err, "persona", id)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := r.notifyChange(ctx, id, string(snap.Activity)); err != nil {
		return true, err
	}
	return true, nil
}

const setStatusSQL = `
UPDATE personas
SET lifecycle_status    = $2,
    current_activity    = '',
    activity_details    = NULL,
    activity_started_at = NULL,
    current_cycle_id    = NULL,
    updated_at          = $3
WHERE id = $1
  AND lifecycle_status = $4`

// Halt moves a persona out of `from` (to PAUSED or STOPPED) and clears the
// transient activity fields in the same atomic write. The from-status is part
// of the WHERE clause, so a halt racing another status change loses cleanly.
func (r *Repo) Halt(ctx context.Context, id uuid.UUID, from, to domain.LifecycleStatus, now time.Time) error {
	if err := domain.ValidateLifecycleTransition(from, to); err != nil {
		return err
	}

	q := postgres.QuerierFromCtx(ctx, r.q)

	tag, err := q.Exec(ctx, setStatusSQL, id, to, now.UTC(), from)
	if err != nil {
		return postgres.MapError(err, "persona", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("persona %s: halt: %w", id, domain.ErrInvalidState)
	}

	return r.notifyChange(ctx, id, string(to))
}

const setOutfitSQL = `
UPDATE personas
SET daily_outfit = $2,
    outfit_date  = $3,
    updated_at   = $4
WHERE id = $1
  AND (outfit_date IS NULL OR outfit_date < $3)`

// SetOutfit stores the daily outfit, at most once per local day: a concurrent
// duplicate write for the same day affects zero rows and reports applied=false.
func (r *Repo) SetOutfit(ctx context.Context, id uuid.UUID, outfit domain.Outfit, localDay time.Time) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	body, err := json.Marshal(outfit)
	if err != nil {
		return false, fmt.Errorf("marshal outfit: %w", err)
	}

	tag, err := q.Exec(ctx, setOutfitSQL, id, body, localDay, time.Now().UTC())
	if err != nil {
		return false, postgres.MapError(err, "persona", id)
	}

	return tag.RowsAffected() > 0, nil
}

// applyWalletDeltaSQL inserts the ledger row and increments the balance in
// one statement. The ON CONFLICT arm makes a duplicated decision a no-op:
// no ledger row inserted means no balance increment.
const applyWalletDeltaSQL = `
WITH ins AS (
    INSERT INTO wallet_ledger (id, persona_id, idempotency_key, amount, reason, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (persona_id, idempotency_key) DO NOTHING
    RETURNING amount
)
UPDATE personas p
SET current_balance = p.current_balance + ins.amount,
    updated_at      = $6
FROM ins
WHERE p.id = $2`

// ApplyWalletDelta applies a decision's wallet delta exactly once, keyed by
// (persona, idempotency key). Returns applied=false on a duplicate.
// The balance is mutated only via this increment, never read-modify-write.
func (r *Repo) ApplyWalletDelta(ctx context.Context, id uuid.UUID, key string, amount float64, reason string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	tag, err := q.Exec(ctx, applyWalletDeltaSQL,
		uuid.New(), id, key, amount, reason, time.Now().UTC())
	if err != nil {
		return false, postgres.MapError(err, "persona", id)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *Repo) notifyChange(ctx context.Context, id uuid.UUID, change string) error {
	q := postgres.QuerierFromCtx(ctx, r.q)
	return postgres.Notify(ctx, q, postgres.ChannelPersonaChanges, map[string]string{
		"persona_id": id.String(),
		"change":     change,
	})
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

func scanPersona(row pgx.Row) (domain.Persona, error) {
	var (
		p          domain.Persona
		outfitJSON []byte
	)

	err := row.Scan(&p.ID, &p.Name, &p.City, &p.Bio, &p.LifecycleStatus,
		&p.LifecycleStartedAt, &p.CurrentActivity, &p.ActivityDetails,
		&p.ActivityStartedAt, &p.CurrentCycleID, &p.CurrentBalance,
		&outfitJSON, &p.OutfitDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Persona{}, err
	}

	if len(outfitJSON) > 0 {
		var o domain.Outfit
		if err := json.Unmarshal(outfitJSON, &o); err != nil {
			return domain.Persona{}, fmt.Errorf("unmarshal outfit: %w", err)
		}
		p.DailyOutfit = &o
	}

	return p, nil
}

func scanPersonas(rows pgx.Rows) ([]domain.Persona, error) {
	var personas []domain.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if personas == nil {
		personas = []domain.Persona{}
	}

	return personas, nil
}

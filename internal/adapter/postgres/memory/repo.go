// Package memory implements the append-only Memory repository.
package memory

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

// Repo provides memory persistence backed by PostgreSQL.
type Repo struct {
	q postgres.Querier
}

// New creates a new memory repository.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Create appends a memory. When idempotencyKey is non-empty the insert is
// deduplicated on (persona_id, idempotency_key): a duplicate delivery of the
// same cycle step inserts nothing and reports created=false without error.
func (r *Repo) Create(ctx context.Context, m domain.Memory, idempotencyKey string) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}

	q := postgres.QuerierFromCtx(ctx, r.q)

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}

	insert := builder.Insert("memories").
		Columns("id", "persona_id", "kind", "description", "importance", "idempotency_key", "created_at").
		Values(m.ID, m.PersonaID, m.Kind, m.Description, m.Importance, key, m.CreatedAt).
		Suffix("ON CONFLICT (persona_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING")

	sql, args, err := insert.ToSql()
	if err != nil {
		return false, fmt.Errorf("build memory insert: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return false, postgres.MapError(err, "memory", m.ID)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := postgres.Notify(ctx, q, postgres.ChannelMemoryInserts, map[string]string{
		"persona_id": m.PersonaID.String(),
		"memory_id":  m.ID.String(),
	}); err != nil {
		return true, err
	}

	return true, nil
}

const listRecentSQL = `
SELECT id, persona_id, kind, description, importance, created_at
FROM memories
WHERE persona_id = $1
ORDER BY created_at DESC
LIMIT $2`

// ListRecent returns the newest memories first, for display and for the
// decision context window.
func (r *Repo) ListRecent(ctx context.Context, personaID uuid.UUID, limit int) ([]domain.Memory, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	rows, err := q.Query(ctx, listRecentSQL, personaID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent memories: %w", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

func scanMemories(rows pgx.Rows) ([]domain.Memory, error) {
	var memories []domain.Memory
	for rows.Next() {
		var m domain.Memory
		if err := rows.Scan(&m.ID, &m.PersonaID, &m.Kind, &m.Description,
			&m.Importance, &m.CreatedAt); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if memories == nil {
		memories = []domain.Memory{}
	}

	return memories, nil
}

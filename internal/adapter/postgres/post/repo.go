// Package post implements the append-only Post repository.
package post

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

// Repo provides post persistence backed by PostgreSQL.
type Repo struct {
	q postgres.Querier
}

// New creates a new post repository.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Create appends a post, deduplicated on (persona_id, idempotency_key) so a
// replayed CREATING step cannot publish twice. Returns created=false on a
// duplicate.
func (r *Repo) Create(ctx context.Context, p domain.Post, idempotencyKey string) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	q := postgres.QuerierFromCtx(ctx, r.q)

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}

	insert := builder.Insert("posts").
		Columns("id", "persona_id", "type", "content_url", "caption", "idempotency_key", "posted_at").
		Values(p.ID, p.PersonaID, p.Type, p.ContentURL, p.Caption, key, p.PostedAt).
		Suffix("ON CONFLICT (persona_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING")

	sql, args, err := insert.ToSql()
	if err != nil {
		return false, fmt.Errorf("build post insert: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return false, postgres.MapError(err, "post", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := postgres.Notify(ctx, q, postgres.ChannelPostInserts, map[string]string{
		"persona_id": p.PersonaID.String(),
		"post_id":    p.ID.String(),
	}); err != nil {
		return true, err
	}

	return true, nil
}

const listByPersonaSQL = `
SELECT id, persona_id, type, content_url, caption, posted_at
FROM posts
WHERE persona_id = $1
ORDER BY posted_at DESC
LIMIT $2`

// ListByPersona returns the newest posts first.
func (r *Repo) ListByPersona(ctx context.Context, personaID uuid.UUID, limit int) ([]domain.Post, error) {
	q := postgres.QuerierFromCtx(ctx, r.q)

	rows, err := q.Query(ctx, listByPersonaSQL, personaID, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows pgx.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.PersonaID, &p.Type, &p.ContentURL,
			&p.Caption, &p.PostedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if posts == nil {
		posts = []domain.Post{}
	}

	return posts, nil
}

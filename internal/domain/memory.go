package domain

import (
	"time"

	"github.com/google/uuid"
)

// Memory is one logged life event. The scheduler only ever appends memories;
// nothing updates or deletes them.
type Memory struct {
	ID          uuid.UUID
	PersonaID   uuid.UUID
	Kind        MemoryKind
	Description string
	Importance  int
	CreatedAt   time.Time
}

// Validate rejects out-of-range importance instead of clamping:
// a bad value here is a caller bug, not model noise.
func (m *Memory) Validate() error {
	if m.Description == "" {
		return NewValidationError("description", "is required")
	}
	if m.Importance < 1 || m.Importance > 5 {
		return NewValidationError("importance", "must be between 1 and 5")
	}
	if !m.Kind.IsValid() {
		return NewValidationError("kind", "unknown memory kind")
	}
	return nil
}

// Post is a published content record, created only when a content-worthy
// cycle's generation succeeded.
type Post struct {
	ID         uuid.UUID
	PersonaID  uuid.UUID
	Type       string
	ContentURL string
	Caption    *string
	PostedAt   time.Time
}

func (p *Post) Validate() error {
	if p.ContentURL == "" {
		return NewValidationError("content_url", "is required")
	}
	if p.Type == "" {
		return NewValidationError("type", "is required")
	}
	return nil
}

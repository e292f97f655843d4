package domain

import (
	"time"

	"github.com/google/uuid"
)

// CycleEvent is the unit of scheduling: one durable, at-least-once message
// telling the scheduler to progress a persona. Duplicate and out-of-order
// delivery for the same persona must be tolerated by handlers.
type CycleEvent struct {
	ID             uuid.UUID
	PersonaID      uuid.UUID
	Kind           EventKind
	Status         EventStatus
	ScheduledFor   time.Time
	Manual         bool
	ManualLocation *ManualLocation
	Attempts       int
	LeasedUntil    *time.Time
	CreatedAt      time.Time
}

func (e *CycleEvent) Validate() error {
	if !e.Kind.IsValid() {
		return NewValidationError("kind", "unknown event kind")
	}
	if e.ManualLocation != nil && !e.ManualLocation.IsValid() {
		return NewValidationError("manual_location", "must be home or outside")
	}
	if e.ManualLocation != nil && !e.Manual {
		return NewValidationError("manual_location", "set on a non-manual event")
	}
	return nil
}

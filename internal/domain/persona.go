package domain

import (
	"time"

	"github.com/google/uuid"
)

// Persona is the aggregate root for one autonomous digital persona.
// The lifecycle scheduler owns the transient activity fields; user-facing
// APIs own the profile fields.
type Persona struct {
	ID                 uuid.UUID
	Name               string
	City               string
	Bio                *string
	LifecycleStatus    LifecycleStatus
	LifecycleStartedAt *time.Time
	CurrentActivity    Activity
	ActivityDetails    *string
	ActivityStartedAt  *time.Time
	CurrentCycleID     *uuid.UUID
	CurrentBalance     float64
	DailyOutfit        *Outfit
	OutfitDate         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the lifecycle is currently running.
// It is a convenience mirror of LifecycleStatus for simpler callers.
func (p *Persona) IsActive() bool {
	return p.LifecycleStatus == LifecycleRunning
}

// HasStarted reports whether the persona was ever activated.
// Pause does not clear LifecycleStartedAt, so this distinguishes
// "never started" from "paused".
func (p *Persona) HasStarted() bool {
	return p.LifecycleStartedAt != nil
}

// Outfit is the persona's daily outfit, regenerated at most once per wake cycle.
type Outfit struct {
	Top       string `json:"top"`
	Bottom    string `json:"bottom"`
	Shoes     string `json:"shoes"`
	Accessory string `json:"accessory,omitempty"`
	Vibe      string `json:"vibe,omitempty"`
}

// NeedsOutfit reports whether the daily outfit should be regenerated
// for the given local day.
func (p *Persona) NeedsOutfit(localDay time.Time) bool {
	if p.DailyOutfit == nil || p.OutfitDate == nil {
		return true
	}
	y1, m1, d1 := p.OutfitDate.Date()
	y2, m2, d2 := localDay.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

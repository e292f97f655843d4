package scheduler

import (
	"time"

	"github.com/pulseworks/vita-backend/internal/config"
	"github.com/pulseworks/vita-backend/internal/domain"
	"github.com/pulseworks/vita-backend/internal/timezone"
)

// Policy holds the pure timing rules of the lifecycle: day/night
// classification, initial state on activation, and rest clamping.
type Policy struct {
	cfg config.SchedulerConfig
}

// NewPolicy creates a timing policy from scheduler config.
func NewPolicy(cfg config.SchedulerConfig) Policy {
	return Policy{cfg: cfg}
}

// IsNightHour reports whether a local hour falls in the night window.
// The window may wrap midnight (the default 23→7 does).
func (p Policy) IsNightHour(hour int) bool {
	start, end := p.cfg.NightStartHour, p.cfg.NightEndHour
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// InitialState decides where a freshly activated persona begins: asleep until
// the next local wake hour when activated at night, otherwise planning now.
func (p Policy) InitialState(city string, now time.Time) (domain.Activity, time.Time) {
	if p.IsNightHour(timezone.LocalHour(city, now)) {
		return domain.ActivitySleeping, timezone.NextLocalHour(city, now, p.cfg.WakeHour)
	}
	return domain.ActivityPlanning, now
}

// ClampRest bounds a suggested rest duration to the configured sane range.
func (p Policy) ClampRest(d time.Duration) time.Duration {
	if d < p.cfg.RestMin {
		return p.cfg.RestMin
	}
	if d > p.cfg.RestMax {
		return p.cfg.RestMax
	}
	return d
}

// NextWake computes the end-of-cycle state and the next wake instant.
// If the rest period would end inside the night window the persona sleeps
// through to the wake hour instead of re-entering planning at 3am.
func (p Policy) NextWake(city string, now time.Time, rest time.Duration) (domain.Activity, time.Time) {
	target := now.Add(rest)
	if p.IsNightHour(timezone.LocalHour(city, target)) {
		return domain.ActivitySleeping, timezone.NextLocalHour(city, target, p.cfg.WakeHour)
	}
	return domain.ActivityResting, target
}

package scheduler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres/persona"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// RecoverPersona settles a persona stuck in CREATING: record a recovery
// memory, enqueue a delayed continuation, and move it to RESTING through the
// usual guarded commit. The composer is never re-invoked and no wallet delta
// is touched; if the original worker is merely slow, its late commits lose at
// the guards.
func (s *Scheduler) RecoverPersona(ctx context.Context, p domain.Persona) (bool, error) {
	if !p.IsActive() || p.CurrentActivity != domain.ActivityCreating || p.CurrentCycleID == nil {
		return false, nil
	}
	cycleID := *p.CurrentCycleID
	now := s.clock.Now()

	mem := domain.Memory{
		PersonaID:   p.ID,
		Kind:        domain.MemoryRecovery,
		Description: "an interrupted activity was closed out by recovery",
		Importance:  1,
	}
	if _, err := s.memories.Create(ctx, mem, cycleKey(cycleID, "recovered")); err != nil {
		return false, err
	}

	// Same enqueue-then-commit order as a normal cycle end.
	if _, err := s.queue.Enqueue(ctx, domain.CycleEvent{
		ID:           nextEventID(cycleID),
		PersonaID:    p.ID,
		Kind:         domain.EventContinue,
		ScheduledFor: now.Add(s.cfg.RecoveryRest),
	}); err != nil {
		return false, err
	}

	guard := persona.Guard{
		Status:   domain.LifecycleRunning,
		Activity: domain.ActivityCreating,
		CycleID:  &cycleID,
	}
	applied, err := s.personas.TransitionActivity(ctx, p.ID, guard, persona.Snapshot{
		Activity:  domain.ActivityResting,
		Details:   p.ActivityDetails,
		StartedAt: now,
		CycleID:   &cycleID,
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.log.InfoContext(ctx, "recovered stuck persona",
			slog.String("persona_id", p.ID.String()),
			slog.String("cycle_id", cycleID.String()))
	}
	return applied, nil
}

// Recover recovers a single persona on demand, regardless of how long it has
// been stuck. A persona that is not stuck in CREATING is a no-op.
func (s *Scheduler) Recover(ctx context.Context, personaID uuid.UUID) (bool, error) {
	p, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return false, err
	}
	return s.RecoverPersona(ctx, p)
}

// RecoverAll sweeps every persona stuck in CREATING past the configured
// threshold. Returns how many were recovered; per-persona failures are logged
// and skipped so one bad row cannot stall the sweep.
func (s *Scheduler) RecoverAll(ctx context.Context) (int, error) {
	stuck, err := s.personas.ListStuck(ctx, s.clock.Now().Add(-s.cfg.StuckThreshold))
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, p := range stuck {
		applied, err := s.RecoverPersona(ctx, p)
		if err != nil {
			s.log.ErrorContext(ctx, "recover persona",
				slog.String("persona_id", p.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if applied {
			recovered++
		}
	}
	return recovered, nil
}

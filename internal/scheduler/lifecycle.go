package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres/persona"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// Start activates a persona's lifecycle. Activation at night parks the
// persona in SLEEPING until the next local wake hour; daytime activation
// plans immediately. lifecycle_started_at is set exactly once, so a
// pause/start round trip does not move it.
func (s *Scheduler) Start(ctx context.Context, personaID uuid.UUID) error {
	p, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return err
	}
	if p.LifecycleStatus != domain.LifecycleNew && p.LifecycleStatus != domain.LifecyclePaused {
		return fmt.Errorf("persona %s: start from %s: %w",
			personaID, p.LifecycleStatus, domain.ErrInvalidState)
	}

	now := s.clock.Now()
	activity, at := s.policy.InitialState(p.City, now)

	// One transaction: a persona is never left RUNNING without its first
	// event. The enqueue comes first so that even without transactional
	// batching a failed activation leaves nothing behind but a no-op event.
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.queue.Enqueue(ctx, domain.CycleEvent{
			PersonaID:    personaID,
			Kind:         domain.EventStart,
			ScheduledFor: at,
		}); err != nil {
			return err
		}

		if err := s.personas.Activate(ctx, personaID, now); err != nil {
			return err
		}

		if activity == domain.ActivitySleeping {
			guard := persona.Guard{Status: domain.LifecycleRunning, Activity: domain.ActivityNone}
			if _, err := s.personas.TransitionActivity(ctx, personaID, guard, persona.Snapshot{
				Activity:  domain.ActivitySleeping,
				StartedAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "lifecycle started",
		slog.String("persona_id", personaID.String()),
		slog.String("initial_activity", activity.String()),
		slog.Time("first_event_at", at))
	return nil
}

// Pause halts a running lifecycle. The status flip and the pending-event
// cancellation commit in one transaction, so no scheduled continuation
// survives a pause. A step already in flight dies at its next guarded commit.
func (s *Scheduler) Pause(ctx context.Context, personaID uuid.UUID) error {
	now := s.clock.Now()
	var cancelled int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.personas.Halt(ctx, personaID, domain.LifecycleRunning, domain.LifecyclePaused, now); err != nil {
			return err
		}
		var err error
		cancelled, err = s.queue.CancelPending(ctx, personaID)
		return err
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "lifecycle paused",
		slog.String("persona_id", personaID.String()),
		slog.Int("cancelled_events", cancelled))
	return nil
}

// Stop terminates a lifecycle from RUNNING or PAUSED. STOPPED is terminal.
func (s *Scheduler) Stop(ctx context.Context, personaID uuid.UUID) error {
	p, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	var cancelled int
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.personas.Halt(ctx, personaID, p.LifecycleStatus, domain.LifecycleStopped, now); err != nil {
			return err
		}
		var err error
		cancelled, err = s.queue.CancelPending(ctx, personaID)
		return err
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "lifecycle stopped",
		slog.String("persona_id", personaID.String()),
		slog.Int("cancelled_events", cancelled))
	return nil
}

// ManualTrigger overrides the autonomous schedule: cancel whatever is
// pending, then enqueue a manual START that fires near-immediately with the
// requested location hint. If a cycle is mid-flight the manual event resumes
// it with the hint instead of opening a second one.
func (s *Scheduler) ManualTrigger(ctx context.Context, personaID uuid.UUID, location domain.ManualLocation) error {
	if !location.IsValid() {
		return domain.NewValidationError("location", "must be home or outside")
	}

	p, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return err
	}
	if !p.IsActive() {
		return fmt.Errorf("persona %s: manual trigger while %s: %w",
			personaID, p.LifecycleStatus, domain.ErrInvalidState)
	}

	// Cancel-then-replace is atomic: either the old schedule is gone and the
	// manual event exists, or neither happened.
	now := s.clock.Now()
	var cancelled int
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cancelled, err = s.queue.CancelPending(ctx, personaID)
		if err != nil {
			return err
		}
		_, err = s.queue.Enqueue(ctx, domain.CycleEvent{
			PersonaID:      personaID,
			Kind:           domain.EventStart,
			ScheduledFor:   now.Add(s.cfg.ManualRest),
			Manual:         true,
			ManualLocation: &location,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "manual trigger",
		slog.String("persona_id", personaID.String()),
		slog.String("location", location.String()),
		slog.Int("cancelled_events", cancelled))
	return nil
}

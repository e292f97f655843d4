package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres/persona"
	"github.com/pulseworks/vita-backend/internal/composer"
	"github.com/pulseworks/vita-backend/internal/director"
	"github.com/pulseworks/vita-backend/internal/domain"
	"github.com/pulseworks/vita-backend/internal/timezone"
)

// maxStepsPerEvent bounds how many state machine steps one event may drive.
// A full cycle is wake → plan → create → rest; anything past that means the
// persisted state is looping and the event must not spin with it.
const maxStepsPerEvent = 6

// fallbackRest is used when a cycle's decided rest duration is no longer
// available, e.g. when a CREATING step is resumed after a crash.
const fallbackRest = 2 * time.Hour

const (
	trendsCategory    = "lifestyle"
	trendsCountry     = "US"
	recentMemoryLimit = 10
)

// cycleKey builds a cycle-scoped idempotency key. Every side effect of a
// cycle is keyed this way so redelivered events re-apply nothing.
func cycleKey(cycleID uuid.UUID, suffix string) string {
	return cycleID.String() + "/" + suffix
}

// handle processes one claimed cycle event. Returning nil completes the
// event; returning an error releases it for a transport-level retry, which is
// safe because every commit is guarded and every effect is idempotent.
func (s *Scheduler) handle(ctx context.Context, ev domain.CycleEvent) error {
	p, err := s.personas.GetByID(ctx, ev.PersonaID)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.WarnContext(ctx, "event for unknown persona, dropping",
			slog.String("event_id", ev.ID.String()),
			slog.String("persona_id", ev.PersonaID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	if ev.Kind == domain.EventStop {
		return s.handleStop(ctx, p)
	}

	// A pause or stop that committed before this event was claimed leaves
	// nothing to do. The event is consumed, never processed.
	if !p.IsActive() {
		return nil
	}

	return s.runCycle(ctx, ev, p)
}

func (s *Scheduler) handleStop(ctx context.Context, p domain.Persona) error {
	if !p.IsActive() {
		return nil
	}
	err := s.personas.Halt(ctx, p.ID, p.LifecycleStatus, domain.LifecycleStopped, s.clock.Now())
	if errors.Is(err, domain.ErrInvalidState) {
		return nil
	}
	return err
}

// runCycle advances the persona through as much of {wake → plan → create →
// rest} as this event is responsible for. No in-memory state is trusted
// between steps: the persisted activity decides the resume point, so a
// redelivered event picks up exactly where the crashed attempt last
// committed.
func (s *Scheduler) runCycle(ctx context.Context, ev domain.CycleEvent, p domain.Persona) error {
	// restHint carries the decided rest duration from plan to rest within a
	// single delivery. After a crash it is lost and the rest step falls back
	// to a neutral duration.
	restHint := time.Duration(0)

	for i := 0; i < maxStepsPerEvent; i++ {
		var (
			advanced bool
			err      error
		)

		switch p.CurrentActivity {
		case domain.ActivityNone, domain.ActivitySleeping, domain.ActivityResting:
			if s.isStaleWake(ev, p) {
				return nil
			}
			advanced, err = s.wakeStep(ctx, p)
		case domain.ActivityPlanning:
			advanced, restHint, err = s.planStep(ctx, ev, p)
		case domain.ActivityCreating:
			err = s.createStep(ctx, ev, p, restHint)
		case domain.ActivityActive:
			err = s.finishCycle(ctx, p, fallbackRest, p.ActivityDetails)
		default:
			return fmt.Errorf("persona %s: unknown activity %q: %w",
				p.ID, p.CurrentActivity, domain.ErrInvalidState)
		}
		if err != nil {
			return err
		}
		if !advanced {
			return nil
		}

		p, err = s.personas.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if !p.IsActive() {
			return nil
		}
	}

	return nil
}

// isStaleWake filters duplicate and superseded wake-ups. A resting or
// sleeping persona is only woken by its own continuation event or by a manual
// trigger; anything else is an old delivery whose cycle already ended.
func (s *Scheduler) isStaleWake(ev domain.CycleEvent, p domain.Persona) bool {
	if p.CurrentCycleID == nil || ev.Manual {
		return false
	}
	return ev.ID != nextEventID(*p.CurrentCycleID)
}

// wakeStep opens a new cycle: a fresh cycle id and a guarded transition to
// PLANNING. A duplicate delivery finds the guard already moved and drops.
func (s *Scheduler) wakeStep(ctx context.Context, p domain.Persona) (bool, error) {
	cycleID := uuid.New()
	now := s.clock.Now()

	guard := persona.Guard{
		Status:   domain.LifecycleRunning,
		Activity: p.CurrentActivity,
		CycleID:  p.CurrentCycleID,
	}
	applied, err := s.personas.TransitionActivity(ctx, p.ID, guard, persona.Snapshot{
		Activity:  domain.ActivityPlanning,
		StartedAt: now,
		CycleID:   &cycleID,
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.log.InfoContext(ctx, "cycle started",
			slog.String("persona_id", p.ID.String()),
			slog.String("cycle_id", cycleID.String()))
	}
	return applied, nil
}

// planStep asks the director for one decision, records it, applies the wallet
// delta, and commits the next activity. Replays are absorbed by the
// cycle-scoped idempotency keys and the guarded commit.
func (s *Scheduler) planStep(ctx context.Context, ev domain.CycleEvent, p domain.Persona) (bool, time.Duration, error) {
	if p.CurrentCycleID == nil {
		return false, 0, fmt.Errorf("persona %s: planning without a cycle id: %w",
			p.ID, domain.ErrInvalidState)
	}
	cycleID := *p.CurrentCycleID
	now := s.clock.Now()

	s.ensureOutfit(ctx, &p, now)

	recent, err := s.memories.ListRecent(ctx, p.ID, recentMemoryLimit)
	if err != nil {
		s.log.WarnContext(ctx, "list recent memories",
			slog.String("persona_id", p.ID.String()),
			slog.String("error", err.Error()))
		recent = nil
	}

	dec := s.decide(ctx, director.Request{
		Persona:        p,
		CycleID:        cycleID,
		LocalHour:      timezone.LocalHour(p.City, now),
		Weather:        s.weather.Current(ctx, p.City),
		Trends:         s.trends.Top(ctx, trendsCategory, trendsCountry),
		RecentMemories: recent,
		ManualLocation: ev.ManualLocation,
	})

	mem := domain.Memory{
		PersonaID:   p.ID,
		Kind:        domain.MemoryDecision,
		Description: dec.Title + ": " + dec.Description,
		Importance:  dec.ClampImportance(),
	}
	if _, err := s.memories.Create(ctx, mem, cycleKey(cycleID, "decision")); err != nil {
		return false, 0, err
	}

	if dec.WalletDelta != nil {
		applied, err := s.personas.ApplyWalletDelta(ctx, p.ID, cycleKey(cycleID, "wallet"),
			dec.WalletDelta.Amount, dec.WalletDelta.Reason)
		if err != nil {
			return false, 0, err
		}
		if !applied {
			s.log.DebugContext(ctx, "wallet delta already applied",
				slog.String("cycle_id", cycleID.String()))
		}
	}

	if !dec.ContentWorthy {
		return false, 0, s.finishCycle(ctx, p, dec.RestFor, &dec.Description)
	}

	details := dec.Description
	guard := persona.Guard{
		Status:   domain.LifecycleRunning,
		Activity: domain.ActivityPlanning,
		CycleID:  &cycleID,
	}
	applied, err := s.personas.TransitionActivity(ctx, p.ID, guard, persona.Snapshot{
		Activity:  domain.ActivityCreating,
		Details:   &details,
		StartedAt: now,
		CycleID:   &cycleID,
	})
	if err != nil {
		return false, 0, err
	}
	return applied, dec.RestFor, nil
}

// decide runs the director with the configured timeout and falls back to the
// ambient decision on any failure. Planning never stalls on the model.
func (s *Scheduler) decide(ctx context.Context, req director.Request) domain.Decision {
	dec, err := s.director.Decide(ctx, req)
	if err != nil {
		s.log.WarnContext(ctx, "decision engine failed, using ambient fallback",
			slog.String("persona_id", req.Persona.ID.String()),
			slog.String("error", err.Error()))
		return director.AmbientDecision(req.LocalHour)
	}
	return dec
}

// createStep runs content generation at most once per cycle. A redelivered
// event means a previous attempt may already have reached the composer, so
// the retry settles the cycle without generating again. Generation failure is
// never fatal: the cycle ends in RESTING either way, with a memory recording
// what happened.
func (s *Scheduler) createStep(ctx context.Context, ev domain.CycleEvent, p domain.Persona, restHint time.Duration) error {
	if p.CurrentCycleID == nil {
		return fmt.Errorf("persona %s: creating without a cycle id: %w",
			p.ID, domain.ErrInvalidState)
	}
	cycleID := *p.CurrentCycleID
	if restHint <= 0 {
		restHint = fallbackRest
	}

	activity := ""
	if p.ActivityDetails != nil {
		activity = *p.ActivityDetails
	}

	if ev.Attempts > 1 {
		mem := domain.Memory{
			PersonaID:   p.ID,
			Kind:        domain.MemorySystem,
			Description: "content creation was interrupted and skipped on retry",
			Importance:  1,
		}
		if _, err := s.memories.Create(ctx, mem, cycleKey(cycleID, "compose-skipped")); err != nil {
			return err
		}
		return s.finishCycle(ctx, p, restHint, p.ActivityDetails)
	}

	res, err := s.composer.Compose(ctx, composer.Request{Prompt: composePrompt(p, activity)})
	switch {
	case err == nil:
		post := domain.Post{
			PersonaID:  p.ID,
			Type:       "image",
			ContentURL: res.URL,
			PostedAt:   s.clock.Now(),
		}
		if res.Caption != "" {
			post.Caption = &res.Caption
		}
		created, err := s.posts.Create(ctx, post, cycleKey(cycleID, "post"))
		if err != nil {
			return err
		}
		if created {
			s.log.InfoContext(ctx, "content posted",
				slog.String("persona_id", p.ID.String()),
				slog.String("cycle_id", cycleID.String()))
		}
		mem := domain.Memory{
			PersonaID:   p.ID,
			Kind:        domain.MemoryContent,
			Description: "posted about: " + activity,
			Importance:  3,
		}
		if _, err := s.memories.Create(ctx, mem, cycleKey(cycleID, "posted")); err != nil {
			return err
		}

	case errors.Is(err, composer.ErrDisabled):
		mem := domain.Memory{
			PersonaID:   p.ID,
			Kind:        domain.MemorySystem,
			Description: "content generation is disabled, nothing was posted",
			Importance:  1,
		}
		if _, err := s.memories.Create(ctx, mem, cycleKey(cycleID, "compose-skipped")); err != nil {
			return err
		}

	default:
		s.log.WarnContext(ctx, "content generation failed",
			slog.String("persona_id", p.ID.String()),
			slog.String("cycle_id", cycleID.String()),
			slog.String("error", err.Error()))
		mem := domain.Memory{
			PersonaID:   p.ID,
			Kind:        domain.MemorySystem,
			Description: "content creation failed: " + err.Error(),
			Importance:  2,
		}
		if _, err := s.memories.Create(ctx, mem, cycleKey(cycleID, "compose-failed")); err != nil {
			return err
		}
	}

	return s.finishCycle(ctx, p, restHint, p.ActivityDetails)
}

// finishCycle ends the active cycle: enqueue the continuation, then commit
// the rest state. The continuation is durably enqueued BEFORE the rest commit,
// so a RESTING or SLEEPING row always has its wake event on the queue; a
// crash in between redelivers into an idempotent re-enqueue.
func (s *Scheduler) finishCycle(ctx context.Context, p domain.Persona, rest time.Duration, details *string) error {
	if p.CurrentCycleID == nil {
		return fmt.Errorf("persona %s: finishing without a cycle id: %w",
			p.ID, domain.ErrInvalidState)
	}
	cycleID := *p.CurrentCycleID
	now := s.clock.Now()

	rest = s.policy.ClampRest(rest)
	next, wakeAt := s.policy.NextWake(p.City, now, rest)

	if _, err := s.queue.Enqueue(ctx, domain.CycleEvent{
		ID:           nextEventID(cycleID),
		PersonaID:    p.ID,
		Kind:         domain.EventContinue,
		ScheduledFor: wakeAt,
	}); err != nil {
		return err
	}

	guard := persona.Guard{
		Status:   domain.LifecycleRunning,
		Activity: p.CurrentActivity,
		CycleID:  &cycleID,
	}
	applied, err := s.personas.TransitionActivity(ctx, p.ID, guard, persona.Snapshot{
		Activity:  domain.ActivityResting,
		Details:   details,
		StartedAt: now,
		CycleID:   &cycleID,
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if next == domain.ActivitySleeping {
		guard.Activity = domain.ActivityResting
		if _, err := s.personas.TransitionActivity(ctx, p.ID, guard, persona.Snapshot{
			Activity:  domain.ActivitySleeping,
			Details:   details,
			StartedAt: now,
			CycleID:   &cycleID,
		}); err != nil {
			return err
		}
	}

	s.log.InfoContext(ctx, "cycle finished",
		slog.String("persona_id", p.ID.String()),
		slog.String("cycle_id", cycleID.String()),
		slog.String("next", next.String()),
		slog.Time("wake_at", wakeAt))
	return nil
}

// composePrompt turns the decided activity into a generation prompt.
func composePrompt(p domain.Persona, activity string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s: %s", p.Name, p.City, activity)
	if p.DailyOutfit != nil {
		fmt.Fprintf(&b, ". Wearing %s, %s and %s",
			p.DailyOutfit.Top, p.DailyOutfit.Bottom, p.DailyOutfit.Shoes)
	}
	return b.String()
}

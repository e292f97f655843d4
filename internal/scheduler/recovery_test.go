package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pulseworks/vita-backend/internal/domain"
)

// stuckPersona seeds a RUNNING persona parked in CREATING since startedAgo.
func (f *fixture) stuckPersona(startedAgo time.Duration) domain.Persona {
	cycleID := uuid.New()
	startedAt := f.clock.Now().Add(-startedAgo)
	details := "shooting at the pier"
	startedLifecycle := startedAt.Add(-24 * time.Hour)

	p := domain.Persona{
		ID:                 uuid.New(),
		Name:               "Vita",
		City:               "Atlantis",
		LifecycleStatus:    domain.LifecycleRunning,
		LifecycleStartedAt: &startedLifecycle,
		CurrentActivity:    domain.ActivityCreating,
		ActivityDetails:    &details,
		ActivityStartedAt:  &startedAt,
		CurrentCycleID:     &cycleID,
	}
	f.personas.put(p)
	return p
}

func TestRecoverAll_SettlesStuckCreating(t *testing.T) {
	f := newFixture(t, noonUTC)
	p := f.stuckPersona(time.Hour)
	ctx := context.Background()

	recovered, err := f.s.RecoverAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, recovered)

	got := f.personas.get(p.ID)
	require.Equal(t, domain.ActivityResting, got.CurrentActivity)
	require.Equal(t, *p.CurrentCycleID, *got.CurrentCycleID, "recovery keeps the cycle")

	require.Len(t, f.memories.byKind(domain.MemoryRecovery), 1)
	require.Equal(t, 0, f.composer.invocations(), "recovery never re-invokes the composer")
	require.Empty(t, f.personas.ledger, "recovery never touches the wallet")

	pending := f.queue.pending(p.ID)
	require.Len(t, pending, 1)
	require.Equal(t, noonUTC.Add(3*time.Hour), pending[0].ScheduledFor)
	require.Equal(t, nextEventID(*p.CurrentCycleID), pending[0].ID)
}

func TestRecoverAll_IsIdempotent(t *testing.T) {
	f := newFixture(t, noonUTC)
	f.stuckPersona(time.Hour)
	ctx := context.Background()

	_, err := f.s.RecoverAll(ctx)
	require.NoError(t, err)

	recovered, err := f.s.RecoverAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, recovered, "an already recovered persona is not stuck anymore")
	require.Len(t, f.memories.byKind(domain.MemoryRecovery), 1)
}

func TestRecoverAll_IgnoresFreshCreating(t *testing.T) {
	f := newFixture(t, noonUTC)
	p := f.stuckPersona(10 * time.Minute)
	ctx := context.Background()

	recovered, err := f.s.RecoverAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, recovered)
	require.Equal(t, domain.ActivityCreating, f.personas.get(p.ID).CurrentActivity)
}

func TestRecover_OnDemandIgnoresThreshold(t *testing.T) {
	f := newFixture(t, noonUTC)
	p := f.stuckPersona(time.Minute)
	ctx := context.Background()

	recovered, err := f.s.Recover(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, recovered)
	require.Equal(t, domain.ActivityResting, f.personas.get(p.ID).CurrentActivity)
}

func TestRecover_NoOpWhenNotCreating(t *testing.T) {
	f := newFixture(t, noonUTC)
	p := f.addPersona()
	ctx := context.Background()

	recovered, err := f.s.Recover(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, recovered)
}

// After recovery, the continuation wakes the persona into a fresh cycle.
func TestRecovery_ContinuationWakesNormally(t *testing.T) {
	f := newFixture(t, noonUTC)
	p := f.stuckPersona(time.Hour)
	ctx := context.Background()

	_, err := f.s.RecoverAll(ctx)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Hour)
	f.drain()

	got := f.personas.get(p.ID)
	require.Equal(t, domain.ActivityResting, got.CurrentActivity)
	require.NotEqual(t, *p.CurrentCycleID, *got.CurrentCycleID, "wake opens a new cycle")
	require.Len(t, f.memories.byKind(domain.MemoryDecision), 1)
}

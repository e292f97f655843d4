package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres/persona"
	"github.com/pulseworks/vita-backend/internal/adapter/provider/trends"
	"github.com/pulseworks/vita-backend/internal/adapter/provider/weather"
	"github.com/pulseworks/vita-backend/internal/composer"
	"github.com/pulseworks/vita-backend/internal/director"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// The fakes below mirror the semantics of the PostgreSQL repositories:
// guarded writes check-then-act under a lock, idempotency keys dedupe, and
// the queue applies insert-if-absent on the event id.

type walletEntry struct {
	Key    string
	Amount float64
	Reason string
}

type fakePersonaStore struct {
	mu       sync.Mutex
	personas map[uuid.UUID]domain.Persona
	ledger   []walletEntry
	applied  map[string]bool
}

func newFakePersonaStore() *fakePersonaStore {
	return &fakePersonaStore{
		personas: make(map[uuid.UUID]domain.Persona),
		applied:  make(map[string]bool),
	}
}

func (f *fakePersonaStore) put(p domain.Persona) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personas[p.ID] = p
}

func (f *fakePersonaStore) get(id uuid.UUID) domain.Persona {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.personas[id]
}

func (f *fakePersonaStore) GetByID(_ context.Context, id uuid.UUID) (domain.Persona, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.personas[id]
	if !ok {
		return domain.Persona{}, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (f *fakePersonaStore) Activate(_ context.Context, id uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.personas[id]
	if !ok {
		return fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	if p.LifecycleStatus != domain.LifecycleNew && p.LifecycleStatus != domain.LifecyclePaused {
		return fmt.Errorf("persona %s: activate: %w", id, domain.ErrInvalidState)
	}
	p.LifecycleStatus = domain.LifecycleRunning
	if p.LifecycleStartedAt == nil {
		startedAt := now
		p.LifecycleStartedAt = &startedAt
	}
	f.personas[id] = p
	return nil
}

func (f *fakePersonaStore) TransitionActivity(_ context.Context, id uuid.UUID, guard persona.Guard, snap persona.Snapshot) (bool, error) {
	if err := domain.ValidateActivityTransition(guard.Activity, snap.Activity); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.personas[id]
	if !ok {
		return false, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	if p.LifecycleStatus != guard.Status || p.CurrentActivity != guard.Activity {
		return false, nil
	}
	if guard.CycleID != nil && (p.CurrentCycleID == nil || *p.CurrentCycleID != *guard.CycleID) {
		return false, nil
	}

	startedAt := snap.StartedAt
	p.CurrentActivity = snap.Activity
	p.ActivityDetails = snap.Details
	p.ActivityStartedAt = &startedAt
	p.CurrentCycleID = snap.CycleID
	f.personas[id] = p
	return true, nil
}

func (f *fakePersonaStore) Halt(_ context.Context, id uuid.UUID, from, to domain.LifecycleStatus, _ time.Time) error {
	if err := domain.ValidateLifecycleTransition(from, to); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.personas[id]
	if !ok {
		return fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	if p.LifecycleStatus != from {
		return fmt.Errorf("persona %s: halt: %w", id, domain.ErrInvalidState)
	}
	p.LifecycleStatus = to
	p.CurrentActivity = domain.ActivityNone
	p.ActivityDetails = nil
	p.ActivityStartedAt = nil
	p.CurrentCycleID = nil
	f.personas[id] = p
	return nil
}

func (f *fakePersonaStore) SetOutfit(_ context.Context, id uuid.UUID, outfit domain.Outfit, localDay time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.personas[id]
	if !ok {
		return false, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	if p.OutfitDate != nil && !p.OutfitDate.Before(localDay) {
		return false, nil
	}
	o := outfit
	day := localDay
	p.DailyOutfit = &o
	p.OutfitDate = &day
	f.personas[id] = p
	return true, nil
}

func (f *fakePersonaStore) ApplyWalletDelta(_ context.Context, id uuid.UUID, key string, amount float64, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.personas[id]
	if !ok {
		return false, fmt.Errorf("persona %s: %w", id, domain.ErrNotFound)
	}
	dedupe := id.String() + "|" + key
	if f.applied[dedupe] {
		return false, nil
	}
	f.applied[dedupe] = true
	f.ledger = append(f.ledger, walletEntry{Key: key, Amount: amount, Reason: reason})
	p.CurrentBalance += amount
	f.personas[id] = p
	return true, nil
}

func (f *fakePersonaStore) ListStuck(_ context.Context, olderThan time.Time) ([]domain.Persona, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stuck []domain.Persona
	for _, p := range f.personas {
		if p.LifecycleStatus == domain.LifecycleRunning &&
			p.CurrentActivity == domain.ActivityCreating &&
			p.ActivityStartedAt != nil && p.ActivityStartedAt.Before(olderThan) {
			stuck = append(stuck, p)
		}
	}
	return stuck, nil
}

type fakeMemoryStore struct {
	mu       sync.Mutex
	memories []domain.Memory
	keys     map[string]bool
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{keys: make(map[string]bool)}
}

func (f *fakeMemoryStore) Create(_ context.Context, m domain.Memory, key string) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if key != "" && f.keys[key] {
		return false, nil
	}
	if key != "" {
		f.keys[key] = true
	}
	m.ID = uuid.New()
	f.memories = append(f.memories, m)
	return true, nil
}

func (f *fakeMemoryStore) ListRecent(_ context.Context, personaID uuid.UUID, limit int) ([]domain.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Memory
	for i := len(f.memories) - 1; i >= 0 && len(out) < limit; i-- {
		if f.memories[i].PersonaID == personaID {
			out = append(out, f.memories[i])
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) byKind(kind domain.MemoryKind) []domain.Memory {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Memory
	for _, m := range f.memories {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type fakePostStore struct {
	mu    sync.Mutex
	posts []domain.Post
	keys  map[string]bool

	failNext bool
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{keys: make(map[string]bool)}
}

func (f *fakePostStore) Create(_ context.Context, p domain.Post, key string) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return false, fmt.Errorf("post insert: connection reset")
	}
	if key != "" && f.keys[key] {
		return false, nil
	}
	if key != "" {
		f.keys[key] = true
	}
	p.ID = uuid.New()
	f.posts = append(f.posts, p)
	return true, nil
}

func (f *fakePostStore) all() []domain.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Post(nil), f.posts...)
}

type fakeQueue struct {
	mu     sync.Mutex
	events map[uuid.UUID]domain.CycleEvent

	failNext bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{events: make(map[uuid.UUID]domain.CycleEvent)}
}

func (f *fakeQueue) Enqueue(_ context.Context, e domain.CycleEvent) (domain.CycleEvent, error) {
	if err := e.Validate(); err != nil {
		return domain.CycleEvent{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return domain.CycleEvent{}, fmt.Errorf("enqueue event: connection reset")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if existing, ok := f.events[e.ID]; ok {
		return existing, nil
	}
	e.Status = domain.EventPending
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeQueue) ClaimDue(_ context.Context, now time.Time, limit int, lease time.Duration) ([]domain.CycleEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []domain.CycleEvent
	for id, e := range f.events {
		if len(claimed) >= limit {
			break
		}
		if e.Status != domain.EventPending || e.ScheduledFor.After(now) {
			continue
		}
		e.Status = domain.EventLeased
		e.Attempts++
		leasedUntil := now.Add(lease)
		e.LeasedUntil = &leasedUntil
		f.events[id] = e
		claimed = append(claimed, e)
	}
	return claimed, nil
}

func (f *fakeQueue) Complete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || e.Status != domain.EventLeased {
		return fmt.Errorf("cycle event %s: complete: %w", id, domain.ErrInvalidState)
	}
	e.Status = domain.EventDone
	e.LeasedUntil = nil
	f.events[id] = e
	return nil
}

func (f *fakeQueue) Release(_ context.Context, id uuid.UUID, maxAttempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok || e.Status != domain.EventLeased {
		return fmt.Errorf("cycle event %s: release: %w", id, domain.ErrInvalidState)
	}
	if e.Attempts >= maxAttempts {
		e.Status = domain.EventDeadLetter
	} else {
		e.Status = domain.EventPending
	}
	e.LeasedUntil = nil
	f.events[id] = e
	return nil
}

func (f *fakeQueue) ReleaseExpired(_ context.Context, now time.Time, maxAttempts int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	released := 0
	for id, e := range f.events {
		if e.Status != domain.EventLeased || e.LeasedUntil == nil || !e.LeasedUntil.Before(now) {
			continue
		}
		if e.Attempts >= maxAttempts {
			e.Status = domain.EventDeadLetter
		} else {
			e.Status = domain.EventPending
		}
		e.LeasedUntil = nil
		f.events[id] = e
		released++
	}
	return released, nil
}

func (f *fakeQueue) CancelPending(_ context.Context, personaID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cancelled := 0
	for id, e := range f.events {
		if e.PersonaID != personaID || e.Status != domain.EventPending {
			continue
		}
		e.Status = domain.EventCancelled
		f.events[id] = e
		cancelled++
	}
	return cancelled, nil
}

func (f *fakeQueue) pending(personaID uuid.UUID) []domain.CycleEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CycleEvent
	for _, e := range f.events {
		if e.PersonaID == personaID && e.Status == domain.EventPending {
			out = append(out, e)
		}
	}
	return out
}

type fakeDirector struct {
	mu       sync.Mutex
	decide   func(req director.Request) (domain.Decision, error)
	requests []director.Request
}

func (f *fakeDirector) Decide(_ context.Context, req director.Request) (domain.Decision, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	decide := f.decide
	f.mu.Unlock()
	if decide == nil {
		return director.AmbientDecision(req.LocalHour), nil
	}
	return decide(req)
}

func (f *fakeDirector) calls() []director.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]director.Request(nil), f.requests...)
}

type fakeComposer struct {
	mu      sync.Mutex
	compose func(req composer.Request) (composer.Result, error)
	invoked int
}

func (f *fakeComposer) Compose(_ context.Context, req composer.Request) (composer.Result, error) {
	f.mu.Lock()
	f.invoked++
	compose := f.compose
	f.mu.Unlock()
	if compose == nil {
		return composer.Result{URL: "https://cdn.example.com/asset.jpg", Caption: "a day out"}, nil
	}
	return compose(req)
}

func (f *fakeComposer) invocations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invoked
}

type stubWeather struct{}

func (stubWeather) Current(_ context.Context, _ string) weather.Report {
	return weather.Report{
		Condition:   weather.ConditionClear,
		Description: "clear sky",
		TempC:       21,
	}
}

type stubTrends struct{}

func (stubTrends) Top(_ context.Context, _, _ string) []trends.Trend {
	return []trends.Trend{{Query: "street food markets"}}
}

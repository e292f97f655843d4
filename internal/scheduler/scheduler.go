// Package scheduler owns the per-persona lifecycle state machine.
//
// It consumes cycle events from a durable at-least-once queue and drives each
// persona through {sleep → plan → create/skip → rest → repeat}. No in-memory
// state survives between steps: the persisted persona row is the single
// source of truth, every commit is a guarded single-row update, and every
// side effect is idempotent per cycle. Duplicate or late events fall out at
// the guards instead of being processed twice.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres/persona"
	"github.com/pulseworks/vita-backend/internal/adapter/provider/trends"
	"github.com/pulseworks/vita-backend/internal/adapter/provider/weather"
	"github.com/pulseworks/vita-backend/internal/composer"
	"github.com/pulseworks/vita-backend/internal/config"
	"github.com/pulseworks/vita-backend/internal/director"
	"github.com/pulseworks/vita-backend/internal/domain"
)

// PersonaStore is the persona persistence surface the scheduler needs.
type PersonaStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Persona, error)
	Activate(ctx context.Context, id uuid.UUID, now time.Time) error
	TransitionActivity(ctx context.Context, id uuid.UUID, guard persona.Guard, snap persona.Snapshot) (bool, error)
	Halt(ctx context.Context, id uuid.UUID, from, to domain.LifecycleStatus, now time.Time) error
	SetOutfit(ctx context.Context, id uuid.UUID, outfit domain.Outfit, localDay time.Time) (bool, error)
	ApplyWalletDelta(ctx context.Context, id uuid.UUID, key string, amount float64, reason string) (bool, error)
	ListStuck(ctx context.Context, olderThan time.Time) ([]domain.Persona, error)
}

// MemoryStore is the append-only memory surface.
type MemoryStore interface {
	Create(ctx context.Context, m domain.Memory, idempotencyKey string) (bool, error)
	ListRecent(ctx context.Context, personaID uuid.UUID, limit int) ([]domain.Memory, error)
}

// PostStore is the append-only post surface.
type PostStore interface {
	Create(ctx context.Context, p domain.Post, idempotencyKey string) (bool, error)
}

// EventQueue is the durable cycle-event transport.
type EventQueue interface {
	Enqueue(ctx context.Context, e domain.CycleEvent) (domain.CycleEvent, error)
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]domain.CycleEvent, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Release(ctx context.Context, id uuid.UUID, maxAttempts int) error
	ReleaseExpired(ctx context.Context, now time.Time, maxAttempts int) (int, error)
	CancelPending(ctx context.Context, personaID uuid.UUID) (int, error)
}

// TxRunner runs a function inside one database transaction. Repos pick the
// transaction up from the context, so everything called within fn commits or
// rolls back together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// noTx satisfies TxRunner without a database; lifecycle commands then execute
// as independent writes. Used by tests against in-memory stores.
type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// WeatherProvider supplies current weather with total fallback behavior.
type WeatherProvider interface {
	Current(ctx context.Context, city string) weather.Report
}

// TrendsProvider supplies trending topics with total fallback behavior.
type TrendsProvider interface {
	Top(ctx context.Context, category, country string) []trends.Trend
}

// Scheduler sequences persona lifecycles.
type Scheduler struct {
	personas PersonaStore
	memories MemoryStore
	posts    PostStore
	queue    EventQueue
	director director.Director
	composer composer.Composer
	weather  WeatherProvider
	trends   TrendsProvider
	tx       TxRunner
	policy   Policy
	cfg      config.SchedulerConfig
	clock    clockwork.Clock
	log      *slog.Logger
}

// Deps bundles the scheduler's collaborators.
type Deps struct {
	Personas PersonaStore
	Memories MemoryStore
	Posts    PostStore
	Queue    EventQueue
	Director director.Director
	Composer composer.Composer
	Weather  WeatherProvider
	Trends   TrendsProvider
	Tx       TxRunner
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// New creates a Scheduler. A nil Clock defaults to the real clock; a nil Tx
// runs lifecycle commands without transactional batching.
func New(cfg config.SchedulerConfig, deps Deps) *Scheduler {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	tx := deps.Tx
	if tx == nil {
		tx = noTx{}
	}
	return &Scheduler{
		personas: deps.Personas,
		memories: deps.Memories,
		posts:    deps.Posts,
		queue:    deps.Queue,
		director: deps.Director,
		composer: deps.Composer,
		weather:  deps.Weather,
		trends:   deps.Trends,
		tx:       tx,
		policy:   NewPolicy(cfg),
		cfg:      cfg,
		clock:    clock,
		log:      deps.Logger.With("component", "scheduler"),
	}
}

// Run starts the event workers and the recovery sweep and blocks until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error { return s.workerLoop(ctx) })
	}
	g.Go(func() error { return s.sweepLoop(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) workerLoop(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			s.drainDue(ctx)
		}
	}
}

// drainDue claims and processes due events until the queue is empty.
func (s *Scheduler) drainDue(ctx context.Context) {
	for {
		events, err := s.queue.ClaimDue(ctx, s.clock.Now(), s.cfg.ClaimBatch, s.cfg.LeaseDuration)
		if err != nil {
			s.log.ErrorContext(ctx, "claim due events", slog.String("error", err.Error()))
			return
		}
		if len(events) == 0 {
			return
		}

		for _, ev := range events {
			if err := s.handle(ctx, ev); err != nil {
				s.log.ErrorContext(ctx, "event failed, releasing for retry",
					slog.String("event_id", ev.ID.String()),
					slog.String("persona_id", ev.PersonaID.String()),
					slog.Int("attempts", ev.Attempts),
					slog.String("error", err.Error()),
				)
				if relErr := s.queue.Release(ctx, ev.ID, s.cfg.MaxAttempts); relErr != nil {
					s.log.ErrorContext(ctx, "release event", slog.String("error", relErr.Error()))
				}
				continue
			}
			if err := s.queue.Complete(ctx, ev.ID); err != nil {
				s.log.ErrorContext(ctx, "complete event", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if n, err := s.queue.ReleaseExpired(ctx, s.clock.Now(), s.cfg.MaxAttempts); err != nil {
				s.log.ErrorContext(ctx, "release expired leases", slog.String("error", err.Error()))
			} else if n > 0 {
				s.log.InfoContext(ctx, "released expired leases", slog.Int("count", n))
			}
			if _, err := s.RecoverAll(ctx); err != nil {
				s.log.ErrorContext(ctx, "recovery sweep", slog.String("error", err.Error()))
			}
		}
	}
}

// nextEventID derives the deterministic ID of a cycle's continuation event.
// Re-enqueueing after a crash hits the same primary key and becomes a no-op,
// so a cycle schedules its successor at most once.
func nextEventID(cycleID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(cycleID.String()+"/next"))
}

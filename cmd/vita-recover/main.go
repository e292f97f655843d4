// Command vita-recover runs one recovery sweep and exits: expired event
// leases are released and personas stuck in CREATING are settled into
// RESTING. It is intended to be invoked by an external cron job as a backstop
// for the in-process sweep, and is safe to run alongside a live engine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres"
	eventrepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/event"
	memoryrepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/memory"
	personarepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/persona"
	postrepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/post"
	"github.com/pulseworks/vita-backend/internal/app"
	"github.com/pulseworks/vita-backend/internal/config"
	"github.com/pulseworks/vita-backend/internal/director"
	"github.com/pulseworks/vita-backend/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	events := eventrepo.New(pool)
	personas := personarepo.New(pool)

	// Recovery never plans, creates, or decides; the untouched collaborators
	// stay nil-safe behind the sweep's code path.
	sched := scheduler.New(cfg.Scheduler, scheduler.Deps{
		Personas: personas,
		Memories: memoryrepo.New(pool),
		Posts:    postrepo.New(pool),
		Queue:    events,
		Director: director.AmbientDirector{},
		Logger:   logger,
	})

	released, err := events.ReleaseExpired(ctx, time.Now(), cfg.Scheduler.MaxAttempts)
	if err != nil {
		logger.Error("release expired leases", slog.String("error", err.Error()))
		os.Exit(1)
	}

	recovered, err := sched.RecoverAll(ctx)
	if err != nil {
		logger.Error("recovery sweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("recovery sweep completed",
		slog.Int("released_leases", released),
		slog.Int("recovered_personas", recovered),
	)
}

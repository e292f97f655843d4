// Package app wires configuration, storage, providers, and the scheduler
// into a running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/pulseworks/vita-backend/internal/adapter/postgres"
	eventrepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/event"
	memoryrepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/memory"
	personarepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/persona"
	postrepo "github.com/pulseworks/vita-backend/internal/adapter/postgres/post"
	"github.com/pulseworks/vita-backend/internal/adapter/provider/trends"
	"github.com/pulseworks/vita-backend/internal/adapter/provider/weather"
	"github.com/pulseworks/vita-backend/internal/composer"
	"github.com/pulseworks/vita-backend/internal/config"
	"github.com/pulseworks/vita-backend/internal/director"
	"github.com/pulseworks/vita-backend/internal/scheduler"
	"github.com/pulseworks/vita-backend/internal/transport/httpapi"
)

// Run is the application entry point. It loads configuration, connects to
// the database, wires the scheduler and the HTTP API, and blocks until the
// context is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, cfg.Database.DSN); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	personas := personarepo.New(pool)
	memories := memoryrepo.New(pool)
	posts := postrepo.New(pool)
	events := eventrepo.New(pool)

	weatherProvider := weather.NewProvider(cfg.Weather, logger)
	trendsProvider, err := trends.NewProvider(cfg.Trends, logger)
	if err != nil {
		return fmt.Errorf("create trends provider: %w", err)
	}

	var dir director.Director
	if cfg.Director.APIKey != "" {
		dir = director.NewLLMDirector(cfg.Director,
			scheduler.NewEffects(personas, memories), logger)
	} else {
		logger.Warn("no director api key configured, decisions will be ambient")
		dir = director.AmbientDirector{}
	}

	sched := scheduler.New(cfg.Scheduler, scheduler.Deps{
		Personas: personas,
		Memories: memories,
		Posts:    posts,
		Queue:    events,
		Director: dir,
		Composer: composer.NewHTTPComposer(cfg.Composer, logger),
		Weather:  weatherProvider,
		Trends:   trendsProvider,
		Tx:       postgres.NewTxManager(pool),
		Logger:   logger,
	})

	handler := httpapi.New(sched, personas, memories, posts, BuildVersion(), logger)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

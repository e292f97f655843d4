// Command vita runs the persona lifecycle engine: the event workers, the
// recovery sweep, and the HTTP trigger API, all in one process.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pulseworks/vita-backend/internal/app"
)

func main() {
	// Missing .env is fine; production configures via real env vars.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

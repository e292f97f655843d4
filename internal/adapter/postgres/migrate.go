package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "pgx" database/sql driver used for migrations.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pulseworks/vita-backend/migrations"
)

// Migrate applies all pending goose migrations embedded in the binary.
// It opens a short-lived database/sql connection via the pgx stdlib driver;
// the pgxpool used by repositories is untouched.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: up: %w", err)
	}

	return nil
}

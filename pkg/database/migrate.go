package database

import (
	"context"
	"database/sql"
	"fmt"

	"gatekeeper/pkg/database/migrations"

	"github.com/pressly/goose/v3"
)

// Seams for tests.
var (
	gooseUp     = goose.UpContext
	gooseDown   = goose.DownContext
	gooseStatus = goose.StatusContext
)

func setupGoose() error {
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("postgres")
}

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := gooseDown(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// Status prints the applied/pending state of each migration through goose's logger.
func Status(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return gooseStatus(ctx, db, ".")
}

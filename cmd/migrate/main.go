package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"gatekeeper/config"
	"gatekeeper/internal/services"
	"gatekeeper/pkg/database"
)

const usage = `
Gatekeeper - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Apply all pending migrations
  down        Roll back the most recent migration
  status      Show connection and migration status
  seed-dev    Insert development users alice, bob, carol (password <name>-password)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go seed-dev
  go run cmd/migrate/main.go down
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	ctx := context.Background()

	cfg := config.LoadConfig()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		runMigrationsUp(ctx, db)
	case "down":
		runMigrationsDown(ctx, db)
	case "status":
		showStatus(ctx, db)
	case "seed-dev":
		runSeedDevelopment(ctx, db, cfg.BcryptCost)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(ctx context.Context, db *sql.DB) {
	log.Println("🚀 Running migrations UP...")

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func runMigrationsDown(ctx context.Context, db *sql.DB) {
	log.Println("⬇️  Rolling back last migration...")

	if err := database.Rollback(ctx, db); err != nil {
		log.Fatalf("❌ Rollback failed: %v", err)
	}

	log.Println("✅ Rollback completed successfully!")
}

func showStatus(ctx context.Context, db *sql.DB) {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(ctx, db); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	if err := database.Status(ctx, db); err != nil {
		log.Fatalf("❌ Migration status failed: %v", err)
	}
}

func runSeedDevelopment(ctx context.Context, db *sql.DB, cost int) {
	log.Println("🌱 Seeding database (development mode)...")

	hasher := services.NewBcryptHasher(cost)
	created, err := database.Seed(ctx, db, database.DefaultSeedUsers(), hasher.Hash)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✅ Development seeding completed! %d new users", created)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// SeedUser is a plaintext credential pair inserted by Seed.
type SeedUser struct {
	Username string
	Password string
}

// DefaultSeedUsers returns the accounts used for local development.
func DefaultSeedUsers() []SeedUser {
	return []SeedUser{
		{Username: "alice", Password: "alice-password"},
		{Username: "bob", Password: "bob-password"},
		{Username: "carol", Password: "carol-password"},
	}
}

// Seed inserts users that do not exist yet and returns how many rows were created.
// Passwords go through hash before they reach the table.
func Seed(ctx context.Context, db *sql.DB, users []SeedUser, hash func(string) (string, error)) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created := 0
	for _, u := range users {
		hashed, err := hash(u.Password)
		if err != nil {
			return 0, fmt.Errorf("failed to hash password for %s: %w", u.Username, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO "user" (username, password) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
			u.Username, hashed,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
			log.Printf("Seeded user: %s", u.Username)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

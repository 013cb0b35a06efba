package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gatekeeper/internal/domain/user"
	gatekeeper_errors "gatekeeper/pkg/errors"
)

type PostgresUserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO "user" (username, password) VALUES ($1, $2) RETURNING id`

	err := r.db.QueryRowContext(ctx, query, u.Username, u.Password).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return gatekeeper_errors.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	query := `SELECT id, username, password FROM "user" WHERE username = $1`

	var u user.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, gatekeeper_errors.ErrNotFound
		}
		return user.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	query := `SELECT id, username, password FROM "user" WHERE id = $1`

	var u user.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, gatekeeper_errors.ErrNotFound
		}
		return user.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

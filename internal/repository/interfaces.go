package repository

import (
	"context"

	"gatekeeper/internal/domain/user"
)

type UserRepository interface {
	// Create inserts u and fills in its ID. A taken username yields ErrAlreadyExists.
	Create(ctx context.Context, u *user.User) error
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByID(ctx context.Context, id int64) (user.User, error)
}

// UserRepositoryFactory binds a UserRepository to a connection or transaction.
type UserRepositoryFactory func(db DBTX) UserRepository

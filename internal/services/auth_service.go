package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gatekeeper/internal/domain/user"
	"gatekeeper/internal/repository"
	gatekeeper_errors "gatekeeper/pkg/errors"
	"gatekeeper/pkg/logger"

	"go.uber.org/zap"
)

// AuthError is a user-facing authentication or validation failure.
// Message is shown to the client verbatim; Kind is the sentinel it wraps.
type AuthError struct {
	Message string
	Kind    error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Kind }

var (
	ErrUsernameRequired  = &AuthError{Message: "Username is required.", Kind: gatekeeper_errors.ErrInvalidInput}
	ErrPasswordRequired  = &AuthError{Message: "Password is required.", Kind: gatekeeper_errors.ErrInvalidInput}
	ErrIncorrectUsername = &AuthError{Message: "Incorrect username.", Kind: gatekeeper_errors.ErrUnauthorized}
	ErrIncorrectPassword = &AuthError{Message: "Incorrect password.", Kind: gatekeeper_errors.ErrUnauthorized}
)

// DuplicateUserError is returned by Register when the username is taken.
type DuplicateUserError struct {
	Username string
}

func (e *DuplicateUserError) Error() string {
	return fmt.Sprintf("User %s is already registered.", e.Username)
}

func (e *DuplicateUserError) Unwrap() error { return gatekeeper_errors.ErrAlreadyExists }

// UserMessage extracts the client-facing text from a Login/Register error.
// The second result is false for errors that are not meant for the client.
func UserMessage(err error) (string, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message, true
	}
	var dupErr *DuplicateUserError
	if errors.As(err, &dupErr) {
		return dupErr.Error(), true
	}
	return "", false
}

type AuthService struct {
	db     *sql.DB
	users  repository.UserRepositoryFactory
	hasher PasswordHasher
	logger *logger.Logger
}

func NewAuthService(db *sql.DB, users repository.UserRepositoryFactory, hasher PasswordHasher, l *logger.Logger) *AuthService {
	if users == nil {
		users = repository.NewUserRepository
	}
	return &AuthService{
		db:     db,
		users:  users,
		hasher: hasher,
		logger: l,
	}
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type RegisterResult struct {
	ID       int64
	Username string
}

// Register validates the credentials and stores a new user with a hashed password.
// It returns exactly one of: a validation *AuthError, a *DuplicateUserError, or a result.
// Other storage errors are returned unchanged.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if err := validateRegister(in); err != nil {
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &user.User{
		Username: in.Username,
		Password: hash,
	}

	err = repository.WithConn(ctx, s.db, func(conn repository.DBTX) error {
		return repository.WithTx(ctx, conn, func(tx repository.DBTX) error {
			return s.users(tx).Create(ctx, newUser)
		})
	})
	if err != nil {
		if errors.Is(err, gatekeeper_errors.ErrAlreadyExists) {
			s.logInfo(ctx, "registration rejected: username taken", zap.String("username", in.Username))
			return RegisterResult{}, &DuplicateUserError{Username: in.Username}
		}
		return RegisterResult{}, err
	}

	s.logInfo(ctx, "user registered", zap.Int64("id", newUser.ID), zap.String("username", newUser.Username))
	return RegisterResult{ID: newUser.ID, Username: newUser.Username}, nil
}

// Login looks the user up by exact username and verifies the password.
// It never writes to the user table.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (user.User, error) {
	var u user.User
	err := repository.WithConn(ctx, s.db, func(conn repository.DBTX) error {
		found, err := s.users(conn).GetUserByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		u = found
		return nil
	})
	if err != nil {
		if errors.Is(err, gatekeeper_errors.ErrNotFound) {
			return user.User{}, ErrIncorrectUsername
		}
		return user.User{}, err
	}

	if !s.hasher.Check(in.Password, u.Password) {
		return user.User{}, ErrIncorrectPassword
	}

	s.logInfo(ctx, "user logged in", zap.Int64("id", u.ID))
	return u, nil
}

// CurrentUser loads the user a session points at.
func (s *AuthService) CurrentUser(ctx context.Context, id int64) (user.User, error) {
	var u user.User
	err := repository.WithConn(ctx, s.db, func(conn repository.DBTX) error {
		found, err := s.users(conn).GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		u = found
		return nil
	})
	return u, err
}

func (s *AuthService) logInfo(ctx context.Context, msg string, fields ...zap.Field) {
	if s.logger != nil {
		s.logger.InfoCtx(ctx, msg, fields...)
	}
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, gatekeeper_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, gatekeeper_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, gatekeeper_errors.ErrNotFound):
		return 404
	case errors.Is(err, gatekeeper_errors.ErrAlreadyExists):
		return 409
	case errors.Is(err, gatekeeper_errors.ErrRateLimited):
		return 429
	case errors.Is(err, gatekeeper_errors.ErrServiceUnavailable):
		return 503
	default:
		return 500
	}
}

type ctxKey string

var userIDKey ctxKey = "user_id"

func WithUserContext(ctx context.Context, userID int64) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, logger.UserIdKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	value := ctx.Value(userIDKey)
	if value == nil {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok
}

// Username emptiness takes precedence over password emptiness.
func validateRegister(in RegisterInput) error {
	if in.Username == "" {
		return ErrUsernameRequired
	}
	if in.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

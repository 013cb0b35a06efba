package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"gatekeeper/internal/domain/user"
	gatekeeper_errors "gatekeeper/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	insertUserQuery     = `(?s)^INSERT\s+INTO\s+"user"\s*\(username,\s*password\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id$`
	selectByNameQuery   = `(?s)^SELECT\s+id,\s*username,\s*password\s+FROM\s+"user"\s+WHERE\s+username\s*=\s*\$1$`
	selectByIDUserQuery = `(?s)^SELECT\s+id,\s*username,\s*password\s+FROM\s+"user"\s+WHERE\s+id\s*=\s*\$1$`
)

func newRepoWithMock(t *testing.T) (UserRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewUserRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserQuery).
		WithArgs("alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	u := &user.User{Username: "alice", Password: "hash"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if u.ID != 7 {
		t.Fatalf("expected id 7, got %d", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserQuery).
		WithArgs("alice", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_username_key"})

	err := repo.Create(context.Background(), &user.User{Username: "alice", Password: "hash"})
	if !errors.Is(err, gatekeeper_errors.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserQuery).
		WithArgs("alice", "hash").
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &user.User{Username: "alice", Password: "hash"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, gatekeeper_errors.ErrAlreadyExists) {
		t.Fatal("plain db error must not look like a duplicate")
	}
}

func TestGetUserByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByNameQuery).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).AddRow(int64(1), "alice", "hash"))

	got, err := repo.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername error: %v", err)
	}
	if got.ID != 1 || got.Username != "alice" || got.Password != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByNameQuery).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByUsername(context.Background(), "ghost")
	if !errors.Is(err, gatekeeper_errors.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetUserByUsername_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByNameQuery).
		WithArgs("alice").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetUserByUsername(context.Background(), "alice")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetUserByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByIDUserQuery).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).AddRow(int64(3), "carol", "hash"))
	mock.ExpectQuery(selectByIDUserQuery).
		WithArgs(int64(4)).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetUserByID(context.Background(), 3)
	if err != nil || got.Username != "carol" {
		t.Fatalf("unexpected result: %+v, %v", got, err)
	}
	if _, err := repo.GetUserByID(context.Background(), 4); !errors.Is(err, gatekeeper_errors.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

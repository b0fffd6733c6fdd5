package tests

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/repository"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

func newUsersRepo(t *testing.T) (*repository.UsersRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewUsersRepository(db), mock
}

// Успех
func TestUsersRepository_Create_OK(t *testing.T) {
	repo, mock := newUsersRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "hash", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	before := time.Now().UTC().Add(-time.Second)
	u, err := repo.Create(context.Background(), "alice", "hash")
	require.NoError(t, err)

	require.Equal(t, int64(7), u.ID)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "hash", u.PasswordHash)
	require.Equal(t, time.UTC, u.CreatedAt.Location())
	require.True(t, u.CreatedAt.After(before))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Такой пользователь уже есть
func TestUsersRepository_Create_AlreadyExists(t *testing.T) {
	repo, mock := newUsersRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), "alice", "hash")
	require.ErrorIs(t, err, serr.ErrAlreadyExists)
}

// Любая другая ошибка — ErrStorage
func TestUsersRepository_Create_StorageError(t *testing.T) {
	repo, mock := newUsersRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.Create(context.Background(), "alice", "hash")
	require.ErrorIs(t, err, serr.ErrStorage)
	require.NotErrorIs(t, err, serr.ErrAlreadyExists)
}

func TestUsersRepository_Exists(t *testing.T) {
	repo, mock := newUsersRepo(t)

	mock.ExpectQuery(`SELECT 1 FROM users`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM users`).
		WithArgs("Alice").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT 1 FROM users`).
		WithArgs("bob").
		WillReturnError(sql.ErrConnDone)

	ok, err := repo.Exists(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// регистр имеет значение
	ok, err = repo.Exists(context.Background(), "Alice")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.Exists(context.Background(), "bob")
	require.ErrorIs(t, err, serr.ErrStorage)
}

// поиск по username
func TestUsersRepository_GetByUsername_OK(t *testing.T) {
	repo, mock := newUsersRepo(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, username, password_hash, created_at FROM users`).
		WithArgs("alice").
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
				AddRow(int64(1), "alice", "hash", created),
		)

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, "hash", u.PasswordHash)
	require.True(t, created.Equal(u.CreatedAt))
}

func TestUsersRepository_GetByUsername_NotFound(t *testing.T) {
	repo, mock := newUsersRepo(t)

	mock.ExpectQuery(`SELECT id, username, password_hash, created_at FROM users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, serr.ErrNotFound)
}

func TestUsersRepository_GetByID(t *testing.T) {
	repo, mock := newUsersRepo(t)

	mock.ExpectQuery(`WHERE id=\$1`).
		WithArgs(int64(3)).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
				AddRow(int64(3), "carol", "hash", time.Now()),
		)
	mock.ExpectQuery(`WHERE id=\$1`).
		WithArgs(int64(4)).
		WillReturnError(sql.ErrConnDone)

	u, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, "carol", u.Username)

	_, err = repo.GetByID(context.Background(), 4)
	require.ErrorIs(t, err, serr.ErrStorage)
}

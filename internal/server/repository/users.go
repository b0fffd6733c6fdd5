// Package repository содержит реализации слоя доступа к данным (Repository layer).
//
// Репозитории инкапсулируют работу с БД и не содержат бизнес-логики.
// Все ошибки приводятся к доменным ошибкам из internal/shared/errors:
// нарушение уникальности — ErrAlreadyExists, отсутствие записи — ErrNotFound,
// всё остальное — ErrStorage.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"

	"github.com/IvanChernomyrdin/gophassist/internal/server/models"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// код ошибки postgres unique_violation
const pgUniqueViolation = "23505"

// UsersRepository — таблица users в PostgreSQL.
type UsersRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db, now: time.Now}
}

// Exists — есть ли пользователь с таким username (точное совпадение).
func (r *UsersRepository) Exists(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE username=$1`,
		username,
	).Scan(&one)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, storageErr(err)
	}
	return true, nil
}

// Create вставляет пользователя. Уникальность username гарантирует
// constraint в БД, а не предварительная проверка Exists.
func (r *UsersRepository) Create(ctx context.Context, username, passwordHash string) (models.User, error) {
	u := models.User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC().Truncate(time.Microsecond),
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, created_at)
		 VALUES ($1,$2,$3)
		 RETURNING id`,
		u.Username, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.User{}, serr.ErrAlreadyExists
		}
		return models.User{}, storageErr(err)
	}

	return u, nil
}

// GetByUsername возвращает пользователя или ErrNotFound.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User

	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username=$1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, serr.ErrNotFound
		}
		return models.User{}, storageErr(err)
	}

	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// GetByID нужен при обновлении токенов: в claims кладётся username.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User

	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id=$1`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, serr.ErrNotFound
		}
		return models.User{}, storageErr(err)
	}

	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// storageErr оборачивает ошибку драйвера в ErrStorage, сохраняя причину для логов.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", serr.ErrStorage, err)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/harrylevesque/listqr/internal/models"
)

// Users is the account boundary used by the session store.
type Users interface {
	CreateUser(ctx context.Context, email, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	u := models.User{
		ID:           "u--" + uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}
	if _, err := s.UserByEmail(ctx, u.Email); err == nil {
		return models.User{}, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		return models.User{}, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at_unixms) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixMilli())
	if err != nil {
		var se *sqlite.Error
		// Primary result code; extended codes may or may not be enabled.
		if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return models.User{}, models.ErrEmailTaken
		}
		return models.User{}, remote("create user", err)
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.userWhere(ctx, "email", NormalizeEmail(email))
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	return s.userWhere(ctx, "id", id)
}

func (s *Store) userWhere(ctx context.Context, column, value string) (models.User, error) {
	var u models.User
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at_unixms FROM users WHERE `+column+` = ?`, value).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	if err != nil {
		return models.User{}, remote("fetch user", err)
	}
	u.CreatedAt = fromUnixMilli(created)
	return u, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"kanban/internal/models"
)

type userRow struct {
	ID          int64          `db:"id"`
	Username    string         `db:"username"`
	Password    string         `db:"password"`
	DisplayName string         `db:"display_name"`
	LastLogin   sql.NullString `db:"last_login"`
}

// Authenticate verifies the credentials with a case-insensitive username
// match and a constant-time bcrypt comparison. On success it returns the
// user with the PREVIOUS last-login timestamp and records the new one.
func (s *Store) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var r userRow
	err := s.db.GetContext(ctx, &r,
		`SELECT id, username, password, display_name, last_login FROM users WHERE username = ?`,
		strings.ToLower(username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(r.Password), []byte(password)) != nil {
		return models.User{}, ErrNotFound
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, now(), r.ID); err != nil {
		return models.User{}, fmt.Errorf("record login: %w", err)
	}

	return models.User{
		ID:          r.ID,
		Username:    r.Username,
		DisplayName: r.DisplayName,
		LastLogin:   r.LastLogin.String,
	}, nil
}

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository stores users in the users table. The unique index on
// login_id is what closes the check-then-insert race under concurrent
// registrations.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, login_id, password_hash, name, nickname, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.LoginID, user.PasswordHash, user.Name, user.Nickname, user.IsAdmin, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateLogin
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindByLogin(ctx context.Context, loginID string) (*User, error) {
	query := `
		SELECT id, login_id, password_hash, name, nickname, is_admin, created_at
		FROM users
		WHERE login_id = $1`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, loginID).Scan(
		&user.ID, &user.LoginID, &user.PasswordHash, &user.Name, &user.Nickname, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user by login: %w", err)
	}

	return user, nil
}

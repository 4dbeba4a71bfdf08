package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codepair/collab/internal/domain"
	"github.com/codepair/collab/internal/store"
)

// Users implements store.Users on SQLite.
type Users struct {
	db *DB
}

func NewUsers(db *DB) *Users { return &Users{db: db} }

var _ store.Users = (*Users)(nil)

func (r *Users) Create(ctx context.Context, u *domain.User, passwordHash string) error {
	_, err := r.db.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(u.ID), strings.ToLower(u.Email), u.Name, passwordHash,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return store.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Users) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u domain.User
	err := r.db.db.QueryRowContext(ctx,
		`SELECT id, email, name FROM users WHERE id = ?`, string(id),
	).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*domain.User, string, error) {
	var u domain.User
	var hash string
	err := r.db.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash FROM users WHERE email = ?`,
		strings.ToLower(email),
	).Scan(&u.ID, &u.Email, &u.Name, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", store.ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("select user by email: %w", err)
	}
	return &u, hash, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when a login names an unknown account id.
var ErrUserNotFound = errors.New("user not found")

// User is one registered account.
type User struct {
	ID   uuid.UUID
	Name string
}

// CreateUser inserts a new account and returns it.
func (db *DB) CreateUser(ctx context.Context, name string) (User, error) {
	u := User{ID: uuid.New(), Name: name}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO users (id, name) VALUES ($1, $2)`, u.ID, u.Name)
	if err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// GetUser looks up an account by id, stamping last_seen.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	u := User{ID: id}
	err := db.Pool.QueryRow(ctx, `
		UPDATE users SET last_seen = NOW()
		WHERE id = $1
		RETURNING name
	`, id).Scan(&u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("querying user %s: %w", id, err)
	}
	return u, nil
}

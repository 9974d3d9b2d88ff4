// Package repository provides persistence for users and events on top of
// the store client.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/calendar/internal/db"
)

// ErrLoginTaken is returned by Create when the login is already registered.
var ErrLoginTaken = errors.New("login already registered")

const uniqueViolation = "23505"

// PostgresUserRepository implements user lookups and registration.
type PostgresUserRepository struct {
	// Client runs the queries.
	Client *db.Client
}

// NewPostgresUserRepository creates a repository backed by client.
func NewPostgresUserRepository(client *db.Client) *PostgresUserRepository {
	return &PostgresUserRepository{Client: client}
}

// FindByCredentials returns the id of the user whose login and password
// both match exactly. The boolean is false when there is no such user.
func (r *PostgresUserRepository) FindByCredentials(ctx context.Context, login, password string) (int64, bool, error) {
	row, ok, err := r.Client.FetchOne(ctx,
		`SELECT id FROM users WHERE login = $1 AND password = $2`,
		login, password,
	)
	if err != nil || !ok {
		return 0, false, wrap("FindByCredentials", err)
	}
	id, err := row.Int64("id")
	if err != nil {
		return 0, false, wrap("FindByCredentials", err)
	}
	return id, true, nil
}

// LoginExists reports whether login is already registered.
func (r *PostgresUserRepository) LoginExists(ctx context.Context, login string) (bool, error) {
	_, ok, err := r.Client.FetchOne(ctx, `SELECT id FROM users WHERE login = $1`, login)
	if err != nil {
		return false, wrap("LoginExists", err)
	}
	return ok, nil
}

// Create inserts a new user. A unique violation on login is reported as
// ErrLoginTaken.
func (r *PostgresUserRepository) Create(ctx context.Context, login, password string) error {
	_, err := r.Client.Exec(ctx,
		`INSERT INTO users(login, password) VALUES ($1, $2)`,
		login, password,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrLoginTaken
		}
		return wrap("Create", err)
	}
	return nil
}

// LoginByID returns the login of user id. The boolean is false when the
// user does not exist.
func (r *PostgresUserRepository) LoginByID(ctx context.Context, id int64) (string, bool, error) {
	row, ok, err := r.Client.FetchOne(ctx, `SELECT login FROM users WHERE id = $1`, id)
	if err != nil || !ok {
		return "", false, wrap("LoginByID", err)
	}
	login, err := row.String("login")
	if err != nil {
		return "", false, wrap("LoginByID", err)
	}
	return login, true, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

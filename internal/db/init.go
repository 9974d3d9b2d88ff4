// Package db owns the connection to the relational store: opening it,
// bootstrapping the schema and running queries on behalf of repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    login VARCHAR(15) UNIQUE NOT NULL,
    password VARCHAR(32) NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    owner INTEGER,
    name VARCHAR(15) NOT NULL,
    date VARCHAR(15) NOT NULL,
    time VARCHAR(15) NOT NULL,
    duration INTEGER NOT NULL
);
`

// InitPostgres opens a pooled PostgreSQL handle and prepares it with
// Bootstrap.
func InitPostgres(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := Bootstrap(ctx, db, maxOpenConns); err != nil {
		return nil, err
	}
	return db, nil
}

// Bootstrap sizes the pool, verifies connectivity and creates the users and
// events tables if they are absent. maxOpenConns <= 0 leaves the pool
// unbounded. On failure db is closed.
func Bootstrap(ctx context.Context, db *sql.DB, maxOpenConns int) error {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

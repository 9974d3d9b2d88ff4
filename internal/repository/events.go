package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/calendar/internal/db"
	"github.com/atinyakov/calendar/internal/models"
)

// PostgresEventRepository stores and lists calendar events.
type PostgresEventRepository struct {
	// Client runs the queries.
	Client *db.Client
}

// NewPostgresEventRepository creates a repository backed by client.
func NewPostgresEventRepository(client *db.Client) *PostgresEventRepository {
	return &PostgresEventRepository{Client: client}
}

// Create inserts e. Its ID is ignored; the store assigns one.
func (r *PostgresEventRepository) Create(ctx context.Context, e models.Event) error {
	_, err := r.Client.Exec(ctx,
		`INSERT INTO events(name, date, time, duration, owner) VALUES ($1, $2, $3, $4, $5)`,
		e.Name, e.Date, e.Time, e.Duration, e.Owner,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListFrom returns the events of owner whose date is on or after fromDate.
// Dates are compared as YYYYMMDD strings, so fromDate must use the same
// zero-padded layout.
func (r *PostgresEventRepository) ListFrom(ctx context.Context, owner int64, fromDate string) ([]models.Event, error) {
	rows, err := r.Client.FetchAll(ctx, `
		SELECT id, owner, name, date, time, duration FROM events
		WHERE owner = $1 AND date >= $2
		ORDER BY date, time, id
	`, owner, fromDate)
	if err != nil {
		return nil, fmt.Errorf("ListFrom: %w", err)
	}

	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		e, err := eventFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("ListFrom: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

func eventFromRow(row db.Row) (models.Event, error) {
	var (
		e   models.Event
		err error
	)
	if e.ID, err = row.Int64("id"); err != nil {
		return e, err
	}
	if e.Owner, err = row.Int64("owner"); err != nil {
		return e, err
	}
	if e.Name, err = row.String("name"); err != nil {
		return e, err
	}
	if e.Date, err = row.String("date"); err != nil {
		return e, err
	}
	if e.Time, err = row.String("time"); err != nil {
		return e, err
	}
	if e.Duration, err = row.Int64("duration"); err != nil {
		return e, err
	}
	return e, nil
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/calendar/internal/db"
	"github.com/atinyakov/calendar/internal/models"
)

const listQuery = `SELECT id, owner, name, date, time, duration FROM events`

func setupEventMock(t *testing.T) (*PostgresEventRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresEventRepository(db.NewClient(mockDB, nil)), mock
}

func TestCreateEvent(t *testing.T) {
	repo, mock := setupEventMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events(name, date, time, duration, owner) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs("standup", "20250101", "0930", int64(30), int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), models.Event{
		Owner: 7, Name: "standup", Date: "20250101", Time: "0930", Duration: 30,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEvent_Error(t *testing.T) {
	repo, mock := setupEventMock(t)

	mock.ExpectExec("INSERT INTO events").WillReturnError(errors.New("value too long"))

	err := repo.Create(context.Background(), models.Event{Owner: 7, Name: "a-very-long-event-name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value too long")
}

func TestListFrom(t *testing.T) {
	repo, mock := setupEventMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs(int64(7), "20250101").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "name", "date", "time", "duration"}).
			AddRow(int64(1), int64(7), "standup", "20250101", "0930", int64(30)).
			AddRow(int64(2), int64(7), []byte("retro"), "20250102", "1500", int64(60)))

	events, err := repo.ListFrom(context.Background(), 7, "20250101")
	require.NoError(t, err)
	assert.Equal(t, []models.Event{
		{ID: 1, Owner: 7, Name: "standup", Date: "20250101", Time: "0930", Duration: 30},
		{ID: 2, Owner: 7, Name: "retro", Date: "20250102", Time: "1500", Duration: 60},
	}, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFrom_Empty(t *testing.T) {
	repo, mock := setupEventMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs(int64(7), "20991231").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "name", "date", "time", "duration"}))

	events, err := repo.ListFrom(context.Background(), 7, "20991231")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestListFrom_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		repo, mock := setupEventMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WillReturnError(errors.New("db down"))

		_, err := repo.ListFrom(context.Background(), 7, "20250101")
		require.Error(t, err)
	})

	t.Run("null owner", func(t *testing.T) {
		repo, mock := setupEventMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "name", "date", "time", "duration"}).
				AddRow(int64(1), nil, "x", "20250101", "0930", int64(30)))

		_, err := repo.ListFrom(context.Background(), 7, "20250101")
		require.Error(t, err)
	})
}

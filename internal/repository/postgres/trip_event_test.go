package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtolling/internal/domain"
	"mtolling/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var eventColumns = []string{"id", "trip_number", "highways", "total_cost", "title", "message", "detected_at"}

func TestTripEventRepository_Save(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewTripEventRepository(db)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	event := &domain.TripEvent{
		ID: "0b4f7f0e-3c55-4d0b-9a51-8a3f3f2d4c11", TripNumber: 42, Highways: "A1",
		TotalCost: 2.35, Title: "New Trip Detected", Message: "Highway: A1\nCost: €2.35", DetectedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trip_events")).
		WithArgs(event.ID, event.TripNumber, event.Highways, event.TotalCost, event.Title, event.Message, event.DetectedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripEventRepository_GetByTripNumber(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewTripEventRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM trip_events WHERE trip_number = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(eventColumns).AddRow("id-1", int64(42), "A1", 2.35, "t", "m", now))

	e, err := repo.GetByTripNumber(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, int64(42), e.TripNumber)

	mock.ExpectQuery(regexp.QuoteMeta("FROM trip_events WHERE trip_number = $1")).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByTripNumber(context.Background(), 7)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripEventRepository_Recent(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewTripEventRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY detected_at DESC LIMIT $1")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("id-2", int64(2), "A2", 1.10, "t", "m", now).
			AddRow("id-1", int64(1), "A1", 2.35, "t", "m", now.Add(-time.Minute)))

	events, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].TripNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS trip_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

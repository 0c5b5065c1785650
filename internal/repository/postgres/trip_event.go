package postgres

import (
	"context"
	"database/sql"
	"errors"

	"mtolling/internal/domain"
	"mtolling/internal/repository"
)

// TripEventRepository is a PostgreSQL implementation of repository.TripEventRepository.
type TripEventRepository struct {
	q Querier
}

// NewTripEventRepository creates a new PostgreSQL trip event repository.
func NewTripEventRepository(db *sql.DB) *TripEventRepository {
	return &TripEventRepository{q: db}
}

// Save persists an event. A second event for the same trip number is ignored.
func (r *TripEventRepository) Save(ctx context.Context, event *domain.TripEvent) error {
	query := `
		INSERT INTO trip_events (id, trip_number, highways, total_cost, title, message, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trip_number) DO NOTHING
	`

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.TripNumber,
		event.Highways,
		event.TotalCost,
		event.Title,
		event.Message,
		event.DetectedAt,
	)

	return err
}

// GetByTripNumber retrieves the event recorded for a trip.
func (r *TripEventRepository) GetByTripNumber(ctx context.Context, tripNumber int64) (*domain.TripEvent, error) {
	query := `
		SELECT id, trip_number, highways, total_cost, title, message, detected_at
		FROM trip_events WHERE trip_number = $1
	`

	var e domain.TripEvent
	err := r.q.QueryRowContext(ctx, query, tripNumber).Scan(
		&e.ID,
		&e.TripNumber,
		&e.Highways,
		&e.TotalCost,
		&e.Title,
		&e.Message,
		&e.DetectedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &e, nil
}

// Recent returns up to limit events, newest first.
func (r *TripEventRepository) Recent(ctx context.Context, limit int) ([]*domain.TripEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, trip_number, highways, total_cost, title, message, detected_at
		FROM trip_events ORDER BY detected_at DESC LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.TripEvent
	for rows.Next() {
		var e domain.TripEvent
		if err := rows.Scan(
			&e.ID,
			&e.TripNumber,
			&e.Highways,
			&e.TotalCost,
			&e.Title,
			&e.Message,
			&e.DetectedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

// Ensure TripEventRepository implements repository.TripEventRepository.
var _ repository.TripEventRepository = (*TripEventRepository)(nil)

package postgres

import (
	"context"
)

const createTripEventsTable = `
	CREATE TABLE IF NOT EXISTS trip_events (
		id          UUID PRIMARY KEY,
		trip_number BIGINT NOT NULL UNIQUE,
		highways    TEXT NOT NULL,
		total_cost  NUMERIC(10, 2) NOT NULL,
		title       TEXT NOT NULL,
		message     TEXT NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL
	)
`

// EnsureSchema creates the tables used by this package if they are missing.
func EnsureSchema(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, createTripEventsTable)
	return err
}

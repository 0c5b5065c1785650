package repository

import (
	"context"
	"sync"

	"mtolling/internal/domain"
)

// TripEventRepository defines the persistence operations for new-trip events.
type TripEventRepository interface {
	// Save persists an event. Saving a trip number twice keeps the first event.
	Save(ctx context.Context, event *domain.TripEvent) error

	// GetByTripNumber retrieves the event recorded for a trip.
	GetByTripNumber(ctx context.Context, tripNumber int64) (*domain.TripEvent, error)

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.TripEvent, error)
}

// MemoryTripEventRepository keeps the most recent events in process.
type MemoryTripEventRepository struct {
	mu       sync.RWMutex
	capacity int
	events   []*domain.TripEvent
	byTrip   map[int64]*domain.TripEvent
}

// NewMemoryTripEventRepository creates a repository holding at most capacity events.
func NewMemoryTripEventRepository(capacity int) *MemoryTripEventRepository {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryTripEventRepository{
		capacity: capacity,
		byTrip:   make(map[int64]*domain.TripEvent),
	}
}

// Save appends the event, evicting the oldest when full.
func (r *MemoryTripEventRepository) Save(_ context.Context, event *domain.TripEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byTrip[event.TripNumber]; ok {
		return nil
	}

	stored := *event
	r.events = append(r.events, &stored)
	r.byTrip[stored.TripNumber] = &stored

	if len(r.events) > r.capacity {
		evicted := r.events[0]
		r.events = r.events[1:]
		delete(r.byTrip, evicted.TripNumber)
	}
	return nil
}

// GetByTripNumber returns ErrNotFound for unknown trips.
func (r *MemoryTripEventRepository) GetByTripNumber(_ context.Context, tripNumber int64) (*domain.TripEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byTrip[tripNumber]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// Recent returns up to limit events, newest first.
func (r *MemoryTripEventRepository) Recent(_ context.Context, limit int) ([]*domain.TripEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]*domain.TripEvent, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.events[i]
		out = append(out, &cp)
	}
	return out, nil
}

var _ TripEventRepository = (*MemoryTripEventRepository)(nil)

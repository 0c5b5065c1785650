package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mtolling/internal/domain"
	"mtolling/internal/logging"
	"mtolling/internal/metrics"
	"mtolling/internal/repository"
)

// NewTripTitle is the title of every new-trip notification.
const NewTripTitle = "New Trip Detected"

// Broadcaster pushes a payload to live subscribers on a topic.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, v any) error
}

// EventPublisher forwards trip events to a message broker.
type EventPublisher interface {
	PublishTripEvent(ctx context.Context, event *domain.TripEvent) error
}

// NotificationService turns newly observed trips into events and fans them out.
// Every sink is optional and a failing sink never blocks the others.
type NotificationService struct {
	log       *logrus.Entry
	hub       Broadcaster
	repo      repository.TripEventRepository
	publisher EventPublisher
	topic     string
	now       func() time.Time

	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.TripEvent
}

// NotificationOption configures optional sinks.
type NotificationOption func(*NotificationService)

// WithBroadcaster sends events to live stream clients under topic.
func WithBroadcaster(hub Broadcaster, topic string) NotificationOption {
	return func(s *NotificationService) {
		s.hub = hub
		s.topic = topic
	}
}

// WithEventRepository records events.
func WithEventRepository(repo repository.TripEventRepository) NotificationOption {
	return func(s *NotificationService) { s.repo = repo }
}

// WithEventPublisher forwards events to a broker.
func WithEventPublisher(p EventPublisher) NotificationOption {
	return func(s *NotificationService) { s.publisher = p }
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log *logrus.Entry, opts ...NotificationOption) *NotificationService {
	if log == nil {
		log = logging.Discard()
	}
	s := &NotificationService{
		log:  log,
		now:  time.Now,
		subs: make(map[int]chan domain.TripEvent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FormatTripMessage renders the notification body for a trip.
func FormatTripMessage(trip domain.Trip) string {
	return fmt.Sprintf("Highway: %s\nCost: €%.2f", trip.Highways, trip.TotalCost)
}

// NotifyNewTrip emits exactly one event for trip.
func (s *NotificationService) NotifyNewTrip(ctx context.Context, trip domain.Trip) domain.TripEvent {
	event := domain.TripEvent{
		ID:         uuid.NewString(),
		TripNumber: trip.TripNumber,
		Highways:   trip.Highways,
		TotalCost:  trip.TotalCost,
		Title:      NewTripTitle,
		Message:    FormatTripMessage(trip),
		DetectedAt: s.now().UTC(),
	}

	s.log.WithFields(logrus.Fields{
		"trip_number": event.TripNumber,
		"highways":    event.Highways,
		"cost":        event.TotalCost,
	}).Info("new trip detected")

	if s.repo != nil {
		if err := s.repo.Save(ctx, &event); err != nil {
			s.log.WithError(err).Warn("persist trip event failed")
		}
	}
	if s.hub != nil {
		if err := s.hub.Publish(ctx, s.topic, event); err != nil {
			s.log.WithError(err).Warn("broadcast trip event failed")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishTripEvent(ctx, &event); err != nil {
			s.log.WithError(err).Warn("publish trip event failed")
		}
	}

	s.mu.RLock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
	s.mu.RUnlock()

	metrics.RecordTripEvents(1)
	return event
}

// Subscribe returns a buffered channel of events and a function that closes it.
// Events are dropped for a subscriber whose buffer is full.
func (s *NotificationService) Subscribe(buffer int) (<-chan domain.TripEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.TripEvent, buffer)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Recent returns recorded events, newest first. Without a repository it returns none.
func (s *NotificationService) Recent(ctx context.Context, limit int) ([]*domain.TripEvent, error) {
	if s.repo == nil {
		return []*domain.TripEvent{}, nil
	}
	return s.repo.Recent(ctx, limit)
}

package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mtolling/internal/domain"
	"mtolling/internal/service"
)

// ErrMockUnavailable is the default injected failure.
var ErrMockUnavailable = errors.New("mock: service unavailable")

// ──────────────────────────────────────────────
// MOCK AUTH API
// ──────────────────────────────────────────────

// MockAuthAPI is a mock implementation of service.AuthAPI.
type MockAuthAPI struct {
	mu    sync.Mutex
	Token string

	// Counters for verification
	LoginCallCount int32

	// Error injection
	LoginError error
}

// NewMockAuthAPI creates a mock that issues token on every login.
func NewMockAuthAPI(token string) *MockAuthAPI {
	return &MockAuthAPI{Token: token}
}

func (m *MockAuthAPI) Login(ctx context.Context, email, password string) (domain.AuthToken, error) {
	atomic.AddInt32(&m.LoginCallCount, 1)
	if m.LoginError != nil {
		return domain.AuthToken{}, m.LoginError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.AuthToken{Value: m.Token, Scheme: domain.TokenSchemeBearer}, nil
}

// ──────────────────────────────────────────────
// MOCK TRIPS API
// ──────────────────────────────────────────────

// MockTripsAPI is a mock implementation of service.TripsAPI. Each call
// returns the next queued response; the last one repeats.
type MockTripsAPI struct {
	mu        sync.Mutex
	responses [][]domain.Trip
	tokens    []string

	// Counters for verification
	TripsCallCount int32

	// Error injection
	TripsError error
}

// NewMockTripsAPI creates a mock returning the given responses in order.
func NewMockTripsAPI(responses ...[]domain.Trip) *MockTripsAPI {
	return &MockTripsAPI{responses: responses}
}

// SetError sets or clears the injected failure.
func (m *MockTripsAPI) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TripsError = err
}

// Tokens returns the tokens seen so far.
func (m *MockTripsAPI) Tokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...)
}

func (m *MockTripsAPI) Trips(ctx context.Context, token string) ([]domain.Trip, error) {
	atomic.AddInt32(&m.TripsCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	if m.TripsError != nil {
		return nil, m.TripsError
	}
	if len(m.responses) == 0 {
		return []domain.Trip{}, nil
	}
	next := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	out := make([]domain.Trip, len(next))
	copy(out, next)
	return out, nil
}

// Calls returns the number of Trips calls.
func (m *MockTripsAPI) Calls() int32 {
	return atomic.LoadInt32(&m.TripsCallCount)
}

// ──────────────────────────────────────────────
// MOCK TOLLS API
// ──────────────────────────────────────────────

// MockTollsAPI is a mock implementation of service.TollsAPI.
type MockTollsAPI struct {
	mu     sync.Mutex
	points []domain.TollPoint

	// Counters for verification
	TollsCallCount int32

	// Error injection
	TollsError error
}

// NewMockTollsAPI creates a mock returning points.
func NewMockTollsAPI(points ...domain.TollPoint) *MockTollsAPI {
	return &MockTollsAPI{points: points}
}

// SetError sets or clears the injected failure.
func (m *MockTollsAPI) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TollsError = err
}

func (m *MockTollsAPI) Tolls(ctx context.Context, token string) ([]domain.TollPoint, error) {
	atomic.AddInt32(&m.TollsCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TollsError != nil {
		return nil, m.TollsError
	}
	out := make([]domain.TollPoint, len(m.points))
	copy(out, m.points)
	return out, nil
}

// Calls returns the number of Tolls calls.
func (m *MockTollsAPI) Calls() int32 {
	return atomic.LoadInt32(&m.TollsCallCount)
}

// ──────────────────────────────────────────────
// MOCK LOCATION API
// ──────────────────────────────────────────────

// MockLocationAPI is a mock implementation of service.LocationAPI.
type MockLocationAPI struct {
	mu   sync.Mutex
	sent []domain.LocationFix
	sig  chan struct{}

	// Error injection
	SendError error
}

// NewMockLocationAPI creates a new mock location API.
func NewMockLocationAPI() *MockLocationAPI {
	return &MockLocationAPI{sig: make(chan struct{}, 64)}
}

func (m *MockLocationAPI) SendLocation(ctx context.Context, token string, fix domain.LocationFix) error {
	m.mu.Lock()
	err := m.SendError
	if err == nil {
		m.sent = append(m.sent, fix)
	}
	m.mu.Unlock()

	select {
	case m.sig <- struct{}{}:
	default:
	}
	return err
}

// Sent returns the fixes accepted so far.
func (m *MockLocationAPI) Sent() []domain.LocationFix {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LocationFix(nil), m.sent...)
}

// WaitForCall blocks until SendLocation is called or the timeout passes.
func (m *MockLocationAPI) WaitForCall(timeout time.Duration) bool {
	select {
	case <-m.sig:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ──────────────────────────────────────────────
// MOCK TOKEN SOURCE
// ──────────────────────────────────────────────

// MockTokenSource is a mock implementation of service.TokenSource.
type MockTokenSource struct {
	mu    sync.Mutex
	token string
}

// NewMockTokenSource creates a token source returning token; empty means logged out.
func NewMockTokenSource(token string) *MockTokenSource {
	return &MockTokenSource{token: token}
}

// Set replaces the token.
func (m *MockTokenSource) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

func (m *MockTokenSource) ValidToken(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

// ──────────────────────────────────────────────
// MOCK BROADCASTER
// ──────────────────────────────────────────────

// MockBroadcaster is a mock implementation of service.Broadcaster.
type MockBroadcaster struct {
	mu       sync.Mutex
	messages map[string][]any

	// Error injection
	PublishError error
}

// NewMockBroadcaster creates a new mock broadcaster.
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{messages: make(map[string][]any)}
}

func (m *MockBroadcaster) Publish(ctx context.Context, topic string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.messages[topic] = append(m.messages[topic], v)
	return nil
}

// Count returns the number of messages published to topic.
func (m *MockBroadcaster) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[topic])
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockEventPublisher is a mock implementation of service.EventPublisher.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []domain.TripEvent

	// Error injection
	PublishError error
}

func (m *MockEventPublisher) PublishTripEvent(ctx context.Context, event *domain.TripEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.events = append(m.events, *event)
	return nil
}

// Events returns the published events.
func (m *MockEventPublisher) Events() []domain.TripEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TripEvent(nil), m.events...)
}

// ──────────────────────────────────────────────
// MOCK STATUS REGISTRY
// ──────────────────────────────────────────────

// MockStatusRegistry is a mock implementation of service.StatusRegistry.
type MockStatusRegistry struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewMockStatusRegistry creates a new mock status registry.
func NewMockStatusRegistry() *MockStatusRegistry {
	return &MockStatusRegistry{active: make(map[string]bool)}
}

func (m *MockStatusRegistry) MarkActive(ctx context.Context, feature string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[feature] = true
	return nil
}

func (m *MockStatusRegistry) MarkInactive(ctx context.Context, feature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, feature)
	return nil
}

// IsActive reports whether feature is marked active.
func (m *MockStatusRegistry) IsActive(feature string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[feature]
}

// ──────────────────────────────────────────────
// RECORDING NOTIFIER
// ──────────────────────────────────────────────

// RecordingNotifier is a service.TripNotifier that keeps every trip it was given.
type RecordingNotifier struct {
	mu    sync.Mutex
	trips []domain.Trip
}

func (n *RecordingNotifier) NotifyNewTrip(ctx context.Context, trip domain.Trip) domain.TripEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.trips = append(n.trips, trip)
	return domain.TripEvent{TripNumber: trip.TripNumber, Title: service.NewTripTitle, Message: service.FormatTripMessage(trip)}
}

// TripNumbers returns the notified trip numbers in order.
func (n *RecordingNotifier) TripNumbers() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int64, 0, len(n.trips))
	for _, t := range n.trips {
		out = append(out, t.TripNumber)
	}
	return out
}

// Ensure interfaces are satisfied.
var (
	_ service.AuthAPI        = (*MockAuthAPI)(nil)
	_ service.TripsAPI       = (*MockTripsAPI)(nil)
	_ service.TollsAPI       = (*MockTollsAPI)(nil)
	_ service.LocationAPI    = (*MockLocationAPI)(nil)
	_ service.TokenSource    = (*MockTokenSource)(nil)
	_ service.Broadcaster    = (*MockBroadcaster)(nil)
	_ service.EventPublisher = (*MockEventPublisher)(nil)
	_ service.StatusRegistry = (*MockStatusRegistry)(nil)
	_ service.TripNotifier   = (*RecordingNotifier)(nil)
)

func newTrip(number int64, highways string, cost float64) domain.Trip {
	return domain.Trip{
		TripNumber:   number,
		Highways:     highways,
		TotalCost:    cost,
		LicensePlate: domain.LicensePlate{Value: "AA-00-BB"},
	}
}

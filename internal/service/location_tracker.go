package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"mtolling/internal/domain"
	"mtolling/internal/logging"
	"mtolling/internal/metrics"
	"mtolling/internal/positioning"
)

// LocationAPI forwards fixes to the server.
type LocationAPI interface {
	SendLocation(ctx context.Context, token string, fix domain.LocationFix) error
}

// LocationMirror stores the latest fix outside the process.
type LocationMirror interface {
	UpdateLocation(ctx context.Context, deviceID string, fix domain.LocationFix) error
}

// LocationTrackerConfig holds tracker configuration.
type LocationTrackerConfig struct {
	Request  positioning.Request
	DeviceID string
	Mirror   LocationMirror // optional
	Hub      Broadcaster    // optional
	Topic    string
	Logger   *logrus.Entry
}

// LocationTracker subscribes to positioning providers, keeps the latest
// valid fix and forwards it to the server.
type LocationTracker struct {
	api       LocationAPI
	tokens    TokenSource
	providers []positioning.Provider
	cfg       LocationTrackerConfig
	log       *logrus.Entry

	// current has a single writer: handleFix.
	current atomic.Pointer[domain.LocationFix]

	mu      sync.Mutex
	state   domain.TrackerState
	subs    []positioning.Subscription
	cancel  context.CancelFunc
	pending chan domain.LocationFix
	done    chan struct{}
}

// NewLocationTracker creates a new LocationTracker.
func NewLocationTracker(api LocationAPI, tokens TokenSource, providers []positioning.Provider, cfg LocationTrackerConfig) *LocationTracker {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Request == (positioning.Request{}) {
		cfg.Request = positioning.DefaultRequest()
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	return &LocationTracker{
		api:       api,
		tokens:    tokens,
		providers: providers,
		cfg:       cfg,
		log:       cfg.Logger,
		state:     domain.TrackerStateStopped,
	}
}

// Start subscribes to every enabled provider. It refuses to run without a
// valid token. Disabled or failing providers are logged and skipped; the
// tracker becomes active even when no provider could be subscribed.
func (t *LocationTracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state != domain.TrackerStateStopped {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	t.state = domain.TrackerStateStarting

	if _, ok := t.tokens.ValidToken(ctx); !ok {
		t.state = domain.TrackerStateStopped
		t.mu.Unlock()
		t.log.Warn("no valid token, location tracking not started")
		return ErrNotAuthenticated
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.pending = make(chan domain.LocationFix, 1)
	t.done = make(chan struct{})
	go t.forwardLoop(loopCtx, t.pending, t.done)
	t.mu.Unlock()

	// Providers may deliver synchronously from Subscribe, so no lock is held here.
	var subs []positioning.Subscription
	for _, p := range t.providers {
		log := t.log.WithField("provider", p.Name())
		if !p.Enabled() {
			log.Warn("provider disabled")
			continue
		}
		sub, err := p.Subscribe(loopCtx, t.cfg.Request, t.handleFix)
		if err != nil {
			log.WithError(err).Warn("subscribe failed")
			continue
		}
		subs = append(subs, sub)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TrackerStateStarting {
		// Stopped while subscribing.
		for _, sub := range subs {
			sub.Cancel()
		}
		return nil
	}
	t.subs = subs
	t.state = domain.TrackerStateActive
	t.log.WithField("providers", len(subs)).Info("location tracking started")
	return nil
}

// Stop deregisters from all providers. Safe to call when never started.
func (t *LocationTracker) Stop() {
	t.mu.Lock()
	if t.state == domain.TrackerStateStopped {
		t.mu.Unlock()
		return
	}

	for _, sub := range t.subs {
		sub.Cancel()
	}
	t.subs = nil
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.state = domain.TrackerStateStopped
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	t.log.Info("location tracking stopped")
}

// State returns the lifecycle state.
func (t *LocationTracker) State() domain.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Current returns the latest valid fix, or nil.
func (t *LocationTracker) Current() *domain.LocationFix {
	fix := t.current.Load()
	if fix == nil {
		return nil
	}
	cp := *fix
	return &cp
}

// handleFix publishes a valid fix and hands it to the forwarder,
// replacing any fix still waiting to be sent.
func (t *LocationTracker) handleFix(fix domain.LocationFix) {
	if !fix.IsValid() {
		metrics.RecordLocationFix("invalid")
		t.log.WithField("provider", fix.Provider).Warn("dropping invalid fix")
		return
	}

	t.current.Store(&fix)
	metrics.RecordLocationFix("accepted")
	t.log.WithFields(logrus.Fields{
		"provider": fix.Provider,
		"position": logging.MaskCoordinates(fix.Latitude, fix.Longitude),
		"accuracy": fix.AccuracyMeters,
	}).Debug("location update")

	ctx := context.Background()
	if t.cfg.Mirror != nil {
		if err := t.cfg.Mirror.UpdateLocation(ctx, t.cfg.DeviceID, fix); err != nil {
			t.log.WithError(err).Warn("mirror location failed")
		}
	}
	if t.cfg.Hub != nil {
		if err := t.cfg.Hub.Publish(ctx, t.cfg.Topic, fix); err != nil {
			t.log.WithError(err).Warn("broadcast location failed")
		}
	}

	t.mu.Lock()
	pending := t.pending
	active := t.state == domain.TrackerStateActive || t.state == domain.TrackerStateStarting
	t.mu.Unlock()
	if !active || pending == nil {
		return
	}

	for {
		select {
		case pending <- fix:
			return
		default:
		}
		select {
		case <-pending:
			metrics.RecordLocationFix("superseded")
		default:
		}
	}
}

func (t *LocationTracker) forwardLoop(ctx context.Context, pending <-chan domain.LocationFix, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case fix := <-pending:
			t.forward(ctx, fix)
		}
	}
}

// forward sends one fix. Failures are logged and the fix is dropped.
func (t *LocationTracker) forward(ctx context.Context, fix domain.LocationFix) {
	token, ok := t.tokens.ValidToken(ctx)
	if !ok {
		metrics.RecordLocationFix("unauthenticated")
		t.log.Debug("no token, dropping fix")
		return
	}
	if err := t.api.SendLocation(ctx, token, fix); err != nil {
		metrics.RecordLocationFix("send_failed")
		if ctx.Err() == nil {
			t.log.WithError(err).Warn("send location failed")
		}
		return
	}
	metrics.RecordLocationFix("sent")
}

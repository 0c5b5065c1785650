package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"mtolling/internal/domain"
	"mtolling/internal/logging"
	"mtolling/internal/metrics"
)

// DefaultTripPollInterval is the period between poll cycles.
const DefaultTripPollInterval = 2 * time.Second

// TripsAPI is the remote trip list call.
type TripsAPI interface {
	Trips(ctx context.Context, token string) ([]domain.Trip, error)
}

// FeatureFlag reports whether a feature is switched on.
type FeatureFlag func(ctx context.Context) (bool, error)

// TripNotifier receives each newly observed trip.
type TripNotifier interface {
	NotifyNewTrip(ctx context.Context, trip domain.Trip) domain.TripEvent
}

// TripPollerConfig holds poller configuration.
type TripPollerConfig struct {
	Interval time.Duration
	// Enabled gates Start and is re-checked every cycle. Nil means always enabled.
	Enabled     FeatureFlag
	NewRelicApp *newrelic.Application
	Logger      *logrus.Entry
}

// TripPoller periodically fetches the trip list and reports trips that were
// not present in the previous successful poll.
type TripPoller struct {
	api      TripsAPI
	tokens   TokenSource
	notifier TripNotifier
	interval time.Duration
	enabled  FeatureFlag
	nrApp    *newrelic.Application
	log      *logrus.Entry

	// snapshot has a single writer: the cycle holding cycleMu.
	snapshot atomic.Pointer[[]domain.Trip]
	cycleMu  sync.Mutex

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	lastPollAt time.Time
	lastErr    string
}

// NewTripPoller creates a new TripPoller.
func NewTripPoller(api TripsAPI, tokens TokenSource, notifier TripNotifier, cfg TripPollerConfig) *TripPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTripPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &TripPoller{
		api:      api,
		tokens:   tokens,
		notifier: notifier,
		interval: cfg.Interval,
		enabled:  cfg.Enabled,
		nrApp:    cfg.NewRelicApp,
		log:      cfg.Logger,
	}
}

// Start launches the poll loop. ctx is only used to read the feature flag;
// the loop runs until Stop is called or the flag is switched off.
func (p *TripPoller) Start(ctx context.Context) error {
	on, err := p.isEnabled(ctx)
	if err != nil {
		return err
	}
	if !on {
		p.log.Info("trip monitoring disabled, poller not started")
		return ErrTripMonitoringDisabled
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	p.log.WithField("interval", p.interval).Info("trip poller started")
	go p.loop(loopCtx, p.done)
	return nil
}

// Stop cancels the loop and waits for it to exit. Safe to call when stopped.
func (p *TripPoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the loop is active.
func (p *TripPoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Status returns a point-in-time view of the poller.
func (p *TripPoller) Status() domain.PollerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return domain.PollerStatus{
		Running:    p.running,
		LastPollAt: p.lastPollAt,
		LastError:  p.lastErr,
		KnownTrips: len(p.LastKnownTrips()),
	}
}

// LastKnownTrips returns a copy of the snapshot from the last successful poll.
func (p *TripPoller) LastKnownTrips() []domain.Trip {
	snap := p.snapshot.Load()
	if snap == nil {
		return []domain.Trip{}
	}
	out := make([]domain.Trip, len(*snap))
	copy(out, *snap)
	return out
}

// Reset forgets the snapshot so the next poll is treated as a cold start.
func (p *TripPoller) Reset() {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	p.snapshot.Store(nil)
}

// PollOnce runs a single cycle and returns the events it emitted.
// Cycles never overlap, whether driven by the loop or called directly.
func (p *TripPoller) PollOnce(ctx context.Context) ([]domain.TripEvent, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	if p.nrApp != nil {
		txn := p.nrApp.StartTransaction("trip-poll-cycle")
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	token, ok := p.tokens.ValidToken(ctx)
	if !ok {
		metrics.RecordTripPoll("skipped")
		p.record(ErrNotAuthenticated)
		return nil, ErrNotAuthenticated
	}

	current, err := p.api.Trips(ctx, token)
	if err != nil {
		metrics.RecordTripPoll("error")
		p.record(err)
		if txn := newrelic.FromContext(ctx); txn != nil {
			txn.NoticeError(err)
		}
		return nil, err
	}

	newTrips := diffTrips(p.snapshot.Load(), current)

	stored := make([]domain.Trip, len(current))
	copy(stored, current)
	p.snapshot.Store(&stored)

	metrics.RecordTripPoll("ok")
	p.record(nil)

	events := make([]domain.TripEvent, 0, len(newTrips))
	for _, trip := range newTrips {
		events = append(events, p.notifier.NotifyNewTrip(ctx, trip))
	}
	return events, nil
}

// diffTrips returns trips in current whose trip number is absent from previous.
// An empty previous snapshot yields nothing so that a cold start stays quiet.
func diffTrips(previous *[]domain.Trip, current []domain.Trip) []domain.Trip {
	if previous == nil || len(*previous) == 0 {
		return nil
	}

	known := make(map[int64]struct{}, len(*previous))
	for _, t := range *previous {
		known[t.TripNumber] = struct{}{}
	}

	var out []domain.Trip
	for _, t := range current {
		if _, ok := known[t.TripNumber]; ok {
			continue
		}
		known[t.TripNumber] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (p *TripPoller) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		p.mu.Unlock()
		close(done)
		p.log.Info("trip poller stopped")
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		on, err := p.isEnabled(ctx)
		if err != nil {
			p.log.WithError(err).Warn("read trip monitoring flag failed")
		} else if !on {
			p.log.Info("trip monitoring switched off")
			return
		}

		if err == nil {
			p.cycle(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *TripPoller) cycle(ctx context.Context) {
	events, err := p.PollOnce(ctx)
	switch {
	case err == nil:
		if len(events) > 0 {
			p.log.WithField("new_trips", len(events)).Info("poll cycle complete")
		}
	case errors.Is(err, ErrNotAuthenticated):
		p.log.Debug("no token, skipping poll cycle")
	case ctx.Err() != nil:
	default:
		p.log.WithError(err).Warn("poll cycle failed")
	}
}

func (p *TripPoller) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPollAt = time.Now()
	if err != nil {
		p.lastErr = err.Error()
	} else {
		p.lastErr = ""
	}
}

func (p *TripPoller) isEnabled(ctx context.Context) (bool, error) {
	if p.enabled == nil {
		return true, nil
	}
	return p.enabled(ctx)
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"mtolling/internal/domain"
	"mtolling/internal/logging"
	"mtolling/internal/repository"
)

// Feature names published to the status registry.
const (
	FeatureLocationTracking = "location_tracking"
	FeatureTripMonitoring   = "trip_monitoring"
)

// Default schedules.
const (
	DefaultTollRefreshSchedule = "@every 30m"
	DefaultHeartbeatSchedule   = "@every 30s"
	DefaultStatusTTL           = 90 * time.Second
)

// Boot actions accepted by OnBoot.
const (
	BootActionCompleted       = "android.intent.action.BOOT_COMPLETED"
	BootActionQuickbootPower  = "android.intent.action.QUICKBOOT_POWERON"
	BootActionLockedCompleted = "android.intent.action.LOCKED_BOOT_COMPLETED"
)

// IsBootAction reports whether action is a recognised boot trigger.
func IsBootAction(action string) bool {
	switch action {
	case BootActionCompleted, BootActionQuickbootPower, BootActionLockedCompleted:
		return true
	}
	return false
}

// StatusRegistry shares which features are active with other processes.
type StatusRegistry interface {
	MarkActive(ctx context.Context, feature string, ttl time.Duration) error
	MarkInactive(ctx context.Context, feature string) error
}

// SupervisorConfig holds supervisor configuration.
type SupervisorConfig struct {
	TollRefreshSchedule string
	HeartbeatSchedule   string
	StatusTTL           time.Duration
	Registry            StatusRegistry // optional
	Logger              *logrus.Entry
}

// AgentStatus is the combined view returned by Supervisor.Status.
type AgentStatus struct {
	LoggedIn       bool                `json:"logged_in"`
	Tracker        domain.TrackerState `json:"tracker"`
	Poller         domain.PollerStatus `json:"poller"`
	Settings       domain.Settings     `json:"settings"`
	TollsCached    int                 `json:"tolls_cached"`
	CurrentFixSeen bool                `json:"current_fix_seen"`
}

// Supervisor reacts to lifecycle triggers (boot, login, logout, explicit
// start and stop) by starting and stopping the background loops.
type Supervisor struct {
	auth     *AuthService
	settings *repository.Settings
	tracker  *LocationTracker
	poller   *TripPoller
	tolls    *TollCache
	registry StatusRegistry
	log      *logrus.Entry

	tollSchedule      string
	heartbeatSchedule string
	statusTTL         time.Duration

	mu         sync.Mutex
	cron       *cron.Cron
	refreshID  cron.EntryID
	refreshSet bool
}

// NewSupervisor creates a new Supervisor and starts its scheduler.
func NewSupervisor(
	auth *AuthService,
	settings *repository.Settings,
	tracker *LocationTracker,
	poller *TripPoller,
	tolls *TollCache,
	cfg SupervisorConfig,
) (*Supervisor, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.TollRefreshSchedule == "" {
		cfg.TollRefreshSchedule = DefaultTollRefreshSchedule
	}
	if cfg.HeartbeatSchedule == "" {
		cfg.HeartbeatSchedule = DefaultHeartbeatSchedule
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = DefaultStatusTTL
	}

	s := &Supervisor{
		auth:              auth,
		settings:          settings,
		tracker:           tracker,
		poller:            poller,
		tolls:             tolls,
		registry:          cfg.Registry,
		log:               cfg.Logger,
		tollSchedule:      cfg.TollRefreshSchedule,
		heartbeatSchedule: cfg.HeartbeatSchedule,
		statusTTL:         cfg.StatusTTL,
		cron:              cron.New(),
	}

	if _, err := cron.ParseStandard(cfg.TollRefreshSchedule); err != nil {
		return nil, err
	}
	if s.registry != nil {
		if _, err := s.cron.AddFunc(cfg.HeartbeatSchedule, s.heartbeat); err != nil {
			return nil, err
		}
	}
	s.cron.Start()
	return s, nil
}

// Login authenticates and then starts the loops as OnLogin does.
func (s *Supervisor) Login(ctx context.Context, email, password string) (domain.AuthToken, error) {
	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return domain.AuthToken{}, err
	}
	s.OnLogin(ctx)
	return token, nil
}

// OnLogin starts location tracking, the trip poller when enabled, and the
// periodic toll refresh.
func (s *Supervisor) OnLogin(ctx context.Context) {
	if err := s.StartTracking(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		s.log.WithError(err).Warn("start tracking after login failed")
	}
	s.startPoller(ctx)
	s.scheduleTollRefresh()
}

// OnBoot restores background work after a device boot when auto-start is
// enabled and a session exists. It reports whether anything was started.
func (s *Supervisor) OnBoot(ctx context.Context, action string) (bool, error) {
	log := s.log.WithField("action", action)
	if !IsBootAction(action) {
		log.Debug("ignoring unknown action")
		return false, nil
	}

	autoStart, err := s.settings.AutoStartEnabled(ctx)
	if err != nil {
		return false, err
	}
	if !autoStart {
		log.Info("auto-start disabled, nothing to do")
		return false, nil
	}
	if !s.auth.IsLoggedIn(ctx) {
		log.Info("not logged in, nothing to do")
		return false, nil
	}

	log.Info("boot completed, starting background work")
	s.OnLogin(ctx)
	return true, nil
}

// OnLogout stops every loop, clears the toll cache and the session.
func (s *Supervisor) OnLogout(ctx context.Context) error {
	s.StopTracking(ctx)
	s.stopPoller(ctx)
	s.unscheduleTollRefresh()
	s.tolls.ClearCache(ctx)
	s.poller.Reset()
	return s.auth.Logout(ctx)
}

// StartTracking starts the location tracker.
func (s *Supervisor) StartTracking(ctx context.Context) error {
	if err := s.tracker.Start(ctx); err != nil {
		return err
	}
	s.markActive(ctx, FeatureLocationTracking)
	return nil
}

// StopTracking stops the location tracker.
func (s *Supervisor) StopTracking(ctx context.Context) {
	s.tracker.Stop()
	s.markInactive(ctx, FeatureLocationTracking)
}

// SetTripMonitoring persists the flag and starts or stops the poller to match.
func (s *Supervisor) SetTripMonitoring(ctx context.Context, enabled bool) error {
	if err := s.settings.SetTripMonitoringEnabled(ctx, enabled); err != nil {
		return err
	}
	if !enabled {
		s.stopPoller(ctx)
		return nil
	}
	if s.auth.IsLoggedIn(ctx) {
		s.startPoller(ctx)
	}
	return nil
}

// SetAutoStart persists the auto-start flag.
func (s *Supervisor) SetAutoStart(ctx context.Context, enabled bool) error {
	return s.settings.SetAutoStartEnabled(ctx, enabled)
}

// Status returns the combined agent status.
func (s *Supervisor) Status(ctx context.Context) (AgentStatus, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return AgentStatus{}, err
	}
	cached, _ := s.tolls.Cached(ctx)
	return AgentStatus{
		LoggedIn:       s.auth.IsLoggedIn(ctx),
		Tracker:        s.tracker.State(),
		Poller:         s.poller.Status(),
		Settings:       settings,
		TollsCached:    len(cached),
		CurrentFixSeen: s.tracker.Current() != nil,
	}, nil
}

// Shutdown stops the loops and the scheduler without touching the session.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.StopTracking(ctx)
	s.stopPoller(ctx)
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}

func (s *Supervisor) startPoller(ctx context.Context) {
	err := s.poller.Start(ctx)
	switch {
	case err == nil, errors.Is(err, ErrAlreadyRunning):
		s.markActive(ctx, FeatureTripMonitoring)
	case errors.Is(err, ErrTripMonitoringDisabled):
	default:
		s.log.WithError(err).Warn("start trip poller failed")
	}
}

func (s *Supervisor) stopPoller(ctx context.Context) {
	s.poller.Stop()
	s.markInactive(ctx, FeatureTripMonitoring)
}

func (s *Supervisor) scheduleTollRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshSet {
		return
	}
	id, err := s.cron.AddFunc(s.tollSchedule, s.refreshTolls)
	if err != nil {
		s.log.WithError(err).Warn("schedule toll refresh failed")
		return
	}
	s.refreshID = id
	s.refreshSet = true
}

func (s *Supervisor) unscheduleTollRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.refreshSet {
		return
	}
	s.cron.Remove(s.refreshID)
	s.refreshSet = false
}

func (s *Supervisor) refreshTolls() {
	ctx := context.Background()
	token, ok := s.auth.ValidToken(ctx)
	if !ok {
		return
	}
	if _, err := s.tolls.GetTollPoints(ctx, token, true); err != nil {
		s.log.WithError(err).Warn("scheduled toll refresh failed")
	}
}

func (s *Supervisor) heartbeat() {
	ctx := context.Background()
	if s.tracker.State() == domain.TrackerStateActive {
		s.markActive(ctx, FeatureLocationTracking)
	}
	if s.poller.IsRunning() {
		s.markActive(ctx, FeatureTripMonitoring)
	}
}

func (s *Supervisor) markActive(ctx context.Context, feature string) {
	if s.registry == nil {
		return
	}
	if err := s.registry.MarkActive(ctx, feature, s.statusTTL); err != nil {
		s.log.WithError(err).WithField("feature", feature).Warn("publish status failed")
	}
}

func (s *Supervisor) markInactive(ctx context.Context, feature string) {
	if s.registry == nil {
		return
	}
	if err := s.registry.MarkInactive(ctx, feature); err != nil {
		s.log.WithError(err).WithField("feature", feature).Warn("clear status failed")
	}
}

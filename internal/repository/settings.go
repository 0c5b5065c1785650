package repository

import (
	"context"

	"mtolling/internal/domain"
)

// Flag defaults applied when a preference has never been written.
const (
	DefaultAutoStartEnabled      = true
	DefaultTripMonitoringEnabled = false
)

// Settings reads and writes feature flags in a CredentialStore.
type Settings struct {
	store CredentialStore
}

// NewSettings creates a new Settings.
func NewSettings(store CredentialStore) *Settings {
	return &Settings{store: store}
}

// AutoStartEnabled reports whether tracking should start on boot.
func (s *Settings) AutoStartEnabled(ctx context.Context) (bool, error) {
	return s.store.GetBool(ctx, KeyAutoStartEnabled, DefaultAutoStartEnabled)
}

// SetAutoStartEnabled persists the auto-start flag.
func (s *Settings) SetAutoStartEnabled(ctx context.Context, enabled bool) error {
	return s.store.SetBool(ctx, KeyAutoStartEnabled, enabled)
}

// TripMonitoringEnabled reports whether the trip poller may run.
func (s *Settings) TripMonitoringEnabled(ctx context.Context) (bool, error) {
	return s.store.GetBool(ctx, KeyTripMonitoringEnabled, DefaultTripMonitoringEnabled)
}

// SetTripMonitoringEnabled persists the trip monitoring flag.
func (s *Settings) SetTripMonitoringEnabled(ctx context.Context, enabled bool) error {
	return s.store.SetBool(ctx, KeyTripMonitoringEnabled, enabled)
}

// Load returns both flags.
func (s *Settings) Load(ctx context.Context) (domain.Settings, error) {
	autoStart, err := s.AutoStartEnabled(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	monitoring, err := s.TripMonitoringEnabled(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{AutoStartEnabled: autoStart, TripMonitoringEnabled: monitoring}, nil
}

package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtolling/internal/domain"
	"mtolling/internal/positioning"
	"mtolling/internal/service"
)

func lisbonFix(provider string) domain.LocationFix {
	return domain.LocationFix{
		Latitude:        38.7223,
		Longitude:       -9.1393,
		AccuracyMeters:  5,
		TimestampMillis: time.Now().UnixMilli(),
		Provider:        provider,
	}
}

// ──────────────────────────────────────────────
// 6. LOCATION TRACKING
// ──────────────────────────────────────────────

func TestLocationTracker_RefusesToStartWithoutToken(t *testing.T) {
	t.Parallel()

	registry := positioning.NewRegistry(positioning.ProviderGPS)
	tracker := service.NewLocationTracker(NewMockLocationAPI(), NewMockTokenSource(""), registry.Providers(), service.LocationTrackerConfig{})

	err := tracker.Start(context.Background())
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	assert.Equal(t, domain.TrackerStateStopped, tracker.State())

	gps, _ := registry.Get(positioning.ProviderGPS)
	assert.Zero(t, gps.Subscribers())
}

func TestLocationTracker_ForwardsPushedFix(t *testing.T) {
	t.Parallel()

	api := NewMockLocationAPI()
	hub := NewMockBroadcaster()
	registry := positioning.NewRegistry(positioning.ProviderGPS, positioning.ProviderNetwork)
	tracker := service.NewLocationTracker(api, NewMockTokenSource("tok"), registry.Providers(), service.LocationTrackerConfig{
		Hub:   hub,
		Topic: "location",
	})

	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()
	assert.Equal(t, domain.TrackerStateActive, tracker.State())

	delivered, err := registry.Push(lisbonFix(""))
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	require.True(t, api.WaitForCall(2*time.Second))
	sent := api.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, positioning.ProviderGPS, sent[0].Provider)

	current := tracker.Current()
	require.NotNil(t, current)
	assert.InDelta(t, 38.7223, current.Latitude, 1e-9)
	assert.Equal(t, 1, hub.Count("location"))
}

func TestLocationTracker_DropsInvalidFix(t *testing.T) {
	t.Parallel()

	invalid := domain.LocationFix{Latitude: 0, Longitude: 0, AccuracyMeters: 0, Provider: "gps"}
	static := positioning.NewStaticProvider("gps", true, invalid)
	api := NewMockLocationAPI()
	tracker := service.NewLocationTracker(api, NewMockTokenSource("tok"), []positioning.Provider{static}, service.LocationTrackerConfig{})

	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	assert.Nil(t, tracker.Current())
	assert.False(t, api.WaitForCall(50*time.Millisecond))
}

func TestLocationTracker_SkipsDisabledProviders(t *testing.T) {
	t.Parallel()

	registry := positioning.NewRegistry(positioning.ProviderGPS, positioning.ProviderNetwork)
	require.NoError(t, registry.SetEnabled(positioning.ProviderGPS, false))
	tracker := service.NewLocationTracker(NewMockLocationAPI(), NewMockTokenSource("tok"), registry.Providers(), service.LocationTrackerConfig{})

	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	gps, _ := registry.Get(positioning.ProviderGPS)
	network, _ := registry.Get(positioning.ProviderNetwork)
	assert.Zero(t, gps.Subscribers())
	assert.Equal(t, 1, network.Subscribers())
}

func TestLocationTracker_ActiveWithNoProviders(t *testing.T) {
	t.Parallel()

	static := positioning.NewStaticProvider("gps", false)
	tracker := service.NewLocationTracker(NewMockLocationAPI(), NewMockTokenSource("tok"), []positioning.Provider{static}, service.LocationTrackerConfig{})

	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()
	assert.Equal(t, domain.TrackerStateActive, tracker.State())
}

func TestLocationTracker_SendFailureIsDropped(t *testing.T) {
	t.Parallel()

	api := NewMockLocationAPI()
	api.SendError = ErrMockUnavailable
	static := positioning.NewStaticProvider("gps", true, lisbonFix("gps"))
	tracker := service.NewLocationTracker(api, NewMockTokenSource("tok"), []positioning.Provider{static}, service.LocationTrackerConfig{})

	require.NoError(t, tracker.Start(context.Background()))
	defer tracker.Stop()

	require.True(t, api.WaitForCall(2*time.Second))
	assert.Empty(t, api.Sent())
	assert.NotNil(t, tracker.Current())
	assert.Equal(t, domain.TrackerStateActive, tracker.State())
}

func TestLocationTracker_StopDeregistersAndIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := positioning.NewRegistry(positioning.ProviderGPS)
	tracker := service.NewLocationTracker(NewMockLocationAPI(), NewMockTokenSource("tok"), registry.Providers(), service.LocationTrackerConfig{})

	// Never started.
	tracker.Stop()

	require.NoError(t, tracker.Start(context.Background()))
	assert.ErrorIs(t, tracker.Start(context.Background()), service.ErrAlreadyRunning)

	tracker.Stop()
	tracker.Stop()

	gps, _ := registry.Get(positioning.ProviderGPS)
	assert.Zero(t, gps.Subscribers())
	assert.Equal(t, domain.TrackerStateStopped, tracker.State())

	// Restartable.
	require.NoError(t, tracker.Start(context.Background()))
	tracker.Stop()
}

func TestLocationTracker_UnknownProviderRejected(t *testing.T) {
	t.Parallel()

	registry := positioning.NewRegistry(positioning.ProviderGPS)
	_, err := registry.Push(lisbonFix("fused"))
	assert.ErrorIs(t, err, positioning.ErrUnknownProvider)
}

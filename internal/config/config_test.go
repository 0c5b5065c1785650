package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"MTOLLING_BASE_URL", "TRIP_POLL_INTERVAL", "LOCATION_PROVIDERS", "REDIS_ENABLED", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "https://dev.a-to-be.com", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Tracking.TripPollInterval)
	assert.Equal(t, 5*time.Second, cfg.Tracking.LocationMinInterval)
	assert.InDelta(t, 10.0, cfg.Tracking.LocationMinDistance, 1e-9)
	assert.Equal(t, []string{"gps", "network"}, cfg.Tracking.Providers)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MTOLLING_BASE_URL", "https://api.example.pt")
	t.Setenv("TRIP_POLL_INTERVAL", "10s")
	t.Setenv("LOCATION_PROVIDERS", " gps , ,fused")
	t.Setenv("LOCATION_MIN_DISTANCE_METERS", "25.5")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()

	assert.Equal(t, "https://api.example.pt", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Tracking.TripPollInterval)
	assert.Equal(t, []string{"gps", "fused"}, cfg.Tracking.Providers)
	assert.InDelta(t, 25.5, cfg.Tracking.LocationMinDistance, 1e-9)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TRIP_POLL_INTERVAL", "often")
	t.Setenv("REDIS_ENABLED", "sometimes")
	t.Setenv("LOCATION_PROVIDERS", ",,")

	cfg := Load()

	assert.Equal(t, 2*time.Second, cfg.Tracking.TripPollInterval)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"gps", "network"}, cfg.Tracking.Providers)
}

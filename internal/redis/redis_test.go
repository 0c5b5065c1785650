package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtolling/internal/domain"
	"mtolling/internal/repository"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ──────────────────────────────────────────────
// CREDENTIAL STORE
// ──────────────────────────────────────────────

func TestCredentialStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewCredentialStore(client)

	_, err := store.GetString(ctx, repository.KeyAuthToken)
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)

	require.NoError(t, store.SetString(ctx, repository.KeyAuthToken, "tok"))
	require.NoError(t, store.SetBool(ctx, repository.KeyTripMonitoringEnabled, true))

	assert.Equal(t, "tok", mustGet(t, mr, "mtolling:auth:auth_token"))
	assert.Equal(t, "true", mustGet(t, mr, "mtolling:prefs:trip_monitoring_enabled"))

	v, err := store.GetString(ctx, repository.KeyAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	on, err := store.GetBool(ctx, repository.KeyTripMonitoringEnabled, false)
	require.NoError(t, err)
	assert.True(t, on)

	def, err := store.GetBool(ctx, repository.KeyAutoStartEnabled, true)
	require.NoError(t, err)
	assert.True(t, def)
}

func TestCredentialStore_DeleteAuthKeysKeepsPreferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewCredentialStore(client)

	require.NoError(t, store.SetString(ctx, repository.KeyAuthToken, "tok"))
	require.NoError(t, store.SetString(ctx, repository.KeyUserEmail, "a@b.pt"))
	require.NoError(t, store.SetBool(ctx, repository.KeyAutoStartEnabled, false))

	require.NoError(t, store.Delete(ctx, repository.AuthKeys...))

	assert.False(t, mr.Exists("mtolling:auth:auth_token"))
	assert.False(t, mr.Exists("mtolling:auth:user_email"))

	on, err := store.GetBool(ctx, repository.KeyAutoStartEnabled, true)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestCredentialStore_CorruptFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewCredentialStore(client)

	require.NoError(t, mr.Set("mtolling:prefs:auto_start_enabled", "maybe"))

	v, err := store.GetBool(ctx, repository.KeyAutoStartEnabled, true)
	assert.Error(t, err)
	assert.True(t, v)
}

// ──────────────────────────────────────────────
// STATUS REGISTRY
// ──────────────────────────────────────────────

func TestStatusRegistry_ExpiresWithoutHeartbeat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newTestClient(t)
	reg := NewStatusRegistry(client, "agent-1")

	require.NoError(t, reg.MarkActive(ctx, "trip_poller", 10*time.Second))
	active, err := reg.IsActive(ctx, "trip_poller")
	require.NoError(t, err)
	assert.True(t, active)

	mr.FastForward(11 * time.Second)

	active, err = reg.IsActive(ctx, "trip_poller")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestStatusRegistry_ClaimIsExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newTestClient(t)
	first := NewStatusRegistry(client, "agent-1")
	second := NewStatusRegistry(client, "agent-2")

	ok, err := first.Claim(ctx, "location_tracker", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Claim(ctx, "location_tracker", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = first.Claim(ctx, "location_tracker", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "owner can refresh its claim")

	require.NoError(t, first.MarkInactive(ctx, "location_tracker"))
	ok, err = second.Claim(ctx, "location_tracker", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

// ──────────────────────────────────────────────
// LOCATION MIRROR AND TOLL STORE
// ──────────────────────────────────────────────

func TestLocationMirror(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newTestClient(t)
	mirror := NewLocationMirror(client)

	latest, err := mirror.Latest(ctx, "dev")
	require.NoError(t, err)
	assert.Nil(t, latest)

	fix := domain.LocationFix{Latitude: 38.72, Longitude: -9.14, AccuracyMeters: 5, Provider: "gps"}
	require.NoError(t, mirror.UpdateLocation(ctx, "dev", fix))

	latest, err = mirror.Latest(ctx, "dev")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, fix, *latest)

	require.NoError(t, mirror.RemoveLocation(ctx, "dev"))
	latest, err = mirror.Latest(ctx, "dev")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestTollStore_SaveLoadNearby(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewTollStore(client)

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	points := []domain.TollPoint{
		{ID: "lisboa", Name: "A1 Lisboa", Latitude: 38.78, Longitude: -9.10, IsActive: true},
		{ID: "porto", Name: "A1 Porto", Latitude: 41.15, Longitude: -8.61, IsActive: true},
	}
	require.NoError(t, store.Save(ctx, points))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, points, loaded)

	ids, err := store.Nearby(ctx, 38.75, -9.12, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"lisboa"}, ids)

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

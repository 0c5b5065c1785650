package tests

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtolling/internal/domain"
	internalRedis "mtolling/internal/redis"
	"mtolling/internal/service"
)

var (
	tollLisbon = domain.TollPoint{ID: "T1", Name: "A1 Lisboa", Latitude: 38.78, Longitude: -9.10, IsActive: true}
	tollPorto  = domain.TollPoint{ID: "T2", Name: "A1 Porto", Latitude: 41.15, Longitude: -8.61, IsActive: true}
)

func newRedisTollStore(t *testing.T) *internalRedis.TollStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return internalRedis.NewTollStore(client)
}

// ──────────────────────────────────────────────
// 5. TOLL CACHE
// ──────────────────────────────────────────────

func TestTollCache_ServesCacheWithoutRefetch(t *testing.T) {
	t.Parallel()

	api := NewMockTollsAPI(tollLisbon, tollPorto)
	cache := service.NewTollCache(api, nil, nil)

	points, err := cache.GetTollPoints(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Len(t, points, 2)

	points, err = cache.GetTollPoints(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, int32(1), api.Calls())

	_, err = cache.GetTollPoints(context.Background(), "tok", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.Calls())
}

func TestTollCache_StaleListOnRefreshFailure(t *testing.T) {
	t.Parallel()

	api := NewMockTollsAPI(tollLisbon)
	cache := service.NewTollCache(api, nil, nil)

	_, err := cache.GetTollPoints(context.Background(), "tok", false)
	require.NoError(t, err)

	api.SetError(ErrMockUnavailable)
	points, err := cache.GetTollPoints(context.Background(), "tok", true)
	require.NoError(t, err)
	assert.Equal(t, []domain.TollPoint{tollLisbon}, points)
}

func TestTollCache_FailsWhenNothingCached(t *testing.T) {
	t.Parallel()

	api := NewMockTollsAPI()
	api.SetError(ErrMockUnavailable)
	cache := service.NewTollCache(api, nil, nil)

	_, err := cache.GetTollPoints(context.Background(), "tok", false)
	assert.ErrorIs(t, err, ErrMockUnavailable)
}

func TestTollCache_NoTokenNoNetworkCall(t *testing.T) {
	t.Parallel()

	api := NewMockTollsAPI(tollLisbon)
	cache := service.NewTollCache(api, nil, nil)

	_, err := cache.GetTollPoints(context.Background(), "", true)
	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	assert.Equal(t, int32(0), api.Calls())
}

func TestTollCache_ReturnedListIsACopy(t *testing.T) {
	t.Parallel()

	cache := service.NewTollCache(NewMockTollsAPI(tollLisbon), nil, nil)

	points, err := cache.GetTollPoints(context.Background(), "tok", false)
	require.NoError(t, err)
	points[0].Name = "mutated"

	cached, ok := cache.Cached(context.Background())
	require.True(t, ok)
	assert.Equal(t, "A1 Lisboa", cached[0].Name)
}

func TestTollCache_SnapshotSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newRedisTollStore(t)

	first := service.NewTollCache(NewMockTollsAPI(tollLisbon, tollPorto), store, nil)
	_, err := first.GetTollPoints(ctx, "tok", false)
	require.NoError(t, err)

	offline := NewMockTollsAPI()
	offline.SetError(ErrMockUnavailable)
	second := service.NewTollCache(offline, store, nil)

	points, err := second.GetTollPoints(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, int32(0), offline.Calls())

	second.ClearCache(ctx)
	_, ok := second.Cached(ctx)
	assert.False(t, ok)
}

func TestTollCache_Nearby(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		store service.TollSnapshotStore
	}{
		{name: "in memory scan", store: nil},
		{name: "redis geo index", store: newRedisTollStore(t)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			cache := service.NewTollCache(NewMockTollsAPI(tollLisbon, tollPorto), tc.store, nil)
			_, err := cache.GetTollPoints(ctx, "tok", false)
			require.NoError(t, err)

			near, err := cache.Nearby(ctx, 38.79, -9.11, 5)
			require.NoError(t, err)
			require.Len(t, near, 1)
			assert.Equal(t, "T1", near[0].ID)
			assert.Greater(t, near[0].DistanceMeters, 0.0)
			assert.Less(t, near[0].DistanceMeters, 5000.0)

			all, err := cache.Nearby(ctx, 38.79, -9.11, 400)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "T1", all[0].ID)
		})
	}
}

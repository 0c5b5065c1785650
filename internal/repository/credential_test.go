package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCredentialStore_Strings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryCredentialStore()

	_, err := s.GetString(ctx, KeyAuthToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.SetString(ctx, KeyAuthToken, "tok"))
	v, err := s.GetString(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, s.Delete(ctx, KeyAuthToken, "never-set"))
	_, err = s.GetString(ctx, KeyAuthToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSettings_DefaultsAndOverrides(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	settings := NewSettings(store)

	got, err := settings.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.AutoStartEnabled)
	assert.False(t, got.TripMonitoringEnabled)

	require.NoError(t, settings.SetAutoStartEnabled(ctx, false))
	require.NoError(t, settings.SetTripMonitoringEnabled(ctx, true))

	got, err = settings.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.AutoStartEnabled)
	assert.True(t, got.TripMonitoringEnabled)
}

func TestSettings_SurviveAuthKeyDeletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryCredentialStore()
	settings := NewSettings(store)

	require.NoError(t, store.SetString(ctx, KeyAuthToken, "tok"))
	require.NoError(t, store.SetString(ctx, KeyUserEmail, "a@b.pt"))
	require.NoError(t, settings.SetTripMonitoringEnabled(ctx, true))

	require.NoError(t, store.Delete(ctx, AuthKeys...))

	on, err := settings.TripMonitoringEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

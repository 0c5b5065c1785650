package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtolling/internal/domain"
)

func TestMemoryTripEventRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewMemoryTripEventRepository(2)

	for _, n := range []int64{1, 2, 2, 3} {
		require.NoError(t, repo.Save(ctx, &domain.TripEvent{ID: "e", TripNumber: n}))
	}

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].TripNumber)
	assert.Equal(t, int64(2), recent[1].TripNumber)

	_, err = repo.GetByTripNumber(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	e, err := repo.GetByTripNumber(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.TripNumber)
}

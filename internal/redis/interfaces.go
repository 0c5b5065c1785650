package redis

import (
	"context"
	"time"

	"mtolling/internal/domain"
	"mtolling/internal/repository"
)

// LocationMirrorInterface defines the interface for mirroring the current fix.
type LocationMirrorInterface interface {
	UpdateLocation(ctx context.Context, deviceID string, fix domain.LocationFix) error
	Latest(ctx context.Context, deviceID string) (*domain.LocationFix, error)
	RemoveLocation(ctx context.Context, deviceID string) error
}

// StatusRegistryInterface defines the interface for the shared feature status registry.
type StatusRegistryInterface interface {
	MarkActive(ctx context.Context, feature string, ttl time.Duration) error
	Claim(ctx context.Context, feature string, ttl time.Duration) (bool, error)
	MarkInactive(ctx context.Context, feature string) error
	IsActive(ctx context.Context, feature string) (bool, error)
}

// TollStoreInterface defines the interface for the persisted toll snapshot.
type TollStoreInterface interface {
	Load(ctx context.Context) ([]domain.TollPoint, error)
	Save(ctx context.Context, points []domain.TollPoint) error
	Clear(ctx context.Context) error
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error)
}

// Ensure concrete types implement interfaces.
var (
	_ repository.CredentialStore = (*CredentialStore)(nil)
	_ LocationMirrorInterface    = (*LocationMirror)(nil)
	_ StatusRegistryInterface    = (*StatusRegistry)(nil)
	_ TollStoreInterface         = (*TollStore)(nil)
)

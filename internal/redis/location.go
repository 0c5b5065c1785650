package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"mtolling/internal/domain"
)

const (
	locationGeoKey    = "mtolling:geo:devices"
	locationFixPrefix = "mtolling:location:"
)

// LocationMirror keeps the latest fix of each device in Redis.
type LocationMirror struct {
	client *redis.Client
}

// NewLocationMirror creates a new LocationMirror.
func NewLocationMirror(client *redis.Client) *LocationMirror {
	return &LocationMirror{client: client}
}

// UpdateLocation stores the fix and indexes its position using GEOADD.
func (s *LocationMirror) UpdateLocation(ctx context.Context, deviceID string, fix domain.LocationFix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.GeoAdd(ctx, locationGeoKey, &redis.GeoLocation{
		Name:      deviceID,
		Longitude: fix.Longitude,
		Latitude:  fix.Latitude,
	})
	pipe.Set(ctx, locationFixPrefix+deviceID, data, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// Latest returns the last mirrored fix, or nil when none exists.
func (s *LocationMirror) Latest(ctx context.Context, deviceID string) (*domain.LocationFix, error) {
	data, err := s.client.Get(ctx, locationFixPrefix+deviceID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var fix domain.LocationFix
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, err
	}
	return &fix, nil
}

// RemoveLocation removes a device from the geo index and drops its fix.
func (s *LocationMirror) RemoveLocation(ctx context.Context, deviceID string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, locationGeoKey, deviceID)
	pipe.Del(ctx, locationFixPrefix+deviceID)
	_, err := pipe.Exec(ctx)
	return err
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mtolling/internal/domain"
)

// TollSnapshotTTL bounds how long a persisted toll list may seed a fresh process.
const TollSnapshotTTL = 24 * time.Hour

const (
	tollSnapshotKey = "mtolling:cache:tolls"
	tollGeoKey      = "mtolling:geo:tolls"
)

// TollStore persists the toll point snapshot and a geo index over it.
type TollStore struct {
	client *redis.Client
}

// NewTollStore creates a new TollStore.
func NewTollStore(client *redis.Client) *TollStore {
	return &TollStore{client: client}
}

// Load returns the persisted snapshot, or nil on a miss.
func (s *TollStore) Load(ctx context.Context) ([]domain.TollPoint, error) {
	data, err := s.client.Get(ctx, tollSnapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var points []domain.TollPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Save replaces the snapshot and rebuilds the geo index in one transaction.
func (s *TollStore) Save(ctx context.Context, points []domain.TollPoint) error {
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tollSnapshotKey, data, TollSnapshotTTL)
	pipe.Del(ctx, tollGeoKey)

	geo := make([]*redis.GeoLocation, 0, len(points))
	for _, p := range points {
		if p.ID == "" || p.Latitude == 0 || p.Longitude == 0 {
			continue
		}
		geo = append(geo, &redis.GeoLocation{Name: p.ID, Longitude: p.Longitude, Latitude: p.Latitude})
	}
	if len(geo) > 0 {
		pipe.GeoAdd(ctx, tollGeoKey, geo...)
		pipe.Expire(ctx, tollGeoKey, TollSnapshotTTL)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Clear removes the snapshot and the geo index.
func (s *TollStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, tollSnapshotKey, tollGeoKey).Err()
}

// Nearby returns toll point IDs within radiusKm, nearest first.
func (s *TollStore) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	results, err := s.client.GeoRadius(ctx, tollGeoKey, lng, lat, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Name)
	}
	return ids, nil
}

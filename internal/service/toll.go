package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"mtolling/internal/domain"
	"mtolling/internal/logging"
	"mtolling/internal/metrics"
	"mtolling/internal/positioning"
)

// TollsAPI is the remote toll list call.
type TollsAPI interface {
	Tolls(ctx context.Context, token string) ([]domain.TollPoint, error)
}

// TollSnapshotStore persists the toll list across restarts and answers radius queries.
type TollSnapshotStore interface {
	Load(ctx context.Context) ([]domain.TollPoint, error)
	Save(ctx context.Context, points []domain.TollPoint) error
	Clear(ctx context.Context) error
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error)
}

// NearbyTollPoint is a toll point with its distance from a query position.
type NearbyTollPoint struct {
	domain.TollPoint
	DistanceMeters float64 `json:"distance_meters"`
}

// TollCache is a read-through cache over the toll list that serves the
// last good snapshot when a refresh fails.
type TollCache struct {
	api      TollsAPI
	snapshot TollSnapshotStore // optional
	log      *logrus.Entry

	refreshMu sync.Mutex
	points    atomic.Pointer[[]domain.TollPoint]
}

// NewTollCache creates a new TollCache. snapshot may be nil.
func NewTollCache(api TollsAPI, snapshot TollSnapshotStore, log *logrus.Entry) *TollCache {
	if log == nil {
		log = logging.Discard()
	}
	return &TollCache{api: api, snapshot: snapshot, log: log}
}

// GetTollPoints returns the cached list unless forceRefresh is set or nothing is cached.
// A failed fetch falls back to the cached list; it only fails when there is none.
func (c *TollCache) GetTollPoints(ctx context.Context, token string, forceRefresh bool) ([]domain.TollPoint, error) {
	if !forceRefresh {
		if cached, ok := c.Cached(ctx); ok {
			metrics.RecordTollLookup("cache")
			return cached, nil
		}
	}
	if token == "" {
		if cached, ok := c.Cached(ctx); ok {
			metrics.RecordTollLookup("stale")
			return cached, nil
		}
		return nil, ErrNotAuthenticated
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	points, err := c.api.Tolls(ctx, token)
	if err != nil {
		if cached := c.points.Load(); cached != nil {
			c.log.WithError(err).Warn("toll refresh failed, serving cached list")
			metrics.RecordTollLookup("stale")
			return clonePoints(*cached), nil
		}
		metrics.RecordTollLookup("error")
		return nil, err
	}

	stored := clonePoints(points)
	c.points.Store(&stored)
	metrics.RecordTollLookup("network")
	c.log.WithField("count", len(points)).Info("toll points refreshed")

	if c.snapshot != nil {
		if err := c.snapshot.Save(ctx, stored); err != nil {
			c.log.WithError(err).Warn("persist toll snapshot failed")
		}
	}
	return clonePoints(stored), nil
}

// Cached returns the cached list without a network call. A persisted
// snapshot seeds the in-memory cache on first use.
func (c *TollCache) Cached(ctx context.Context) ([]domain.TollPoint, bool) {
	if cached := c.points.Load(); cached != nil {
		return clonePoints(*cached), true
	}
	if c.snapshot == nil {
		return nil, false
	}

	persisted, err := c.snapshot.Load(ctx)
	if err != nil {
		c.log.WithError(err).Warn("load toll snapshot failed")
		return nil, false
	}
	if persisted == nil {
		return nil, false
	}
	c.points.CompareAndSwap(nil, &persisted)
	return clonePoints(*c.points.Load()), true
}

// ClearCache drops the cached list and any persisted snapshot.
func (c *TollCache) ClearCache(ctx context.Context) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.points.Store(nil)
	if c.snapshot != nil {
		if err := c.snapshot.Clear(ctx); err != nil {
			c.log.WithError(err).Warn("clear toll snapshot failed")
		}
	}
}

// Nearby returns cached toll points within radiusKm of a position, nearest first.
func (c *TollCache) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyTollPoint, error) {
	cached, ok := c.Cached(ctx)
	if !ok {
		return []NearbyTollPoint{}, nil
	}

	byID := make(map[string]domain.TollPoint, len(cached))
	for _, p := range cached {
		byID[p.ID] = p
	}

	if c.snapshot != nil {
		ids, err := c.snapshot.Nearby(ctx, lat, lng, radiusKm)
		if err == nil {
			out := make([]NearbyTollPoint, 0, len(ids))
			for _, id := range ids {
				if p, ok := byID[id]; ok {
					out = append(out, NearbyTollPoint{
						TollPoint:      p,
						DistanceMeters: positioning.DistanceMeters(lat, lng, p.Latitude, p.Longitude),
					})
				}
			}
			return out, nil
		}
		c.log.WithError(err).Warn("geo lookup failed, scanning cached list")
	}

	limit := radiusKm * 1000
	out := make([]NearbyTollPoint, 0)
	for _, p := range cached {
		d := positioning.DistanceMeters(lat, lng, p.Latitude, p.Longitude)
		if d <= limit {
			out = append(out, NearbyTollPoint{TollPoint: p, DistanceMeters: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, nil
}

func clonePoints(points []domain.TollPoint) []domain.TollPoint {
	out := make([]domain.TollPoint, len(points))
	copy(out, points)
	return out
}

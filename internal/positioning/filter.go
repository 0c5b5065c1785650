package positioning

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"mtolling/internal/domain"
)

const earthRadiusMeters = 6371000.0

// Filter drops fixes that arrive sooner than the minimum interval or closer
// than the minimum distance to the last delivered fix. The first fix always passes.
type Filter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	minDistance float64
	last        *domain.LocationFix
	now         func() time.Time
}

// NewFilter creates a Filter for req.
func NewFilter(req Request) *Filter {
	return newFilterWithClock(req, time.Now)
}

func newFilterWithClock(req Request, now func() time.Time) *Filter {
	limit := rate.Inf
	if req.MinInterval > 0 {
		limit = rate.Every(req.MinInterval)
	}
	return &Filter{
		limiter:     rate.NewLimiter(limit, 1),
		minDistance: req.MinDistance,
		now:         now,
	}
}

// Allow reports whether fix should be delivered and, if so, records it.
// Invalid fixes are rejected without touching the interval or the last position.
func (f *Filter) Allow(fix domain.LocationFix) bool {
	if !fix.IsValid() {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last != nil && f.minDistance > 0 {
		if DistanceMeters(f.last.Latitude, f.last.Longitude, fix.Latitude, fix.Longitude) < f.minDistance {
			return false
		}
	}
	if !f.limiter.AllowN(f.now(), 1) {
		return false
	}

	f.last = &fix
	return true
}

// Wrap returns fn guarded by the filter.
func (f *Filter) Wrap(fn func(domain.LocationFix)) func(domain.LocationFix) {
	return func(fix domain.LocationFix) {
		if f.Allow(fix) {
			fn(fix)
		}
	}
}

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

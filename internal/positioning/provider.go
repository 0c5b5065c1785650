// Package positioning adapts positioning sources into filtered streams of fixes.
package positioning

import (
	"context"
	"errors"
	"time"

	"mtolling/internal/domain"
)

// Default subscription parameters.
const (
	DefaultMinInterval = 5 * time.Second
	DefaultMinDistance = 10.0
)

var (
	// ErrProviderDisabled is returned when subscribing to a disabled provider.
	ErrProviderDisabled = errors.New("provider disabled")

	// ErrUnknownProvider is returned when a fix names a provider that is not registered.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Request configures a subscription.
type Request struct {
	MinInterval time.Duration
	// MinDistance is in meters.
	MinDistance float64
}

// DefaultRequest returns the standard 5s / 10m request.
func DefaultRequest() Request {
	return Request{MinInterval: DefaultMinInterval, MinDistance: DefaultMinDistance}
}

// Subscription is an active registration with a provider.
type Subscription interface {
	// Cancel deregisters the subscription. Calling it more than once is safe.
	Cancel()
}

// Provider is a source of location fixes.
type Provider interface {
	Name() string
	Enabled() bool
	// Subscribe delivers fixes to fn until the subscription is cancelled or ctx is done.
	Subscribe(ctx context.Context, req Request, fn func(domain.LocationFix)) (Subscription, error)
}

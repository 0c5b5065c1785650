package positioning

import (
	"fmt"

	"mtolling/internal/domain"
)

// Well-known provider names.
const (
	ProviderGPS     = "gps"
	ProviderNetwork = "network"
)

// Registry routes fixes pushed by the host to the named push provider.
type Registry struct {
	order     []string
	providers map[string]*PushProvider
}

// NewRegistry creates push providers for each name. The first name is the default route.
func NewRegistry(names ...string) *Registry {
	r := &Registry{providers: make(map[string]*PushProvider, len(names))}
	for _, n := range names {
		if _, ok := r.providers[n]; ok {
			continue
		}
		r.order = append(r.order, n)
		r.providers[n] = NewPushProvider(n)
	}
	return r
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.providers[n])
	}
	return out
}

// Get returns the named provider.
func (r *Registry) Get(name string) (*PushProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Push routes fix by its Provider field, falling back to the default provider when empty.
// It returns the number of subscribers that received the fix before filtering.
func (r *Registry) Push(fix domain.LocationFix) (int, error) {
	name := fix.Provider
	if name == "" {
		if len(r.order) == 0 {
			return 0, ErrUnknownProvider
		}
		name = r.order[0]
	}
	p, ok := r.providers[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p.Push(fix), nil
}

// SetEnabled toggles a provider's availability.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	p, ok := r.providers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	p.SetEnabled(enabled)
	return nil
}

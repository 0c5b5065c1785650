package positioning

import (
	"context"

	"mtolling/internal/domain"
)

// StaticProvider replays a fixed list of fixes on subscribe.
type StaticProvider struct {
	name    string
	enabled bool
	fixes   []domain.LocationFix
}

// NewStaticProvider creates a provider that emits fixes once per subscription.
func NewStaticProvider(name string, enabled bool, fixes ...domain.LocationFix) *StaticProvider {
	return &StaticProvider{name: name, enabled: enabled, fixes: fixes}
}

func (p *StaticProvider) Name() string  { return p.name }
func (p *StaticProvider) Enabled() bool { return p.enabled }

// Subscribe delivers the fixes synchronously through the request filter.
func (p *StaticProvider) Subscribe(ctx context.Context, req Request, fn func(domain.LocationFix)) (Subscription, error) {
	if !p.enabled {
		return nil, ErrProviderDisabled
	}
	deliver := NewFilter(req).Wrap(fn)
	for _, fix := range p.fixes {
		if ctx.Err() != nil {
			break
		}
		deliver(fix)
	}
	return noopSubscription{}, nil
}

type noopSubscription struct{}

func (noopSubscription) Cancel() {}

var _ Provider = (*StaticProvider)(nil)

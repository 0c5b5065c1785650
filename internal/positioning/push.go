package positioning

import (
	"context"
	"sync"
	"sync/atomic"

	"mtolling/internal/domain"
)

// PushProvider is fed by the host positioning subsystem through Push.
type PushProvider struct {
	name    string
	enabled atomic.Bool

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(domain.LocationFix)
}

// NewPushProvider creates an enabled provider.
func NewPushProvider(name string) *PushProvider {
	p := &PushProvider{name: name, subs: make(map[uint64]func(domain.LocationFix))}
	p.enabled.Store(true)
	return p
}

// Name returns the provider name.
func (p *PushProvider) Name() string { return p.name }

// Enabled reports whether the host reports this provider as available.
func (p *PushProvider) Enabled() bool { return p.enabled.Load() }

// SetEnabled records provider availability. Disabling does not cancel existing subscriptions.
func (p *PushProvider) SetEnabled(enabled bool) { p.enabled.Store(enabled) }

// Subscribe registers fn behind a Filter built from req.
func (p *PushProvider) Subscribe(ctx context.Context, req Request, fn func(domain.LocationFix)) (Subscription, error) {
	if !p.Enabled() {
		return nil, ErrProviderDisabled
	}

	filtered := NewFilter(req).Wrap(fn)

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[id] = filtered
	p.mu.Unlock()

	sub := &pushSubscription{cancel: func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}}

	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()

	return sub, nil
}

// Push delivers fix to every subscriber. Fixes are dropped while disabled.
func (p *PushProvider) Push(fix domain.LocationFix) int {
	if !p.Enabled() {
		return 0
	}
	if fix.Provider == "" {
		fix.Provider = p.name
	}

	p.mu.RLock()
	targets := make([]func(domain.LocationFix), 0, len(p.subs))
	for _, fn := range p.subs {
		targets = append(targets, fn)
	}
	p.mu.RUnlock()

	for _, fn := range targets {
		fn(fix)
	}
	return len(targets)
}

// Subscribers returns the number of active subscriptions.
func (p *PushProvider) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

type pushSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *pushSubscription) Cancel() {
	s.once.Do(s.cancel)
}

var _ Provider = (*PushProvider)(nil)

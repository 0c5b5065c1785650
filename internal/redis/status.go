package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusKeyPrefix = "mtolling:status:"

// StatusRegistry publishes which background features are active so that
// other processes can observe them. Entries expire unless refreshed.
type StatusRegistry struct {
	client *redis.Client
	owner  string
}

// NewStatusRegistry creates a registry writing entries owned by owner.
func NewStatusRegistry(client *redis.Client, owner string) *StatusRegistry {
	return &StatusRegistry{client: client, owner: owner}
}

// MarkActive records feature as active for ttl.
func (s *StatusRegistry) MarkActive(ctx context.Context, feature string, ttl time.Duration) error {
	return s.client.Set(ctx, statusKeyPrefix+feature, s.owner, ttl).Err()
}

// Claim marks feature active only if no other owner holds it.
// Returns true if this registry now owns the entry.
func (s *StatusRegistry) Claim(ctx context.Context, feature string, ttl time.Duration) (bool, error) {
	key := statusKeyPrefix + feature

	ok, err := s.client.SetNX(ctx, key, s.owner, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	holder, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if holder != s.owner {
		return false, nil
	}
	return true, s.client.Expire(ctx, key, ttl).Err()
}

// MarkInactive removes the feature entry.
func (s *StatusRegistry) MarkInactive(ctx context.Context, feature string) error {
	return s.client.Del(ctx, statusKeyPrefix+feature).Err()
}

// IsActive reports whether any owner has marked feature active.
func (s *StatusRegistry) IsActive(ctx context.Context, feature string) (bool, error) {
	n, err := s.client.Exists(ctx, statusKeyPrefix+feature).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

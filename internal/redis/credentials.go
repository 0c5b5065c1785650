package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"mtolling/internal/repository"
)

// Key prefixes. Auth-scoped and preference-scoped keys live in separate namespaces.
const (
	authKeyPrefix  = "mtolling:auth:"
	prefsKeyPrefix = "mtolling:prefs:"
)

// CredentialStore is a repository.CredentialStore backed by Redis.
// String values live under the auth namespace, flags under the prefs namespace.
type CredentialStore struct {
	client *redis.Client
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(client *redis.Client) *CredentialStore {
	return &CredentialStore{client: client}
}

// GetString retrieves a string value.
func (s *CredentialStore) GetString(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, authKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrKeyNotFound
		}
		return "", err
	}
	return v, nil
}

// SetString stores a string value without expiry.
func (s *CredentialStore) SetString(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, authKeyPrefix+key, value, 0).Err()
}

// Delete removes keys from both namespaces.
func (s *CredentialStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		full = append(full, authKeyPrefix+k, prefsKeyPrefix+k)
	}
	return s.client.Del(ctx, full...).Err()
}

// GetBool retrieves a flag, returning def on a miss.
func (s *CredentialStore) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	v, err := s.client.Get(ctx, prefsKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return def, nil
		}
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, err
	}
	return b, nil
}

// SetBool stores a flag.
func (s *CredentialStore) SetBool(ctx context.Context, key string, value bool) error {
	return s.client.Set(ctx, prefsKeyPrefix+key, strconv.FormatBool(value), 0).Err()
}

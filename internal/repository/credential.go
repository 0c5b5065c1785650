package repository

import (
	"context"
	"sync"
)

// Credential store keys. Auth keys are cleared on logout; preference keys survive it.
const (
	KeyAuthToken             = "auth_token"
	KeyUserEmail             = "user_email"
	KeyAutoStartEnabled      = "auto_start_enabled"
	KeyTripMonitoringEnabled = "trip_monitoring_enabled"
)

// AuthKeys lists the keys owned by the auth session.
var AuthKeys = []string{KeyAuthToken, KeyUserEmail}

// CredentialStore is durable key-value storage for the session and feature flags.
// Individual reads and writes are atomic; there are no cross-key transactions.
type CredentialStore interface {
	// GetString returns ErrKeyNotFound when the key is unset.
	GetString(ctx context.Context, key string) (string, error)

	SetString(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// GetBool returns def when the key is unset.
	GetBool(ctx context.Context, key string, def bool) (bool, error)

	SetBool(ctx context.Context, key string, value bool) error
}

// MemoryCredentialStore is an in-process CredentialStore.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	strings map[string]string
	bools   map[string]bool
}

// NewMemoryCredentialStore creates an empty store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		strings: make(map[string]string),
		bools:   make(map[string]bool),
	}
}

// GetString returns the value stored under key.
func (s *MemoryCredentialStore) GetString(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.strings[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

// SetString stores value under key.
func (s *MemoryCredentialStore) SetString(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strings[key] = value
	return nil
}

// Delete removes keys from both namespaces.
func (s *MemoryCredentialStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.strings, k)
		delete(s.bools, k)
	}
	return nil
}

// GetBool returns the flag stored under key, or def.
func (s *MemoryCredentialStore) GetBool(_ context.Context, key string, def bool) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.bools[key]
	if !ok {
		return def, nil
	}
	return v, nil
}

// SetBool stores a flag.
func (s *MemoryCredentialStore) SetBool(_ context.Context, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bools[key] = value
	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)

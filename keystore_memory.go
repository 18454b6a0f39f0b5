package medikeep

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

// InMemoryKeyStore is a KeyStore that holds key material in process memory.
// It exists for tests and local development; nothing about it is
// hardware-backed, so production deployments should use one of the
// providers instead.
type InMemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string][]byte
}

// NewInMemoryKeyStore creates an empty in-memory keystore.
func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[string][]byte)}
}

// GetOrCreateKey returns the key for alias, generating a fresh random
// AES-256 key on first use.
func (s *InMemoryKeyStore) GetOrCreateKey(_ context.Context, alias string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[alias]; ok {
		return key, nil
	}

	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key for alias %q: %w", alias, err)
	}
	s.keys[alias] = key
	return key, nil
}

// SetKey installs fixed key material under alias, replacing any existing
// key. Tests use this to simulate a wrong-key decryption.
func (s *InMemoryKeyStore) SetKey(alias string, key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[alias] = key
}

package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

type nonceEntry struct {
	account   string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the NonceStore interface,
// used in tests and single-instance deployments.
type MemoryStore struct {
	nonces map[string]nonceEntry
	mu     sync.Mutex
}

// NewMemoryStore creates a new in-memory nonce store.
func NewMemoryStore() ports.NonceStore {
	return &MemoryStore{
		nonces: make(map[string]nonceEntry),
	}
}

// Put records a nonce bound to an account.
func (s *MemoryStore) Put(ctx context.Context, nonce, account string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[nonce] = nonceEntry{
		account:   account,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Consume reads and deletes a nonce record under a single lock, so two
// concurrent consumers of the same nonce cannot both succeed.
func (s *MemoryStore) Consume(ctx context.Context, nonce string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.nonces[nonce]
	if !exists {
		return "", core.ErrNonceNotFoundOrExpired
	}
	delete(s.nonces, nonce)

	if time.Now().After(entry.expiresAt) {
		return "", core.ErrNonceNotFoundOrExpired
	}

	return entry.account, nil
}

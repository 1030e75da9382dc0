package identity

import (
	"context"
	"sync"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// MemoryStore is an in-memory implementation of the IdentityStore interface,
// used in tests.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]core.User
	links    map[string]core.AccountLink // keyed by provider_id + "/" + account_id
	sessions map[string]core.Session     // keyed by session id
}

// NewMemoryStore creates a new in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]core.User),
		links:    make(map[string]core.AccountLink),
		sessions: make(map[string]core.Session),
	}
}

func linkKey(providerID, accountID string) string {
	return providerID + "/" + accountID
}

// FindAccountLink returns the link for a (provider, account) pair, or
// (nil, nil) if none exists.
func (s *MemoryStore) FindAccountLink(ctx context.Context, providerID, accountID string) (*core.AccountLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, exists := s.links[linkKey(providerID, accountID)]
	if !exists {
		return nil, nil
	}
	return &link, nil
}

// CreateAccountLink stores a new account link.
func (s *MemoryStore) CreateAccountLink(ctx context.Context, link *core.AccountLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[linkKey(link.ProviderID, link.AccountID)] = *link
	return nil
}

// CreateUser stores a new user.
func (s *MemoryStore) CreateUser(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = *user
	return nil
}

// GetUser returns a user by id, or (nil, nil) if it does not exist.
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, nil
	}
	return &user, nil
}

// SetUserPublicKey caches a custodial public key on the user.
func (s *MemoryStore) SetUserPublicKey(ctx context.Context, userID, publicKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return nil
	}
	user.StellarPublicKey = publicKey
	s.users[userID] = user
	return nil
}

// CreateSession stores a new session.
func (s *MemoryStore) CreateSession(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

// GetSessionByToken returns the session carrying a token, or (nil, nil) if
// no such session exists.
func (s *MemoryStore) GetSessionByToken(ctx context.Context, token string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.Token == token {
			found := session
			return &found, nil
		}
	}
	return nil, nil
}

// DeleteSession removes a session by id.
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// UserCount returns the number of stored users.
func (s *MemoryStore) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

var _ ports.IdentityStore = (*MemoryStore)(nil)

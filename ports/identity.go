package ports

import (
	"context"

	"github.com/layer-3/garuda/core"
)

// IdentityStore persists users, account links and sessions.
//
// Lookup methods return (nil, nil) when no row matches; errors are reserved
// for store failures.
type IdentityStore interface {
	FindAccountLink(ctx context.Context, providerID, accountID string) (*core.AccountLink, error)
	CreateAccountLink(ctx context.Context, link *core.AccountLink) error

	CreateUser(ctx context.Context, user *core.User) error
	GetUser(ctx context.Context, id string) (*core.User, error)
	// SetUserPublicKey caches a custodial public key on the user row.
	SetUserPublicKey(ctx context.Context, userID, publicKey string) error

	CreateSession(ctx context.Context, session *core.Session) error
	GetSessionByToken(ctx context.Context, token string) (*core.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

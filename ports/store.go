package ports

import (
	"context"
	"time"
)

// NonceStore persists single-use challenge nonces with expiry.
type NonceStore interface {
	// Put records a nonce bound to the account it was issued for. The record
	// expires at the given TTL.
	Put(ctx context.Context, nonce, account string, ttl time.Duration) error

	// Consume atomically reads and deletes a nonce record, returning the
	// bound account. A missing or expired record returns
	// core.ErrNonceNotFoundOrExpired. The read and the delete must be a
	// single operation: two concurrent consumers of the same nonce must not
	// both succeed.
	Consume(ctx context.Context, nonce string) (string, error)
}

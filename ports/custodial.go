package ports

import "context"

// CustodialSigner talks to the external authority that holds keys for
// custodial users.
type CustodialSigner interface {
	// GetOrCreatePublicKey returns the custodial public key for an email,
	// creating the keypair on the authority side if needed.
	GetOrCreatePublicKey(ctx context.Context, email string) (string, error)

	// SignTransaction forwards a transaction envelope to the authority for
	// signing and returns the signed envelope.
	SignTransaction(ctx context.Context, email, publicKey, xdr string) (string, error)
}

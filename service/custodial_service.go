package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// CustodialService signs transactions on behalf of users whose keys are held
// by the external custodial authority.
type CustodialService struct {
	identities ports.IdentityStore
	signer     ports.CustodialSigner
	log        zerolog.Logger
}

// NewCustodialService creates a new custodial signing service.
func NewCustodialService(identities ports.IdentityStore, signer ports.CustodialSigner, log zerolog.Logger) *CustodialService {
	return &CustodialService{
		identities: identities,
		signer:     signer,
		log:        log,
	}
}

// SignResult carries a signed envelope and the public key that signed it.
type SignResult struct {
	SignedXDR string
	PublicKey string
}

// SignForUser forwards a transaction envelope to the custodial authority for
// signing. Only custodial users may use the bridge.
//
// No local state changes before the remote call succeeds, so a failed or
// timed-out request is safe to retry.
func (s *CustodialService) SignForUser(ctx context.Context, user *core.User, xdr string) (*SignResult, error) {
	if user == nil {
		return nil, core.ErrNotAuthenticated
	}
	if !user.IsCustodial || user.Email == "" {
		return nil, core.ErrNotCustodialAccount
	}
	if s.signer == nil {
		// The bridge was not configured at startup.
		return nil, core.ErrCustodialServerError
	}

	publicKey := user.StellarPublicKey
	if publicKey == "" {
		key, err := s.signer.GetOrCreatePublicKey(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		publicKey = key

		// Cache failures are recoverable; the key is re-fetched next time.
		if err := s.identities.SetUserPublicKey(ctx, user.ID, publicKey); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to cache custodial public key")
		}
	}

	signed, err := s.signer.SignTransaction(ctx, user.Email, publicKey, xdr)
	if err != nil {
		return nil, err
	}

	return &SignResult{SignedXDR: signed, PublicKey: publicKey}, nil
}

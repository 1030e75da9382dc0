package wallet

import (
	"context"
	"errors"

	"github.com/layer-3/garuda/ports"
)

// custodialAdapter delegates signing to the external custodial authority for
// users who do not hold their own keys.
type custodialAdapter struct {
	signer ports.CustodialSigner
	email  string
}

func newCustodialAdapter(cfg Config) (Adapter, error) {
	if cfg.Custodial == nil {
		return nil, errors.New("custodial wallet requires a custodial signer")
	}
	if cfg.Email == "" {
		return nil, errors.New("custodial wallet requires the user's email")
	}

	return &custodialAdapter{
		signer: cfg.Custodial,
		email:  cfg.Email,
	}, nil
}

// Address resolves the user's custodial public key from the authority.
func (a *custodialAdapter) Address(ctx context.Context) (string, error) {
	return a.signer.GetOrCreatePublicKey(ctx, a.email)
}

// SignTransaction forwards the envelope to the authority for signing.
func (a *custodialAdapter) SignTransaction(ctx context.Context, xdr string, opts SignOptions) (string, error) {
	address := opts.Address
	if address == "" {
		key, err := a.signer.GetOrCreatePublicKey(ctx, a.email)
		if err != nil {
			return "", err
		}
		address = key
	}

	return a.signer.SignTransaction(ctx, a.email, address, xdr)
}

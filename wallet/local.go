package wallet

import (
	"context"
	"errors"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/layer-3/garuda/core"
)

// localAdapter signs with a keypair held in-process. Used by tests and
// command-line tooling; browser wallets go through the bridge adapters.
type localAdapter struct {
	kp *keypair.Full
}

func newLocalAdapter(cfg Config) (Adapter, error) {
	if cfg.Keypair == nil {
		return nil, errors.New("local wallet requires a keypair")
	}
	return &localAdapter{kp: cfg.Keypair}, nil
}

// Address returns the keypair's account id.
func (a *localAdapter) Address(ctx context.Context) (string, error) {
	return a.kp.Address(), nil
}

// SignTransaction signs the envelope with the held keypair and returns the
// signed envelope.
func (a *localAdapter) SignTransaction(ctx context.Context, xdr string, opts SignOptions) (string, error) {
	generic, err := txnbuild.TransactionFromXDR(xdr)
	if err != nil {
		return "", core.ErrInvalidXDR
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", core.ErrInvalidXDR
	}

	signed, err := tx.Sign(opts.NetworkPassphrase, a.kp)
	if err != nil {
		return "", err
	}

	return signed.Base64()
}

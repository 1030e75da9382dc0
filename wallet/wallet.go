// Package wallet maps wallet-selection tokens to concrete signing backends.
//
// Adapters are constructed per call and hold no shared mutable state, so
// concurrent requests selecting different wallets cannot interfere. The
// package only dispatches: signing itself happens in the backing wallet,
// the custodial authority or the Stellar SDK.
package wallet

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stellar/go/keypair"

	"github.com/layer-3/garuda/ports"
)

// Kind selects a signing backend.
type Kind string

const (
	KindFreighter Kind = "freighter"
	KindAlbedo    Kind = "albedo"
	KindXBull     Kind = "xbull"
	KindLobstr    Kind = "lobstr"
	KindLocal     Kind = "local"
	KindCustodial Kind = "custodial"
)

// SignOptions carry the account and network a signature is requested for.
type SignOptions struct {
	Address           string
	NetworkPassphrase string
}

// Adapter is the two-call contract every signing backend exposes.
type Adapter interface {
	// Address returns the account id the backend signs for.
	Address(ctx context.Context) (string, error)

	// SignTransaction signs a transaction envelope and returns the signed
	// envelope.
	SignTransaction(ctx context.Context, xdr string, opts SignOptions) (string, error)
}

// Config carries the dependencies adapters may need. Only the fields for the
// requested kind are consulted.
type Config struct {
	// BridgeURL is the base URL of the wallet bridge daemon handling the
	// browser-wallet kinds.
	BridgeURL string

	// HTTPClient is used by bridge adapters; nil falls back to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Keypair backs the local kind.
	Keypair *keypair.Full

	// Custodial and Email back the custodial kind.
	Custodial ports.CustodialSigner
	Email     string
}

// New constructs the adapter for a kind. Unknown kinds are rejected; the set
// of kinds is closed.
func New(kind Kind, cfg Config) (Adapter, error) {
	switch kind {
	case KindFreighter, KindAlbedo, KindXBull, KindLobstr:
		return newBridgeAdapter(kind, cfg)
	case KindLocal:
		return newLocalAdapter(cfg)
	case KindCustodial:
		return newCustodialAdapter(cfg)
	default:
		return nil, fmt.Errorf("unsupported wallet kind: %q", kind)
	}
}

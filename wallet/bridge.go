package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// bridgeAdapter forwards address and signing requests to a wallet bridge
// daemon fronting a browser wallet (Freighter, Albedo, xBull, LOBSTR). The
// daemon holds the wallet connection; this adapter only relays.
type bridgeAdapter struct {
	kind    Kind
	baseURL string
	http    *http.Client
}

func newBridgeAdapter(kind Kind, cfg Config) (Adapter, error) {
	if cfg.BridgeURL == "" {
		return nil, errors.New("bridge wallet requires a bridge URL")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &bridgeAdapter{
		kind:    kind,
		baseURL: cfg.BridgeURL,
		http:    client,
	}, nil
}

type bridgeAddressResponse struct {
	Address string `json:"address"`
}

// Address asks the bridge for the connected wallet's account id.
func (a *bridgeAdapter) Address(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/address?wallet=%s", a.baseURL, url.QueryEscape(string(a.kind)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet bridge returned status %d", resp.StatusCode)
	}

	var body bridgeAddressResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Address == "" {
		return "", errors.New("wallet bridge returned no address")
	}

	return body.Address, nil
}

type bridgeSignRequest struct {
	Wallet            string `json:"wallet"`
	XDR               string `json:"xdr"`
	Address           string `json:"address"`
	NetworkPassphrase string `json:"network_passphrase"`
}

type bridgeSignResponse struct {
	SignedXDR string `json:"signed_xdr"`
}

// SignTransaction asks the bridge to have the wallet sign the envelope.
func (a *bridgeAdapter) SignTransaction(ctx context.Context, xdr string, opts SignOptions) (string, error) {
	payload, err := json.Marshal(bridgeSignRequest{
		Wallet:            string(a.kind),
		XDR:               xdr,
		Address:           opts.Address,
		NetworkPassphrase: opts.NetworkPassphrase,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/sign", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet bridge returned status %d", resp.StatusCode)
	}

	var body bridgeSignResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.SignedXDR == "" {
		return "", errors.New("wallet bridge returned no signature")
	}

	return body.SignedXDR, nil
}

// garuda-login performs a full challenge-response login against a running
// garuda server, signing through a selectable wallet adapter. Intended for
// smoke-testing deployments and local development.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"

	"github.com/layer-3/garuda/wallet"
)

func main() {
	serverURL := flag.String("server", "http://localhost:9000", "garuda server base URL")
	kind := flag.String("wallet", "local", "wallet kind (local, freighter, albedo, xbull, lobstr)")
	secret := flag.String("secret", "", "secret seed for the local wallet kind")
	bridgeURL := flag.String("bridge", "", "wallet bridge URL for browser wallet kinds")
	clientDomain := flag.String("client-domain", "", "optional client_domain claim")
	flag.Parse()

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cfg := wallet.Config{BridgeURL: *bridgeURL}
	if *secret != "" {
		kp, err := keypair.ParseFull(*secret)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid secret seed")
		}
		cfg.Keypair = kp
	}

	adapter, err := wallet.New(wallet.Kind(*kind), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct wallet adapter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	account, err := adapter.Address(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve wallet address")
	}
	log.Info().Str("account", account).Msg("requesting challenge")

	challenge, err := fetchChallenge(ctx, *serverURL, account, *clientDomain)
	if err != nil {
		log.Fatal().Err(err).Msg("challenge request failed")
	}

	signed, err := adapter.SignTransaction(ctx, challenge.XDR, wallet.SignOptions{
		Address:           account,
		NetworkPassphrase: challenge.NetworkPassphrase,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("signing failed")
	}

	cookie, err := verify(ctx, *serverURL, signed, account, *kind)
	if err != nil {
		log.Fatal().Err(err).Msg("verification failed")
	}

	log.Info().Str("cookie", cookie).Msg("login succeeded")
	fmt.Fprintln(os.Stdout, cookie)
}

type challengeResponse struct {
	XDR               string `json:"xdr"`
	NetworkPassphrase string `json:"network_passphrase"`
	Nonce             string `json:"nonce"`
}

func fetchChallenge(ctx context.Context, server, account, clientDomain string) (*challengeResponse, error) {
	endpoint := fmt.Sprintf("%s/auth/stellar/challenge?account=%s", server, url.QueryEscape(account))
	if clientDomain != "" {
		endpoint += "&client_domain=" + url.QueryEscape(clientDomain)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var body challengeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func verify(ctx context.Context, server, xdr, account, walletType string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"xdr":         xdr,
		"account":     account,
		"wallet_type": walletType,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/auth/stellar/verify", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			return "", fmt.Errorf("server rejected login: %s", body.Error)
		}
		return "", fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "garuda_session" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("no session cookie in response")
}

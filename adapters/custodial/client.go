package custodial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

const defaultTimeout = 15 * time.Second

// Client talks to the external custodial signing authority over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a custodial client. A missing API key is a configuration
// error and is rejected here rather than on the first signing request.
func NewClient(baseURL, apiKey string, log zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, core.ErrCustodialAPIKeyMissing
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}, nil
}

type pubKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

// GetOrCreatePublicKey returns the custodial public key held for an email,
// creating the keypair on the authority side if needed.
func (c *Client) GetOrCreatePublicKey(ctx context.Context, email string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/pub?email=%s", c.baseURL, url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCustodialServerError, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("custodial public key request failed")
		return "", core.ErrCustodialServerError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.mapStatus(resp)
	}

	var body pubKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCustodialServerError, err)
	}
	if body.PublicKey == "" {
		return "", core.ErrCustodialServerError
	}

	return body.PublicKey, nil
}

type signRequest struct {
	Email     string `json:"email"`
	PublicKey string `json:"publicKey"`
	XDR       string `json:"xdr"`
}

type signResponse struct {
	SignedXDR string `json:"signedXdr"`
}

// SignTransaction forwards a transaction envelope to the authority for
// signing on behalf of a custodial user.
func (c *Client) SignTransaction(ctx context.Context, email, publicKey, xdr string) (string, error) {
	payload, err := json.Marshal(signRequest{
		Email:     email,
		PublicKey: publicKey,
		XDR:       xdr,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCustodialServerError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sign", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCustodialServerError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("custodial sign request failed")
		return "", core.ErrCustodialServerError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.mapStatus(resp)
	}

	var body signResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCustodialServerError, err)
	}
	if body.SignedXDR == "" {
		return "", core.ErrCustodialSigningFailed
	}

	return body.SignedXDR, nil
}

// mapStatus maps authority HTTP responses onto the custodial error taxonomy.
func (c *Client) mapStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return core.ErrCustodialUserNotFound
	case http.StatusUnauthorized:
		return core.ErrCustodialUnauthorized
	case http.StatusBadRequest:
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
			return fmt.Errorf("%w: %s", core.ErrCustodialBadRequest, body.Message)
		}
		return core.ErrCustodialBadRequest
	default:
		return core.ErrCustodialServerError
	}
}

var _ ports.CustodialSigner = (*Client)(nil)

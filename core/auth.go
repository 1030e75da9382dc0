package core

import "time"

// ProviderStellar is the provider id recorded on account links created by
// the Stellar login flow.
const ProviderStellar = "stellar"

// LoginTypeDefault is recorded on sessions when the client did not report
// which wallet produced the signature.
const LoginTypeDefault = "stellar"

// LoginTypeCustodial is recorded on sessions opened through the custodial
// signing bridge.
const LoginTypeCustodial = "custodial"

// Challenge represents an issued authentication challenge. The transaction
// itself travels to the client as XDR; only the nonce is persisted.
type Challenge struct {
	XDR               string    // base64 transaction envelope, server-signed
	NetworkPassphrase string    // network the challenge is bound to
	Account           string    // claimant account the challenge was issued for
	Nonce             string    // single-use random value embedded in the transaction
	ExpiresAt         time.Time // upper bound of the transaction's time window
}

// NonceRecord binds a challenge nonce to the account it was issued for.
// At most one live record exists per nonce; it is deleted on first use.
type NonceRecord struct {
	Nonce     string
	Account   string
	ExpiresAt time.Time
}

// User is an application user. Users are created lazily on the first
// successful verification of a previously unseen Stellar account.
type User struct {
	ID               string
	Email            string
	Name             string
	StellarPublicKey string
	IsCustodial      bool
	EmailVerified    bool
	CreatedAt        time.Time
}

// AccountLink is a durable mapping from an external account identifier to an
// internal user id. At most one link exists per (provider, account) pair.
type AccountLink struct {
	ID         string
	UserID     string
	ProviderID string
	AccountID  string
	Scope      string // network passphrase the account was verified on
	CreatedAt  time.Time
}

// Session represents an authenticated user session. LoginType records which
// signing method produced it and is consumed later to select a signing
// strategy for subsequent transactions.
type Session struct {
	ID        string
	UserID    string
	Token     string
	LoginType string
	CreatedAt time.Time
}

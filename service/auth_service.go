package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

const (
	opWebAuthDomain = "web_auth_domain"
	opHomeDomain    = "home_domain"
	opNonce         = "nonce"
	opClientDomain  = "client_domain"

	// nonceSize is the number of random bytes in a challenge nonce.
	nonceSize = 24

	// sessionTokenSize is the number of random bytes in a session token.
	sessionTokenSize = 32

	// DefaultChallengeTTL is the validity window of an issued challenge.
	DefaultChallengeTTL = 5 * time.Minute

	// MinChallengeTTL is the floor applied to configured TTLs.
	MinChallengeTTL = 30 * time.Second
)

// Config carries the issuing-authority identity and the domain bindings
// embedded in every challenge.
type Config struct {
	ServerKeypair     *keypair.Full
	NetworkPassphrase string
	WebAuthDomain     string
	HomeDomain        string
	EmailDomain       string
	ChallengeTTL      time.Duration
}

// AuthService issues challenges, verifies signed challenges and resolves
// verified accounts to application users and sessions.
type AuthService struct {
	nonces     ports.NonceStore
	identities ports.IdentityStore
	events     ports.EventPublisher
	log        zerolog.Logger

	serverKeypair     *keypair.Full
	serverAccount     string
	networkPassphrase string
	webAuthDomain     string
	homeDomain        string
	emailDomain       string
	challengeTTL      time.Duration
}

// NewAuthService creates a new authentication service. A zero TTL falls back
// to the default; configured TTLs below the floor are raised to it.
func NewAuthService(
	cfg Config,
	nonces ports.NonceStore,
	identities ports.IdentityStore,
	events ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	ttl := cfg.ChallengeTTL
	if ttl == 0 {
		ttl = DefaultChallengeTTL
	}
	if ttl < MinChallengeTTL {
		ttl = MinChallengeTTL
	}

	return &AuthService{
		nonces:            nonces,
		identities:        identities,
		events:            events,
		log:               log,
		serverKeypair:     cfg.ServerKeypair,
		serverAccount:     cfg.ServerKeypair.Address(),
		networkPassphrase: cfg.NetworkPassphrase,
		webAuthDomain:     cfg.WebAuthDomain,
		homeDomain:        cfg.HomeDomain,
		emailDomain:       cfg.EmailDomain,
		challengeTTL:      ttl,
	}
}

// CreateChallenge builds a server-signed challenge transaction for the given
// account and records its nonce for single use.
//
// The transaction is never submitted to the network: its source is the server
// account at sequence zero, and it carries manage_data operations binding the
// web auth domain to the server and the home domain and nonce to the claimant.
func (s *AuthService) CreateChallenge(ctx context.Context, account, clientDomain string) (*core.Challenge, error) {
	nonce, err := randomToken(nonceSize)
	if err != nil {
		s.log.Error().Err(err).Msg("challenge nonce generation failed")
		return nil, core.ErrChallengeFailed
	}

	now := time.Now()
	expiresAt := now.Add(s.challengeTTL)

	ops := []txnbuild.Operation{
		&txnbuild.ManageData{
			Name:          opWebAuthDomain,
			Value:         []byte(s.webAuthDomain),
			SourceAccount: s.serverAccount,
		},
		&txnbuild.ManageData{
			Name:          opHomeDomain,
			Value:         []byte(s.homeDomain),
			SourceAccount: account,
		},
		&txnbuild.ManageData{
			Name:          opNonce,
			Value:         []byte(nonce),
			SourceAccount: account,
		},
	}
	if clientDomain != "" {
		ops = append(ops, &txnbuild.ManageData{
			Name:          opClientDomain,
			Value:         []byte(clientDomain),
			SourceAccount: account,
		})
	}

	// Sequence -1 so the built transaction lands on sequence 0, the marker
	// for an off-chain proof transaction.
	sourceAccount := txnbuild.NewSimpleAccount(s.serverAccount, -1)

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		Operations:           ops,
		BaseFee:              txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(now.Unix(), expiresAt.Unix()),
		},
	})
	if err != nil {
		s.log.Error().Err(err).Str("account", account).Msg("challenge build failed")
		return nil, core.ErrChallengeFailed
	}

	tx, err = tx.Sign(s.networkPassphrase, s.serverKeypair)
	if err != nil {
		s.log.Error().Err(err).Msg("challenge signing failed")
		return nil, core.ErrChallengeFailed
	}

	xdr, err := tx.Base64()
	if err != nil {
		s.log.Error().Err(err).Msg("challenge encoding failed")
		return nil, core.ErrChallengeFailed
	}

	if err := s.nonces.Put(ctx, nonce, account, s.challengeTTL); err != nil {
		s.log.Error().Err(err).Msg("challenge nonce store failed")
		return nil, core.ErrChallengeFailed
	}

	return &core.Challenge{
		XDR:               xdr,
		NetworkPassphrase: s.networkPassphrase,
		Account:           account,
		Nonce:             nonce,
		ExpiresAt:         expiresAt,
	}, nil
}

// VerifyResult is returned on successful challenge verification.
type VerifyResult struct {
	Session *core.Session
	User    *core.User
	NewUser bool
}

// Verify validates a signed challenge and, on success, opens a session for
// the user behind the account.
//
// Checks run in a fixed order and the first failure wins. The nonce is
// consumed before the signature checks, so a challenge is burned by its first
// verification attempt regardless of outcome.
func (s *AuthService) Verify(ctx context.Context, xdr, account, walletType string) (*VerifyResult, error) {
	generic, err := txnbuild.TransactionFromXDR(xdr)
	if err != nil {
		return nil, core.ErrInvalidXDR
	}
	tx, ok := generic.Transaction()
	if !ok {
		return nil, core.ErrInvalidXDR
	}

	sourceAccount := tx.SourceAccount()
	if sourceAccount.AccountID != s.serverAccount {
		return nil, core.ErrInvalidSource
	}

	// A genuine challenge is an off-chain proof transaction and always sits
	// at sequence zero.
	if sourceAccount.Sequence != 0 {
		return nil, core.ErrInvalidSequence
	}

	timebounds := tx.Timebounds()
	if timebounds.MaxTime == 0 || time.Now().Unix() > timebounds.MaxTime {
		return nil, core.ErrExpired
	}

	nonceOp := findManageData(tx, opNonce)
	homeDomainOp := findManageData(tx, opHomeDomain)
	webAuthDomainOp := findManageData(tx, opWebAuthDomain)
	if nonceOp == nil || homeDomainOp == nil || webAuthDomainOp == nil {
		return nil, core.ErrMissingOps
	}

	if homeDomainOp.SourceAccount != account {
		return nil, core.ErrInvalidHomeDomainSource
	}
	if string(webAuthDomainOp.Value) != s.webAuthDomain {
		return nil, core.ErrInvalidWebAuthDomain
	}

	nonce := string(nonceOp.Value)
	if nonce == "" {
		return nil, core.ErrInvalidNonce
	}

	// Single-use guarantee: consume before the signature checks, atomically,
	// so a replayed or concurrently re-submitted challenge always misses.
	boundAccount, err := s.nonces.Consume(ctx, nonce)
	if err != nil {
		return nil, err
	}
	if boundAccount != account {
		return nil, core.ErrInvalidNonce
	}

	hash, err := tx.Hash(s.networkPassphrase)
	if err != nil {
		return nil, core.ErrInvalidXDR
	}

	if !anySignatureVerifies(tx, hash[:], s.serverKeypair.FromAddress()) {
		return nil, core.ErrServerSigMissing
	}

	clientKey, err := keypair.ParseAddress(account)
	if err != nil {
		return nil, core.ErrClientSigMissing
	}
	if !anySignatureVerifies(tx, hash[:], clientKey) {
		return nil, core.ErrClientSigMissing
	}

	return s.resolveIdentity(ctx, account, walletType)
}

// resolveIdentity finds or creates the user behind a verified account and
// opens a session for it.
func (s *AuthService) resolveIdentity(ctx context.Context, account, walletType string) (*VerifyResult, error) {
	link, err := s.identities.FindAccountLink(ctx, core.ProviderStellar, account)
	if err != nil {
		return nil, core.ErrFailedToCreateUser
	}

	var user *core.User
	newUser := false
	if link != nil {
		user, err = s.identities.GetUser(ctx, link.UserID)
		if err != nil || user == nil {
			return nil, core.ErrFailedToCreateUser
		}
	} else {
		user = &core.User{
			ID:               uuid.New().String(),
			Email:            strings.ToLower(account) + "@" + s.emailDomain,
			Name:             account,
			StellarPublicKey: account,
			EmailVerified:    true,
		}
		if err := s.identities.CreateUser(ctx, user); err != nil {
			return nil, core.ErrFailedToCreateUser
		}
		if err := s.identities.CreateAccountLink(ctx, &core.AccountLink{
			ID:         uuid.New().String(),
			UserID:     user.ID,
			ProviderID: core.ProviderStellar,
			AccountID:  account,
			Scope:      s.networkPassphrase,
		}); err != nil {
			return nil, core.ErrFailedToCreateUser
		}
		newUser = true
	}

	token, err := randomToken(sessionTokenSize)
	if err != nil {
		return nil, core.ErrFailedToCreateSession
	}

	loginType := walletType
	if loginType == "" {
		loginType = core.LoginTypeDefault
	}

	session := &core.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     token,
		LoginType: loginType,
	}
	if err := s.identities.CreateSession(ctx, session); err != nil {
		return nil, core.ErrFailedToCreateSession
	}

	if s.events != nil {
		err := s.events.PublishLogin(ctx, ports.LoginEvent{
			Account:   account,
			UserID:    user.ID,
			SessionID: session.ID,
			LoginType: loginType,
			NewUser:   newUser,
		})
		if err != nil {
			// The session is already open; event delivery is best effort.
			s.log.Warn().Err(err).Msg("failed to publish login event")
		}
	}

	return &VerifyResult{Session: session, User: user, NewUser: newUser}, nil
}

// Logout revokes a session.
func (s *AuthService) Logout(ctx context.Context, session *core.Session) error {
	if err := s.identities.DeleteSession(ctx, session.ID); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.PublishLogout(ctx, session.UserID, session.ID); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish logout event")
		}
	}

	return nil
}

// findManageData returns the first manage_data operation with the given name.
func findManageData(tx *txnbuild.Transaction, name string) *txnbuild.ManageData {
	for _, op := range tx.Operations() {
		if md, ok := op.(*txnbuild.ManageData); ok && md.Name == name {
			return md
		}
	}
	return nil
}

// anySignatureVerifies reports whether any signature on the transaction
// verifies against the given key over the transaction hash.
func anySignatureVerifies(tx *txnbuild.Transaction, hash []byte, key *keypair.FromAddress) bool {
	for _, sig := range tx.Signatures() {
		if key.Verify(hash, sig.Signature) == nil {
			return true
		}
	}
	return false
}

// randomToken returns size random bytes, URL-safe base64 encoded without
// padding.
func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/adapters/identity"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

const (
	testWebAuthDomain = "auth.example.com"
	testHomeDomain    = "app.example.com"
	testEmailDomain   = "wallet.example.com"
)

type testEnv struct {
	service    *AuthService
	nonces     ports.NonceStore
	identities *identity.MemoryStore
	serverKP   *keypair.Full
	clientKP   *keypair.Full
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	serverKP, err := keypair.Random()
	require.NoError(t, err)
	clientKP, err := keypair.Random()
	require.NoError(t, err)

	nonces := store.NewMemoryStore()
	identities := identity.NewMemoryStore()

	svc := NewAuthService(Config{
		ServerKeypair:     serverKP,
		NetworkPassphrase: network.TestNetworkPassphrase,
		WebAuthDomain:     testWebAuthDomain,
		HomeDomain:        testHomeDomain,
		EmailDomain:       testEmailDomain,
	}, nonces, identities, nil, zerolog.Nop())

	return &testEnv{
		service:    svc,
		nonces:     nonces,
		identities: identities,
		serverKP:   serverKP,
		clientKP:   clientKP,
	}
}

// signXDR adds signatures to an existing envelope and re-encodes it.
func signXDR(t *testing.T, xdr string, kps ...*keypair.Full) string {
	t.Helper()

	generic, err := txnbuild.TransactionFromXDR(xdr)
	require.NoError(t, err)
	tx, ok := generic.Transaction()
	require.True(t, ok)

	tx, err = tx.Sign(network.TestNetworkPassphrase, kps...)
	require.NoError(t, err)

	signed, err := tx.Base64()
	require.NoError(t, err)
	return signed
}

type challengeParams struct {
	source        string
	account       string
	webAuthDomain string
	nonce         string
	minTime       int64
	maxTime       int64
}

// buildChallengeTx hand-builds a challenge-shaped transaction so tests can
// produce tampered and expired variants.
func buildChallengeTx(t *testing.T, p challengeParams) string {
	t.Helper()

	sourceAccount := txnbuild.NewSimpleAccount(p.source, -1)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		BaseFee:              txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(p.minTime, p.maxTime),
		},
		Operations: []txnbuild.Operation{
			&txnbuild.ManageData{Name: "web_auth_domain", Value: []byte(p.webAuthDomain), SourceAccount: p.source},
			&txnbuild.ManageData{Name: "home_domain", Value: []byte(testHomeDomain), SourceAccount: p.account},
			&txnbuild.ManageData{Name: "nonce", Value: []byte(p.nonce), SourceAccount: p.account},
		},
	})
	require.NoError(t, err)

	xdr, err := tx.Base64()
	require.NoError(t, err)
	return xdr
}

func TestChallengeVerifyRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	challenge, err := env.service.CreateChallenge(ctx, account, "")
	require.NoError(t, err)
	assert.Equal(t, account, challenge.Account)
	assert.NotEmpty(t, challenge.Nonce)
	assert.Equal(t, network.TestNetworkPassphrase, challenge.NetworkPassphrase)
	assert.True(t, challenge.ExpiresAt.After(time.Now()))

	signed := signXDR(t, challenge.XDR, env.clientKP)

	result, err := env.service.Verify(ctx, signed, account, "albedo")
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, "albedo", result.Session.LoginType)
	assert.True(t, result.NewUser)
	assert.Equal(t, strings.ToLower(account)+"@"+testEmailDomain, result.User.Email)
	assert.Equal(t, account, result.User.StellarPublicKey)
	assert.True(t, result.User.EmailVerified)

	// Replaying the identical signed artifact must miss the burned nonce.
	_, err = env.service.Verify(ctx, signed, account, "albedo")
	assert.ErrorIs(t, err, core.ErrNonceNotFoundOrExpired)
}

func TestVerifyClientDomainChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	challenge, err := env.service.CreateChallenge(ctx, account, "wallet.example.org")
	require.NoError(t, err)

	signed := signXDR(t, challenge.XDR, env.clientKP)

	_, err = env.service.Verify(ctx, signed, account, "")
	require.NoError(t, err)
}

func TestVerifyDefaultLoginType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	challenge, err := env.service.CreateChallenge(ctx, account, "")
	require.NoError(t, err)

	result, err := env.service.Verify(ctx, signXDR(t, challenge.XDR, env.clientKP), account, "")
	require.NoError(t, err)
	assert.Equal(t, core.LoginTypeDefault, result.Session.LoginType)
}

func TestVerifyInvalidXDR(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Verify(context.Background(), "not-a-transaction", env.clientKP.Address(), "")
	assert.ErrorIs(t, err, core.ErrInvalidXDR)
}

func TestVerifyWrongSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	impostor, err := keypair.Random()
	require.NoError(t, err)

	now := time.Now().Unix()
	xdr := buildChallengeTx(t, challengeParams{
		source:        impostor.Address(),
		account:       account,
		webAuthDomain: testWebAuthDomain,
		nonce:         "n",
		minTime:       now,
		maxTime:       now + 300,
	})
	signed := signXDR(t, xdr, impostor, env.clientKP)

	_, err = env.service.Verify(ctx, signed, account, "")
	assert.ErrorIs(t, err, core.ErrInvalidSource)
}

func TestVerifyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	now := time.Now().Unix()
	xdr := buildChallengeTx(t, challengeParams{
		source:        env.serverKP.Address(),
		account:       account,
		webAuthDomain: testWebAuthDomain,
		nonce:         "expired-nonce",
		minTime:       now - 600,
		maxTime:       now - 300,
	})
	require.NoError(t, env.nonces.Put(ctx, "expired-nonce", account, time.Minute))

	signed := signXDR(t, xdr, env.serverKP, env.clientKP)

	_, err := env.service.Verify(ctx, signed, account, "")
	assert.ErrorIs(t, err, core.ErrExpired)
}

func TestVerifyTamperedWebAuthDomain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	now := time.Now().Unix()
	xdr := buildChallengeTx(t, challengeParams{
		source:        env.serverKP.Address(),
		account:       account,
		webAuthDomain: "evil.example.com",
		nonce:         "tampered-nonce",
		minTime:       now,
		maxTime:       now + 300,
	})
	require.NoError(t, env.nonces.Put(ctx, "tampered-nonce", account, time.Minute))

	// Both signatures are individually valid; the domain check must still win.
	signed := signXDR(t, xdr, env.serverKP, env.clientKP)

	_, err := env.service.Verify(ctx, signed, account, "")
	assert.ErrorIs(t, err, core.ErrInvalidWebAuthDomain)
}

func TestVerifyHomeDomainSourceMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	other, err := keypair.Random()
	require.NoError(t, err)

	challenge, err := env.service.CreateChallenge(ctx, account, "")
	require.NoError(t, err)

	signed := signXDR(t, challenge.XDR, env.clientKP)

	// Claiming a different account than the challenge was issued for.
	_, err = env.service.Verify(ctx, signed, other.Address(), "")
	assert.ErrorIs(t, err, core.ErrInvalidHomeDomainSource)
}

func TestVerifyMissingClientSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	challenge, err := env.service.CreateChallenge(ctx, account, "")
	require.NoError(t, err)

	// The issued challenge is server-signed only.
	_, err = env.service.Verify(ctx, challenge.XDR, account, "")
	assert.ErrorIs(t, err, core.ErrClientSigMissing)

	// The attempt burned the nonce: a properly signed retry must miss.
	signed := signXDR(t, challenge.XDR, env.clientKP)
	_, err = env.service.Verify(ctx, signed, account, "")
	assert.ErrorIs(t, err, core.ErrNonceNotFoundOrExpired)
}

func TestVerifyMissingServerSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	now := time.Now().Unix()
	xdr := buildChallengeTx(t, challengeParams{
		source:        env.serverKP.Address(),
		account:       account,
		webAuthDomain: testWebAuthDomain,
		nonce:         "forged-nonce",
		minTime:       now,
		maxTime:       now + 300,
	})
	require.NoError(t, env.nonces.Put(ctx, "forged-nonce", account, time.Minute))

	signed := signXDR(t, xdr, env.clientKP)

	_, err := env.service.Verify(ctx, signed, account, "")
	assert.ErrorIs(t, err, core.ErrServerSigMissing)
}

func TestVerifyNonZeroSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	now := time.Now().Unix()
	sourceAccount := txnbuild.NewSimpleAccount(env.serverKP.Address(), 41)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		BaseFee:              txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(now, now+300),
		},
		Operations: []txnbuild.Operation{
			&txnbuild.ManageData{Name: "web_auth_domain", Value: []byte(testWebAuthDomain), SourceAccount: env.serverKP.Address()},
			&txnbuild.ManageData{Name: "home_domain", Value: []byte(testHomeDomain), SourceAccount: account},
			&txnbuild.ManageData{Name: "nonce", Value: []byte("n"), SourceAccount: account},
		},
	})
	require.NoError(t, err)
	xdr, err := tx.Base64()
	require.NoError(t, err)

	signed := signXDR(t, xdr, env.serverKP, env.clientKP)

	_, err = env.service.Verify(ctx, signed, account, "")
	assert.ErrorIs(t, err, core.ErrInvalidSequence)
}

func TestVerifyCreatesUserOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	first, err := env.service.CreateChallenge(ctx, account, "")
	require.NoError(t, err)
	resultA, err := env.service.Verify(ctx, signXDR(t, first.XDR, env.clientKP), account, "xbull")
	require.NoError(t, err)
	assert.True(t, resultA.NewUser)

	second, err := env.service.CreateChallenge(ctx, account, "")
	require.NoError(t, err)
	resultB, err := env.service.Verify(ctx, signXDR(t, second.XDR, env.clientKP), account, "lobstr")
	require.NoError(t, err)
	assert.False(t, resultB.NewUser)

	assert.Equal(t, 1, env.identities.UserCount())
	assert.Equal(t, resultA.User.ID, resultB.User.ID)
	assert.NotEqual(t, resultA.Session.ID, resultB.Session.ID)
	assert.Equal(t, "lobstr", resultB.Session.LoginType)
}

func TestChallengeTTLFloor(t *testing.T) {
	serverKP, err := keypair.Random()
	require.NoError(t, err)

	svc := NewAuthService(Config{
		ServerKeypair:     serverKP,
		NetworkPassphrase: network.TestNetworkPassphrase,
		WebAuthDomain:     testWebAuthDomain,
		HomeDomain:        testHomeDomain,
		EmailDomain:       testEmailDomain,
		ChallengeTTL:      5 * time.Second,
	}, store.NewMemoryStore(), identity.NewMemoryStore(), nil, zerolog.Nop())

	assert.Equal(t, MinChallengeTTL, svc.challengeTTL)
}

func TestLogoutDeletesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.clientKP.Address()

	challenge, err := env.service.CreateChallenge(ctx, account, "")
	require.NoError(t, err)
	result, err := env.service.Verify(ctx, signXDR(t, challenge.XDR, env.clientKP), account, "")
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(ctx, result.Session))

	session, err := env.identities.GetSessionByToken(ctx, result.Session.Token)
	require.NoError(t, err)
	assert.Nil(t, session)
}

package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
)

func TestAccountLinkLookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	link, err := s.FindAccountLink(ctx, core.ProviderStellar, "GABC")
	require.NoError(t, err)
	assert.Nil(t, link)

	require.NoError(t, s.CreateAccountLink(ctx, &core.AccountLink{
		ID:         "l1",
		UserID:     "u1",
		ProviderID: core.ProviderStellar,
		AccountID:  "GABC",
	}))

	link, err = s.FindAccountLink(ctx, core.ProviderStellar, "GABC")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "u1", link.UserID)

	// Different provider, same account id.
	link, err = s.FindAccountLink(ctx, "other", "GABC")
	require.NoError(t, err)
	assert.Nil(t, link)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateSession(ctx, &core.Session{
		ID:     "s1",
		UserID: "u1",
		Token:  "tok-1",
	}))

	session, err := s.GetSessionByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "u1", session.UserID)

	require.NoError(t, s.DeleteSession(ctx, "s1"))

	session, err = s.GetSessionByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSetUserPublicKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateUser(ctx, &core.User{ID: "u1", Email: "a@b.c"}))
	require.NoError(t, s.SetUserPublicKey(ctx, "u1", "GPUB"))

	user, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "GPUB", user.StellarPublicKey)
}

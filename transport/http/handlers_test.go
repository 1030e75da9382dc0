package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/adapters/identity"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/adapters/tokenizer"
	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/service"
)

type routerEnv struct {
	router   *gin.Engine
	clientKP *keypair.Full
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	serverKP, err := keypair.Random()
	require.NoError(t, err)
	clientKP, err := keypair.Random()
	require.NoError(t, err)

	identities := identity.NewMemoryStore()

	authService := service.NewAuthService(service.Config{
		ServerKeypair:     serverKP,
		NetworkPassphrase: network.TestNetworkPassphrase,
		WebAuthDomain:     "auth.example.com",
		HomeDomain:        "app.example.com",
		EmailDomain:       "wallet.example.com",
	}, store.NewMemoryStore(), identities, nil, zerolog.Nop())

	custodialService := service.NewCustodialService(identities, nil, zerolog.Nop())
	cookieTokenizer := tokenizer.NewCookieTokenizer([]byte("test-secret"))

	return &routerEnv{
		router:   SetupRouter(authService, custodialService, cookieTokenizer, identities, false),
		clientKP: clientKP,
	}
}

func (e *routerEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

// login runs the full challenge/verify cycle and returns the session cookie.
func (e *routerEnv) login(t *testing.T, walletType string) *http.Cookie {
	t.Helper()
	account := e.clientKP.Address()

	resp := e.do(t, http.MethodGet, "/auth/stellar/challenge?account="+account, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var challenge struct {
		XDR string `json:"xdr"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &challenge))

	signed := signEnvelope(t, challenge.XDR, e.clientKP)

	body, err := json.Marshal(map[string]string{
		"xdr":         signed,
		"account":     account,
		"wallet_type": walletType,
	})
	require.NoError(t, err)

	resp = e.do(t, http.MethodPost, "/auth/stellar/verify", string(body))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			require.True(t, cookie.HttpOnly)
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func signEnvelope(t *testing.T, xdr string, kp *keypair.Full) string {
	t.Helper()

	generic, err := txnbuild.TransactionFromXDR(xdr)
	require.NoError(t, err)
	tx, ok := generic.Transaction()
	require.True(t, ok)

	tx, err = tx.Sign(network.TestNetworkPassphrase, kp)
	require.NoError(t, err)

	signed, err := tx.Base64()
	require.NoError(t, err)
	return signed
}

func TestChallengeRequiresAccount(t *testing.T) {
	env := newRouterEnv(t)

	resp := env.do(t, http.MethodGet, "/auth/stellar/challenge", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLoginFlow(t *testing.T) {
	env := newRouterEnv(t)

	cookie := env.login(t, "freighter")

	resp := env.do(t, http.MethodGet, "/api/me", "", cookie)
	require.Equal(t, http.StatusOK, resp.Code)

	var me struct {
		Email       string `json:"email"`
		LoginType   string `json:"login_type"`
		IsCustodial bool   `json:"is_custodial"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &me))
	assert.Equal(t, "freighter", me.LoginType)
	assert.False(t, me.IsCustodial)
	assert.Contains(t, me.Email, "@wallet.example.com")
}

func TestVerifyReplayRejected(t *testing.T) {
	env := newRouterEnv(t)
	account := env.clientKP.Address()

	resp := env.do(t, http.MethodGet, "/auth/stellar/challenge?account="+account, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var challenge struct {
		XDR string `json:"xdr"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &challenge))

	signed := signEnvelope(t, challenge.XDR, env.clientKP)
	body, err := json.Marshal(map[string]string{"xdr": signed, "account": account})
	require.NoError(t, err)

	resp = env.do(t, http.MethodPost, "/auth/stellar/verify", string(body))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodPost, "/auth/stellar/verify", string(body))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), core.ErrNonceNotFoundOrExpired.Error())
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newRouterEnv(t)

	resp := env.do(t, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(t, http.MethodPost, "/auth/stellar/sign-custodial", `{"xdr":"AAAA"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSignCustodialRejectsNonCustodialUser(t *testing.T) {
	env := newRouterEnv(t)

	cookie := env.login(t, "")

	resp := env.do(t, http.MethodPost, "/auth/stellar/sign-custodial", `{"xdr":"AAAA"}`, cookie)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), core.ErrNotCustodialAccount.Error())
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newRouterEnv(t)

	cookie := env.login(t, "")

	resp := env.do(t, http.MethodPost, "/auth/stellar/logout", "", cookie)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodGet, "/api/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

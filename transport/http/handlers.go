package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
	"github.com/layer-3/garuda/service"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "garuda_session"

// AuthHandlers contains HTTP handlers for the Stellar auth endpoints.
type AuthHandlers struct {
	authService      *service.AuthService
	custodialService *service.CustodialService
	tokenizer        ports.Tokenizer
	cookieMaxAge     int
	secureCookies    bool
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(
	authService *service.AuthService,
	custodialService *service.CustodialService,
	tokenizer ports.Tokenizer,
	secureCookies bool,
) *AuthHandlers {
	return &AuthHandlers{
		authService:      authService,
		custodialService: custodialService,
		tokenizer:        tokenizer,
		cookieMaxAge:     7 * 24 * 60 * 60,
		secureCookies:    secureCookies,
	}
}

// Challenge handles GET /auth/stellar/challenge.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	account := c.Query("account")
	if account == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account is required"})
		return
	}
	clientDomain := c.Query("client_domain")

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), account, clientDomain)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"xdr":                challenge.XDR,
		"network_passphrase": challenge.NetworkPassphrase,
		"nonce":              challenge.Nonce,
		"expires_at":         challenge.ExpiresAt,
	})
}

// Verify handles POST /auth/stellar/verify.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		XDR        string `json:"xdr" binding:"required"`
		Account    string `json:"account" binding:"required"`
		WalletType string `json:"wallet_type"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": core.ErrInvalidXDR.Error()})
		return
	}

	result, err := h.authService.Verify(c.Request.Context(), req.XDR, req.Account, req.WalletType)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	cookie, err := h.tokenizer.SessionToCookie(result.Session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": core.ErrFailedToCreateSession.Error()})
		return
	}
	c.SetCookie(SessionCookieName, cookie, h.cookieMaxAge, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, gin.H{"status": true})
}

// SignCustodial handles POST /auth/stellar/sign-custodial.
func (h *AuthHandlers) SignCustodial(c *gin.Context) {
	var req struct {
		XDR string `json:"xdr" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": core.ErrCustodialBadRequest.Error()})
		return
	}

	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": core.ErrNotAuthenticated.Error()})
		return
	}

	result, err := h.custodialService.SignForUser(c.Request.Context(), user, req.XDR)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signed_xdr": result.SignedXDR,
		"public_key": result.PublicKey,
	})
}

// Logout handles POST /auth/stellar/logout.
func (h *AuthHandlers) Logout(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": core.ErrNotAuthenticated.Error()})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		return
	}

	c.SetCookie(SessionCookieName, "", -1, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandlers) Me(c *gin.Context) {
	user := currentUser(c)
	session := currentSession(c)
	if user == nil || session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": core.ErrNotAuthenticated.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                 user.ID,
		"email":              user.Email,
		"stellar_public_key": user.StellarPublicKey,
		"is_custodial":       user.IsCustodial,
		"login_type":         session.LoginType,
	})
}

// statusForError maps taxonomy errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidXDR),
		errors.Is(err, core.ErrInvalidSource),
		errors.Is(err, core.ErrInvalidSequence),
		errors.Is(err, core.ErrExpired),
		errors.Is(err, core.ErrMissingOps),
		errors.Is(err, core.ErrInvalidHomeDomainSource),
		errors.Is(err, core.ErrInvalidWebAuthDomain),
		errors.Is(err, core.ErrInvalidNonce),
		errors.Is(err, core.ErrNonceNotFoundOrExpired),
		errors.Is(err, core.ErrServerSigMissing),
		errors.Is(err, core.ErrClientSigMissing),
		errors.Is(err, core.ErrNotCustodialAccount),
		errors.Is(err, core.ErrCustodialBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotAuthenticated),
		errors.Is(err, core.ErrCustodialUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrCustodialUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFailedToCreateUser):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

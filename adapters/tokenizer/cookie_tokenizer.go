package tokenizer

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

const audienceSession = "session:cookie"

// DefaultCookieExpiry bounds how long a session cookie stays parseable.
// Session rows outlive the cookie and are revoked by the session manager.
const DefaultCookieExpiry = 7 * 24 * time.Hour

// CookieTokenizer wraps the opaque session token in an HMAC-signed JWT so a
// tampered cookie is rejected before any store lookup.
type CookieTokenizer struct {
	secret []byte
}

// NewCookieTokenizer creates a cookie tokenizer signing with the given
// secret.
func NewCookieTokenizer(secret []byte) ports.Tokenizer {
	return &CookieTokenizer{secret: secret}
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// SessionToCookie converts a session to its signed cookie value. The cookie
// carries only the opaque token; session state stays server-side.
func (t *CookieTokenizer) SessionToCookie(session *core.Session) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Token,
			ID:        session.ID,
			Audience:  jwt.ClaimStrings{audienceSession},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(DefaultCookieExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}

	return signed, nil
}

// CookieToSessionToken validates a cookie value and returns the opaque
// session token it carries.
func (t *CookieTokenizer) CookieToSessionToken(cookie string) (string, error) {
	token, err := jwt.ParseWithClaims(cookie, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithAudience(audienceSession))
	if err != nil {
		return "", core.ErrNotAuthenticated
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || claims.Subject == "" {
		return "", core.ErrNotAuthenticated
	}

	return claims.Subject, nil
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

const (
	contextKeySession = "session"
	contextKeyUser    = "user"
)

// SessionMiddleware validates the session cookie and loads the session and
// its user into the request context.
func SessionMiddleware(tokenizer ports.Tokenizer, identities ports.IdentityStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.ErrNotAuthenticated.Error()})
			return
		}

		token, err := tokenizer.CookieToSessionToken(cookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.ErrNotAuthenticated.Error()})
			return
		}

		session, err := identities.GetSessionByToken(c.Request.Context(), token)
		if err != nil || session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.ErrNotAuthenticated.Error()})
			return
		}

		user, err := identities.GetUser(c.Request.Context(), session.UserID)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.ErrNotAuthenticated.Error()})
			return
		}

		c.Set(contextKeySession, session)
		c.Set(contextKeyUser, user)

		c.Next()
	}
}

// currentSession returns the session loaded by SessionMiddleware, or nil.
func currentSession(c *gin.Context) *core.Session {
	value, exists := c.Get(contextKeySession)
	if !exists {
		return nil
	}
	session, ok := value.(*core.Session)
	if !ok {
		return nil
	}
	return session
}

// currentUser returns the user loaded by SessionMiddleware, or nil.
func currentUser(c *gin.Context) *core.User {
	value, exists := c.Get(contextKeyUser)
	if !exists {
		return nil
	}
	user, ok := value.(*core.User)
	if !ok {
		return nil
	}
	return user
}

package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/garuda/ports"
	"github.com/layer-3/garuda/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(
	authService *service.AuthService,
	custodialService *service.CustodialService,
	tokenizer ports.Tokenizer,
	identities ports.IdentityStore,
	secureCookies bool,
) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, custodialService, tokenizer, secureCookies)
	requireSession := SessionMiddleware(tokenizer, identities)

	auth := router.Group("/auth/stellar")
	{
		auth.GET("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/sign-custodial", requireSession, handlers.SignCustodial)
		auth.POST("/logout", requireSession, handlers.Logout)
	}

	api := router.Group("/api")
	api.Use(requireSession)
	{
		api.GET("/me", handlers.Me)
	}

	return router
}

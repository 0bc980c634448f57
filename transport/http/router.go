package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TheLegendOwner/manetka-miniapp/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService) *gin.Engine {
	router := gin.Default()

	// The validation endpoint must answer 405 to non-POST methods.
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "error": "Method not allowed"})
	})

	// Create handlers
	handlers := NewAuthHandlers(authService)

	router.POST("/auth", handlers.Auth)

	// API routes
	api := router.Group("/api")
	api.POST("/validate-initdata", handlers.ValidateInitData)

	// Protected API routes
	protected := api.Group("")
	protected.Use(AuthMiddleware(authService))
	{
		protected.GET("/wallets", handlers.Wallets)
		protected.POST("/wallets", handlers.LinkWallet)
		protected.GET("/balances", handlers.Balances)
		protected.GET("/rewards", handlers.Rewards)
	}

	return router
}

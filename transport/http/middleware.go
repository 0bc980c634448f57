package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/service"
)

const contextUserKey = "sessionUser"

// AuthMiddleware creates middleware that validates session tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		// Check if the Authorization header is present and in correct format
		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		token := auth[7:]

		user, err := authService.ValidateToken(token)
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(contextUserKey, user)

		c.Next()
	}
}

// currentUser returns the authenticated user set by AuthMiddleware
func currentUser(c *gin.Context) *core.TelegramUser {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}

	user, ok := value.(*core.TelegramUser)
	if !ok {
		return nil
	}

	return user
}

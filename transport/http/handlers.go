package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TheLegendOwner/manetka-miniapp/core"
	"github.com/TheLegendOwner/manetka-miniapp/service"
)

// AuthHandlers contains HTTP handlers for auth and wallet endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// ValidateInitData verifies an identity assertion without consuming it
func (h *AuthHandlers) ValidateInitData(c *gin.Context) {
	var req struct {
		InitData string `json:"initData" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid initData"})
		return
	}

	result := h.authService.VerifyAssertion(req.InitData)
	if result.Valid {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	switch result.Reason {
	case core.ReasonServerMisconfigured:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal Server Error"})
	case core.ReasonMissingHash, core.ReasonMalformedField:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid initData"})
	default:
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "Invalid data hash"})
	}
}

// Auth verifies an identity assertion and issues a session token
func (h *AuthHandlers) Auth(c *gin.Context) {
	var req struct {
		InitData string `json:"initData" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.InitData)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrInvalidAssertion):
			statusCode = http.StatusForbidden
			errorMsg = "Invalid initData"
		case errors.Is(err, core.ErrAssertionExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "initData expired"
		case errors.Is(err, core.ErrAssertionUsed):
			statusCode = http.StatusUnauthorized
			errorMsg = "initData already used"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Wallets lists the wallets linked to the authenticated user
func (h *AuthHandlers) Wallets(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	wallets, err := h.authService.ListWallets(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list wallets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"wallets": wallets}})
}

// LinkWallet records a freshly verified wallet for the authenticated user
func (h *AuthHandlers) LinkWallet(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	wallet, err := h.authService.RecordWallet(c.Request.Context(), user.ID, req.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record wallet"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"wallet": wallet}})
}

// Balances aggregates token balances across the user's wallets
func (h *AuthHandlers) Balances(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	balances, err := h.authService.Balances(c.Request.Context(), user.ID, c.Query("wallet_id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch balances"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"balances": balances}})
}

// Rewards aggregates reward totals across the user's wallets
func (h *AuthHandlers) Rewards(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	totals, err := h.authService.RewardTotals(c.Request.Context(), user.ID, c.Query("wallet_id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch rewards"})
		return
	}

	rewards := make([]gin.H, 0, len(totals))
	for _, total := range totals {
		rewards = append(rewards, gin.H{"token": total.Token, "amount": total.Amount})
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"rewards": rewards}})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/http/middleware"
	"go.uber.org/zap"
)

// AdminAuthHandlers handles back-office login
type AdminAuthHandlers struct {
	responder
	authSvc domain.AdminAuthService
}

// NewAdminAuthHandlers creates new admin auth handlers
func NewAdminAuthHandlers(authSvc domain.AdminAuthService, clock clockwork.Clock, logger *zap.Logger) *AdminAuthHandlers {
	return &AdminAuthHandlers{
		responder: responder{logger: logger, clock: clock},
		authSvc:   authSvc,
	}
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles admin login
func (h *AdminAuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"access_token": result.AccessToken,
			"token_type":   "Bearer",
			"expires_in":   result.ExpiresIn,
			"admin":        adminResponse(result.Admin),
		},
	})
}

// Logout ends the admin session carried by the token
func (h *AdminAuthHandlers) Logout(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	if sessionID == "" {
		h.fail(c, domain.ErrSessionNotFound)
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), sessionID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out successfully"}})
}

// Me returns the authenticated admin
func (h *AdminAuthHandlers) Me(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		h.fail(c, domain.ErrUnauthorized)
		return
	}
	admin, err := h.authSvc.GetProfile(c.Request.Context(), adminID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": adminResponse(admin)})
}

func adminResponse(a *domain.Admin) gin.H {
	return gin.H{
		"id":    a.ID,
		"name":  a.Name,
		"email": a.Email,
		"role":  a.Role,
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// AuthHandlers handles candidate authentication HTTP requests
type AuthHandlers struct {
	responder
	authSvc domain.CandidateAuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.CandidateAuthService, clock clockwork.Clock, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		responder: responder{logger: logger, clock: clock},
		authSvc:   authSvc,
	}
}

// RequestTokenRequest represents an access code request
type RequestTokenRequest struct {
	CPF   string `json:"cpf" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// ValidateTokenRequest represents an access code exchange
type ValidateTokenRequest struct {
	CPF  string `json:"cpf" binding:"required"`
	Code string `json:"code" binding:"required"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RequestToken issues a one-time code and emails it to the candidate
func (h *AuthHandlers) RequestToken(c *gin.Context) {
	var req RequestTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.RequestToken(c.Request.Context(), req.CPF, req.Email, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":            result.Message,
			"masked_email":       result.MaskedEmail,
			"expires_at":         result.ExpiresAt.UTC(),
			"expires_in_minutes": result.ExpiresInMinutes,
		},
	})
}

// ValidateToken exchanges a code for an access and refresh token
func (h *AuthHandlers) ValidateToken(c *gin.Context) {
	var req ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.ValidateToken(c.Request.Context(), req.CPF, req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tokenResponse(result)})
}

// LockoutStatus reports whether a CPF is locked out
func (h *AuthHandlers) LockoutStatus(c *gin.Context) {
	cpf := c.Query("cpf")
	if cpf == "" {
		h.fail(c, domain.ErrInvalidCPF)
		return
	}

	status, err := h.authSvc.CheckLockoutStatus(c.Request.Context(), cpf)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

// Refresh rotates a refresh token into a new token pair
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tokenResponse(result)})
}

func tokenResponse(result *domain.TokenValidationResult) gin.H {
	resp := gin.H{
		"access_token":          result.AccessToken,
		"refresh_token":         result.RefreshToken,
		"token_type":            "Bearer",
		"expires_in":            result.ExpiresIn,
		"requires_lgpd_consent": result.RequiresLGPDConsent,
	}
	if result.Candidate != nil {
		resp["candidate"] = gin.H{
			"id":    result.Candidate.ID,
			"name":  result.Candidate.Name,
			"email": result.Candidate.Email,
		}
	}
	return resp
}

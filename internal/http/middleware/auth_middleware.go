package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kai426/Dignus-sub001/domain"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID    = "user_id"
	ContextUserRole  = "user_role"
	ContextSessionID = "session_id"
	ContextCPF       = "cpf"
)

// AuthMiddleware creates authentication middleware. Admin tokens carry a session id
// that must still exist; candidate tokens are stateless.
func AuthMiddleware(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := tokenSvc.ValidateAccessToken(tokenParts[1])
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrAccessTokenExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case errors.Is(err, domain.ErrAccessTokenInvalid), errors.Is(err, domain.ErrAccessTokenMalformed):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token validation failed"})
			}
			c.Abort()
			return
		}

		if claims.Role == domain.RoleAdmin {
			if claims.SessionID == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
				c.Abort()
				return
			}
			session, err := sessionRepo.FindByID(c.Request.Context(), claims.SessionID)
			if err != nil || session == nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
				c.Abort()
				return
			}
			if session.UserID != claims.UserID {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session user mismatch"})
				c.Abort()
				return
			}
			c.Set(ContextSessionID, claims.SessionID)
		}

		// string form keeps casbin and validation rule comparisons simple
		c.Set(ContextUserID, strconv.FormatUint(uint64(claims.UserID), 10))
		c.Set(ContextUserRole, claims.Role)
		if claims.CPF != "" {
			c.Set(ContextCPF, claims.CPF)
		}

		c.Next()
	})
}

// RequireRole rejects callers whose token role differs from role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserRole) != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware
func UserID(c *gin.Context) (uint, bool) {
	raw := c.GetString(ContextUserID)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

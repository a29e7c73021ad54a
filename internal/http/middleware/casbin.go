package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/config"
	"go.uber.org/zap"
)

// CasbinMW authorizes routes with casbin and then checks the request
// validation rules bound to the matched route
type CasbinMW struct {
	enforcer         domain.CasbinEnforcer
	validationEngine *ValidationEngine
	logger           *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(enforcer domain.CasbinEnforcer, rules []config.ValidationRule, logger *zap.Logger) *CasbinMW {
	return &CasbinMW{
		enforcer:         enforcer,
		validationEngine: NewValidationEngine(rules),
		logger:           logger,
	}
}

// Enforce returns the casbin authorization middleware
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		tokenUserID, userExists := c.Get(ContextUserID)
		primaryRole, roleExists := c.Get(ContextUserRole)
		if !userExists || !roleExists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID or role not found in token"})
			c.Abort()
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method

		allowed, err := mw.enforcer.Enforce("role_"+primaryRole.(string), path, method)
		if err != nil {
			mw.logger.Error("casbin enforce failed", zap.String("path", path), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
			c.Abort()
			return
		}

		tokenClaims := map[string]interface{}{
			"user_id": tokenUserID,
			"role":    primaryRole,
		}
		if cpf, exists := c.Get(ContextCPF); exists {
			tokenClaims["cpf"] = cpf
		}
		if err := mw.validationEngine.ValidateRequest(c, tokenClaims); err != nil {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Field validation failed",
				"details": err.Error(),
			})
			c.Abort()
			return
		}

		c.Next()
	})
}

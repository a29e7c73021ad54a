package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kai426/Dignus-sub001/internal/http/handlers"
	"github.com/kai426/Dignus-sub001/internal/http/middleware"
	"github.com/kai426/Dignus-sub001/internal/metrics"
)

// Handlers bundles every HTTP handler group the router mounts
type Handlers struct {
	Auth      *handlers.AuthHandlers
	AdminAuth *handlers.AdminAuthHandlers
	Tests     *handlers.TestHandlers
	Groups    *handlers.QuestionGroupHandlers
	Templates *handlers.QuestionTemplateHandlers
	Policies  *handlers.PolicyHandlers
	Webhooks  *handlers.WebhookHandlers
}

// BuildRouter mounts the public, candidate and admin route groups
func BuildRouter(h Handlers, jwtmw *middleware.AuthMW, cb *middleware.CasbinMW, limiter *middleware.RateLimiter, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Secure(), m.Middleware())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", m.Handler())

	auth := r.Group("/auth", limiter.Middleware())
	auth.POST("/request-token", h.Auth.RequestToken)
	auth.POST("/validate-token", h.Auth.ValidateToken)
	auth.GET("/lockout-status", h.Auth.LockoutStatus)
	auth.POST("/refresh", h.Auth.Refresh)

	r.POST("/admin/auth/login", limiter.Middleware(), h.AdminAuth.Login)

	r.POST("/webhooks/ai/video-evaluations", h.Webhooks.VideoEvaluation)

	tests := r.Group("/tests")
	tests.Use(jwtmw.Candidate()...)
	tests.Use(cb.Enforce())
	tests.POST("", h.Tests.Create)
	tests.GET("/can-start", h.Tests.CanStart)
	tests.POST("/submit", h.Tests.Submit)
	tests.GET("/:id", h.Tests.Get)
	tests.POST("/:id/start", h.Tests.Start)
	tests.GET("/:id/status", h.Tests.Status)
	tests.POST("/:id/answers", h.Tests.SaveAnswer)
	tests.POST("/:id/videos", h.Tests.UploadVideo)

	adm := r.Group("/admin")
	adm.Use(jwtmw.Admin()...)
	adm.Use(cb.Enforce())
	adm.POST("/auth/logout", h.AdminAuth.Logout)
	adm.GET("/auth/me", h.AdminAuth.Me)

	adm.GET("/question-templates", h.Templates.List)
	adm.POST("/question-templates", h.Templates.Create)
	adm.GET("/question-templates/:id", h.Templates.Get)
	adm.PUT("/question-templates/:id", h.Templates.Update)

	adm.GET("/question-groups", h.Groups.List)
	adm.POST("/question-groups", h.Groups.Create)
	adm.GET("/question-groups/:id", h.Groups.Get)
	adm.DELETE("/question-groups/:id", h.Groups.Delete)
	adm.POST("/question-groups/:id/activate", h.Groups.Activate)
	adm.POST("/question-groups/:id/deactivate", h.Groups.Deactivate)
	adm.PUT("/question-groups/:id/reorder", h.Groups.Reorder)

	adm.GET("/policies", h.Policies.List)
	adm.GET("/policies/check", h.Policies.Check)
	adm.POST("/policies", h.Policies.Add)
	adm.DELETE("/policies", h.Policies.Remove)

	return r
}

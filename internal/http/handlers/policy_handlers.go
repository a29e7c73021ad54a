package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// PolicyHandlers manages casbin route policies
type PolicyHandlers struct {
	responder
	policySvc domain.PolicyService
}

// NewPolicyHandlers creates new policy handlers
func NewPolicyHandlers(policySvc domain.PolicyService, clock clockwork.Clock, logger *zap.Logger) *PolicyHandlers {
	return &PolicyHandlers{
		responder: responder{logger: logger, clock: clock},
		policySvc: policySvc,
	}
}

type policyReq struct {
	Role     string `json:"role" binding:"required"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// List handles GET /admin/policies
func (h *PolicyHandlers) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.policySvc.GetPolicies()})
}

// Add handles POST /admin/policies
func (h *PolicyHandlers) Add(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.policySvc.AddPolicy(r.Role, r.Resource, r.Action); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove handles DELETE /admin/policies
func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r policyReq
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.policySvc.RemovePolicy(r.Role, r.Resource, r.Action); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Check handles GET /admin/policies/check?role=&resource=&action=
func (h *PolicyHandlers) Check(c *gin.Context) {
	role, resource, action := c.Query("role"), c.Query("resource"), c.Query("action")
	if role == "" || resource == "" || action == "" {
		h.fail(c, domain.ErrInvalidPolicy)
		return
	}
	allowed, err := h.policySvc.CheckPermission(role, resource, action)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"allowed": allowed}})
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// QuestionGroupHandlers exposes question group administration
type QuestionGroupHandlers struct {
	responder
	groupSvc domain.QuestionGroupService
}

// NewQuestionGroupHandlers creates new question group handlers
func NewQuestionGroupHandlers(groupSvc domain.QuestionGroupService, clock clockwork.Clock, logger *zap.Logger) *QuestionGroupHandlers {
	return &QuestionGroupHandlers{
		responder: responder{logger: logger, clock: clock},
		groupSvc:  groupSvc,
	}
}

// CreateGroupBody is the JSON body of a new group
type CreateGroupBody struct {
	Name               string                      `json:"name"`
	TestType           string                      `json:"testType" binding:"required"`
	ReadingTextID      *uint                       `json:"readingTextId"`
	ReadingTextVersion *int                        `json:"readingTextVersion"`
	Questions          []domain.GroupQuestionInput `json:"questions" binding:"required,dive"`
}

// ReorderBody is the JSON body of a reorder request
type ReorderBody struct {
	Orders []domain.QuestionOrdering `json:"orders" binding:"required,dive"`
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}

// Create handles POST /admin/question-groups
func (h *QuestionGroupHandlers) Create(c *gin.Context) {
	var body CreateGroupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.groupSvc.CreateGroup(c.Request.Context(), domain.CreateGroupRequest{
		Name:               body.Name,
		TestType:           domain.TestType(body.TestType),
		ReadingTextID:      body.ReadingTextID,
		ReadingTextVersion: body.ReadingTextVersion,
		Questions:          body.Questions,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": groupResponse(group)})
}

// List handles GET /admin/question-groups?testType=
func (h *QuestionGroupHandlers) List(c *gin.Context) {
	groups, err := h.groupSvc.ListGroups(c.Request.Context(), domain.TestType(c.Query("testType")))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(groups))
	for i := range groups {
		out = append(out, groupResponse(&groups[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Get handles GET /admin/question-groups/:id
func (h *QuestionGroupHandlers) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	group, err := h.groupSvc.GetGroup(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groupResponse(group)})
}

// Activate handles POST /admin/question-groups/:id/activate
func (h *QuestionGroupHandlers) Activate(c *gin.Context) {
	h.mutate(c, h.groupSvc.ActivateGroup)
}

// Deactivate handles POST /admin/question-groups/:id/deactivate
func (h *QuestionGroupHandlers) Deactivate(c *gin.Context) {
	h.mutate(c, h.groupSvc.DeactivateGroup)
}

// Delete handles DELETE /admin/question-groups/:id
func (h *QuestionGroupHandlers) Delete(c *gin.Context) {
	h.mutate(c, h.groupSvc.DeleteGroup)
}

// Reorder handles PUT /admin/question-groups/:id/reorder
func (h *QuestionGroupHandlers) Reorder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var body ReorderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.groupSvc.ReorderQuestions(c.Request.Context(), id, body.Orders); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuestionGroupHandlers) mutate(c *gin.Context, op func(context.Context, uint) error) {
	id, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func groupResponse(g *domain.TestQuestionGroup) gin.H {
	questions := make([]gin.H, 0, len(g.Questions))
	for _, q := range g.Questions {
		questions = append(questions, gin.H{
			"id":          q.ID,
			"template_id": q.TemplateID,
			"order":       q.Order,
		})
	}
	return gin.H{
		"id":                   g.ID,
		"name":                 g.Name,
		"test_type":            g.TestType,
		"version":              g.Version,
		"is_active":            g.IsActive,
		"reading_text_id":      g.ReadingTextID,
		"reading_text_version": g.ReadingTextVersion,
		"questions":            questions,
		"created_at":           g.CreatedAt.UTC(),
		"updated_at":           g.UpdatedAt.UTC(),
	}
}

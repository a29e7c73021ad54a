package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// QuestionTemplateHandlers exposes the question bank to admins
type QuestionTemplateHandlers struct {
	responder
	bankSvc domain.QuestionBankService
}

// NewQuestionTemplateHandlers creates new question template handlers
func NewQuestionTemplateHandlers(bankSvc domain.QuestionBankService, clock clockwork.Clock, logger *zap.Logger) *QuestionTemplateHandlers {
	return &QuestionTemplateHandlers{
		responder: responder{logger: logger, clock: clock},
		bankSvc:   bankSvc,
	}
}

// TemplateBody is the admin representation of a template with its answer key
type TemplateBody struct {
	TestType         string                  `json:"testType" binding:"required"`
	Difficulty       string                  `json:"difficulty"`
	ResponseKind     string                  `json:"responseKind"`
	Text             string                  `json:"text" binding:"required"`
	Options          []domain.QuestionOption `json:"options"`
	AllowMultiple    bool                    `json:"allowMultiple"`
	MaxAnswers       int                     `json:"maxAnswers"`
	PointValue       float64                 `json:"pointValue"`
	EstimatedSeconds int                     `json:"estimatedSeconds"`
	IsActive         *bool                   `json:"isActive"`
	CorrectOptionIDs []string                `json:"correctOptionIds"`
	GradingGuide     string                  `json:"gradingGuide"`
}

func (b TemplateBody) toDomain() *domain.QuestionTemplate {
	kind := domain.ResponseKind(b.ResponseKind)
	if kind == "" {
		kind = domain.ResponseKindMultipleChoice
	}
	active := true
	if b.IsActive != nil {
		active = *b.IsActive
	}
	return &domain.QuestionTemplate{
		TestType:         domain.TestType(b.TestType),
		Difficulty:       domain.Difficulty(b.Difficulty),
		ResponseKind:     kind,
		Text:             b.Text,
		Options:          b.Options,
		AllowMultiple:    b.AllowMultiple,
		MaxAnswers:       b.MaxAnswers,
		PointValue:       b.PointValue,
		EstimatedSeconds: b.EstimatedSeconds,
		IsActive:         active,
		Answer: &domain.QuestionAnswer{
			CorrectOptionIDs: b.CorrectOptionIDs,
			GradingGuide:     b.GradingGuide,
		},
	}
}

// Create handles POST /admin/question-templates
func (h *QuestionTemplateHandlers) Create(c *gin.Context) {
	var body TemplateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	tpl, err := h.bankSvc.CreateTemplate(c.Request.Context(), body.toDomain())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": templateResponse(tpl)})
}

// Update handles PUT /admin/question-templates/:id
func (h *QuestionTemplateHandlers) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var body TemplateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	in := body.toDomain()
	in.ID = id
	tpl, err := h.bankSvc.UpdateTemplate(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": templateResponse(tpl)})
}

// Get handles GET /admin/question-templates/:id
func (h *QuestionTemplateHandlers) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	tpl, err := h.bankSvc.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": templateResponse(tpl)})
}

// List handles GET /admin/question-templates?testType=&difficulty=
func (h *QuestionTemplateHandlers) List(c *gin.Context) {
	templates, err := h.bankSvc.ListTemplates(c.Request.Context(), domain.TemplateFilter{
		TestType:   domain.TestType(c.Query("testType")),
		Difficulty: domain.Difficulty(c.Query("difficulty")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(templates))
	for i := range templates {
		out = append(out, templateResponse(&templates[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func templateResponse(t *domain.QuestionTemplate) gin.H {
	resp := gin.H{
		"id":                t.ID,
		"test_type":         t.TestType,
		"difficulty":        t.Difficulty,
		"response_kind":     t.ResponseKind,
		"text":              t.Text,
		"options":           t.Options,
		"allow_multiple":    t.AllowMultiple,
		"max_answers":       t.MaxAnswers,
		"point_value":       t.PointValue,
		"estimated_seconds": t.EstimatedSeconds,
		"is_active":         t.IsActive,
		"created_at":        t.CreatedAt.UTC(),
		"updated_at":        t.UpdatedAt.UTC(),
	}
	if t.Answer != nil {
		resp["correct_option_ids"] = t.Answer.CorrectOptionIDs
		resp["grading_guide"] = t.Answer.GradingGuide
	}
	return resp
}

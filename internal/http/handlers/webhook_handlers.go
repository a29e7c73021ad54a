package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// WebhookSecretHeader carries the secret shared with the AI agent
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookHandlers receives asynchronous results from the AI agent
type WebhookHandlers struct {
	responder
	testSvc domain.TestService
	secret  string
}

// NewWebhookHandlers creates new webhook handlers. An empty secret rejects every call.
func NewWebhookHandlers(testSvc domain.TestService, secret string, clock clockwork.Clock, logger *zap.Logger) *WebhookHandlers {
	return &WebhookHandlers{
		responder: responder{logger: logger, clock: clock},
		testSvc:   testSvc,
		secret:    secret,
	}
}

// VideoEvaluationBody is the payload posted by the AI agent
type VideoEvaluationBody struct {
	ResponseID string   `json:"responseId" binding:"required"`
	Score      *float64 `json:"score" binding:"required"`
	Feedback   string   `json:"feedback"`
	Verdict    string   `json:"verdict"`
}

// VideoEvaluation handles POST /webhooks/ai/video-evaluations
func (h *WebhookHandlers) VideoEvaluation(c *gin.Context) {
	given := c.GetHeader(WebhookSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		h.fail(c, domain.ErrUnauthorized)
		return
	}

	var body VideoEvaluationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	err := h.testSvc.ApplyVideoEvaluation(c.Request.Context(), domain.VideoEvaluation{
		ResponseID: body.ResponseID,
		Score:      *body.Score,
		Feedback:   body.Feedback,
		Verdict:    body.Verdict,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.Info("video evaluation stored",
		zap.String("response_id", body.ResponseID),
		zap.Float64("score", *body.Score))
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/http/middleware"
	"go.uber.org/zap"
)

// multipartOverhead is the room left for form fields next to the video file
const multipartOverhead = 1 << 20

// TestHandlers handles the candidate test lifecycle
type TestHandlers struct {
	responder
	testSvc      domain.TestService
	maxVideoSize int64
}

// NewTestHandlers creates new test handlers
func NewTestHandlers(testSvc domain.TestService, maxVideoSize int64, clock clockwork.Clock, logger *zap.Logger) *TestHandlers {
	return &TestHandlers{
		responder:    responder{logger: logger, clock: clock},
		testSvc:      testSvc,
		maxVideoSize: maxVideoSize,
	}
}

// CreateTestRequest creates a test instance. CandidateID must match the token.
type CreateTestRequest struct {
	CandidateID uint   `json:"candidateId" binding:"required"`
	TestType    string `json:"testType" binding:"required"`
	Difficulty  string `json:"difficulty"`
}

// StartTestRequest starts a test instance
type StartTestRequest struct {
	CandidateID uint `json:"candidateId" binding:"required"`
}

// AnswerRequest is one multiple-choice answer
type AnswerRequest struct {
	QuestionSnapshotID  string   `json:"questionSnapshotId" binding:"required"`
	SelectedOptionIDs   []string `json:"selectedOptionIds"`
	ResponseTimeSeconds int      `json:"responseTimeSeconds"`
}

// SubmitTestRequest completes a test with its answers
type SubmitTestRequest struct {
	TestID      string          `json:"testId" binding:"required"`
	CandidateID uint            `json:"candidateId" binding:"required"`
	Answers     []AnswerRequest `json:"answers" binding:"dive"`
}

func (r AnswerRequest) toDomain() domain.SubmittedAnswer {
	return domain.SubmittedAnswer{
		QuestionSnapshotID:  r.QuestionSnapshotID,
		SelectedOptionIDs:   r.SelectedOptionIDs,
		ResponseTimeSeconds: r.ResponseTimeSeconds,
	}
}

func (h *TestHandlers) candidateID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		h.fail(c, domain.ErrUnauthorized)
	}
	return id, ok
}

// Create handles POST /tests
func (h *TestHandlers) Create(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	var req CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.testSvc.CreateTest(c.Request.Context(), candidateID,
		domain.TestType(req.TestType), domain.Difficulty(req.Difficulty))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": view})
}

// CanStart handles GET /tests/can-start
func (h *TestHandlers) CanStart(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	testType := domain.TestType(c.Query("testType"))

	canStart, err := h.testSvc.CanStartTest(c.Request.Context(), candidateID, testType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"test_type": testType, "can_start": canStart}})
}

// Get handles GET /tests/:id
func (h *TestHandlers) Get(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	view, err := h.testSvc.GetTest(c.Request.Context(), c.Param("id"), candidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// Start handles POST /tests/:id/start
func (h *TestHandlers) Start(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	var req StartTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.testSvc.StartTest(c.Request.Context(), c.Param("id"), candidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// Status handles GET /tests/:id/status
func (h *TestHandlers) Status(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	status, err := h.testSvc.GetTestStatus(c.Request.Context(), c.Param("id"), candidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

// SaveAnswer handles POST /tests/:id/answers
func (h *TestHandlers) SaveAnswer(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.testSvc.SaveAnswer(c.Request.Context(), c.Param("id"), candidateID, req.toDomain()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadVideo handles the multipart POST /tests/:id/videos
func (h *TestHandlers) UploadVideo(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	if h.maxVideoSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxVideoSize+multipartOverhead)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, domain.ErrInvalidVideo.WithMessage("video exceeds the maximum size"))
			return
		}
		badRequest(c, err)
		return
	}
	snapshotID := c.PostForm("questionSnapshotId")
	if snapshotID == "" {
		h.fail(c, domain.ErrInvalidQuestionSnapshot)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	upload := domain.VideoUpload{
		QuestionSnapshotID: snapshotID,
		FileName:           header.Filename,
		ContentType:        header.Header.Get("Content-Type"),
		Size:               header.Size,
	}
	resp, err := h.testSvc.UploadVideoResponse(c.Request.Context(), c.Param("id"), candidateID, upload, file)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"id":                   resp.ID,
			"question_snapshot_id": resp.QuestionSnapshotID,
			"content_type":         resp.ContentType,
			"file_size":            resp.FileSize,
			"uploaded_at":          resp.UploadedAt.UTC(),
		},
	})
}

// Submit handles POST /tests/submit
func (h *TestHandlers) Submit(c *gin.Context) {
	candidateID, ok := h.candidateID(c)
	if !ok {
		return
	}
	var req SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	answers := make([]domain.SubmittedAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, a.toDomain())
	}
	result, err := h.testSvc.SubmitTest(c.Request.Context(), req.TestID, candidateID, answers)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

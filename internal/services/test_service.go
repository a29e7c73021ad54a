package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/metrics"
	"go.uber.org/zap"
)

// TestServiceConfig holds per-type timing and upload limits
type TestServiceConfig struct {
	DurationLimits    map[domain.TestType]time.Duration
	MaxVideoSize      int64
	AIDispatchTimeout time.Duration
}

// DefaultTestServiceConfig returns the limits used when configuration has none
func DefaultTestServiceConfig() TestServiceConfig {
	return TestServiceConfig{
		DurationLimits: map[domain.TestType]time.Duration{
			domain.TestTypePortuguese:      30 * time.Minute,
			domain.TestTypeMath:            30 * time.Minute,
			domain.TestTypeVisualRetention: 10 * time.Minute,
		},
		MaxVideoSize:      200 << 20,
		AIDispatchTimeout: 15 * time.Second,
	}
}

// TestServiceImpl implements domain.TestService
type TestServiceImpl struct {
	testRepo     domain.TestInstanceRepository
	groupRepo    domain.QuestionGroupRepository
	templateRepo domain.QuestionTemplateRepository
	storage      domain.VideoStorage
	aiAgent      domain.AIAgent
	audit        domain.AuditLogger
	metrics      *metrics.Metrics
	clock        clockwork.Clock
	logger       *zap.Logger
	config       TestServiceConfig
}

// NewTestService creates a new test lifecycle service
func NewTestService(
	testRepo domain.TestInstanceRepository,
	groupRepo domain.QuestionGroupRepository,
	templateRepo domain.QuestionTemplateRepository,
	storage domain.VideoStorage,
	aiAgent domain.AIAgent,
	audit domain.AuditLogger,
	m *metrics.Metrics,
	clock clockwork.Clock,
	logger *zap.Logger,
	config TestServiceConfig,
) domain.TestService {
	return &TestServiceImpl{
		testRepo:     testRepo,
		groupRepo:    groupRepo,
		templateRepo: templateRepo,
		storage:      storage,
		aiAgent:      aiAgent,
		audit:        audit,
		metrics:      m,
		clock:        clock,
		logger:       logger,
		config:       config,
	}
}

// CreateTest implements domain.TestService
func (s *TestServiceImpl) CreateTest(ctx context.Context, candidateID uint, testType domain.TestType, difficulty domain.Difficulty) (*domain.CandidateTestView, error) {
	if !testType.IsValid() {
		return nil, domain.ErrInvalidTestType
	}
	if !difficulty.IsValid() {
		return nil, domain.ErrInvalidDifficulty
	}

	active, err := s.testRepo.HasActiveTest(ctx, candidateID, testType)
	if err != nil {
		return nil, fmt.Errorf("failed to check active tests: %w", err)
	}
	if active {
		return nil, domain.ErrActiveTestExists
	}

	group, err := s.groupRepo.FindActive(ctx, testType)
	if err != nil {
		if errors.Is(err, domain.ErrGroupNotFound) {
			s.logger.Error("no active question group",
				zap.String("test_type", string(testType)))
			return nil, domain.ErrNoActiveQuestionGroup
		}
		return nil, fmt.Errorf("failed to load active group: %w", err)
	}

	ids := make([]uint, 0, len(group.Questions))
	for _, q := range group.Questions {
		ids = append(ids, q.TemplateID)
	}
	templates, err := s.templateRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load question templates: %w", err)
	}

	now := s.clock.Now()
	instance := &domain.TestInstance{
		ID:                   uuid.NewString(),
		CandidateID:          candidateID,
		TestType:             testType,
		Status:               domain.TestStatusNotStarted,
		QuestionGroupID:      group.ID,
		Difficulty:           difficulty,
		ReadingTextID:        group.ReadingTextID,
		ReadingTextVersion:   group.ReadingTextVersion,
		DurationLimitSeconds: int(s.config.DurationLimits[testType].Seconds()),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for i, q := range group.Questions {
		tpl, ok := templates[q.TemplateID]
		if !ok {
			return nil, domain.ErrQuestionTemplateNotFound.WithMessage(
				fmt.Sprintf("active group %d references missing template %d", group.ID, q.TemplateID))
		}
		instance.Questions = append(instance.Questions,
			domain.NewQuestionSnapshot(uuid.NewString(), instance.ID, i+1, tpl, now))
	}

	if err := s.testRepo.CreateWithSnapshots(ctx, instance); err != nil {
		if errors.Is(err, domain.ErrActiveTestExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.metrics.IncTest(metrics.TestCreated, string(testType))
	s.logAudit(ctx, domain.NewAuditEvent(domain.TestCreatedEvent, now).
		WithUser(candidateID).
		WithMetadata("test_id", instance.ID).
		WithMetadata("test_type", string(testType)).
		WithMetadata("question_group_id", group.ID))

	return instance.CandidateView(), nil
}

// StartTest implements domain.TestService
func (s *TestServiceImpl) StartTest(ctx context.Context, testID string, candidateID uint) (*domain.CandidateTestView, error) {
	instance, err := s.loadOwned(ctx, testID, candidateID)
	if err != nil {
		return nil, err
	}
	if instance.Status != domain.TestStatusNotStarted {
		return nil, domain.ErrInvalidStateTransition
	}

	now := s.clock.Now()
	if err := s.testRepo.MarkStarted(ctx, testID, now); err != nil {
		return nil, err
	}
	instance.Status = domain.TestStatusInProgress
	instance.StartedAt = &now
	instance.UpdatedAt = now

	s.metrics.IncTest(metrics.TestStarted, string(instance.TestType))
	s.logAudit(ctx, domain.NewAuditEvent(domain.TestStartedEvent, now).
		WithUser(candidateID).
		WithMetadata("test_id", testID))

	return instance.CandidateView(), nil
}

// SubmitTest implements domain.TestService. Answers saved earlier with SaveAnswer are
// graded too unless the submission overrides them.
func (s *TestServiceImpl) SubmitTest(ctx context.Context, testID string, candidateID uint, answers []domain.SubmittedAnswer) (*domain.SubmissionResult, error) {
	instance, err := s.loadOwned(ctx, testID, candidateID)
	if err != nil {
		return nil, err
	}
	if instance.Status != domain.TestStatusInProgress {
		return nil, domain.ErrInvalidStateTransition
	}

	now := s.clock.Now()
	byQuestion := make(map[string]domain.QuestionResponse, len(instance.QuestionResponses))
	for _, r := range instance.QuestionResponses {
		byQuestion[r.QuestionSnapshotID] = r
	}
	for _, a := range answers {
		snapshot, ok := instance.Snapshot(a.QuestionSnapshotID)
		if !ok {
			return nil, domain.ErrInvalidQuestionSnapshot
		}
		if len(a.SelectedOptionIDs) == 0 {
			delete(byQuestion, a.QuestionSnapshotID)
			continue
		}
		if err := snapshot.ValidateSelection(a.SelectedOptionIDs); err != nil {
			return nil, err
		}
		r, exists := byQuestion[a.QuestionSnapshotID]
		if !exists {
			r = domain.QuestionResponse{
				ID:                 uuid.NewString(),
				TestInstanceID:     testID,
				QuestionSnapshotID: a.QuestionSnapshotID,
			}
		}
		r.SelectedOptionIDs = append([]string(nil), a.SelectedOptionIDs...)
		r.ResponseTimeSeconds = a.ResponseTimeSeconds
		r.AnsweredAt = now
		byQuestion[a.QuestionSnapshotID] = r
	}

	var (
		raw, maxScore float64
		correct       int
		graded        []domain.GradedAnswer
		responses     []domain.QuestionResponse
	)
	for i := range instance.Questions {
		q := &instance.Questions[i]
		if q.ResponseKind != domain.ResponseKindMultipleChoice {
			continue
		}
		maxScore += q.PointValue

		r, answered := byQuestion[q.ID]
		if !answered {
			continue
		}
		ok, points := q.Grade(r.SelectedOptionIDs)
		r.IsCorrect = &ok
		r.PointsEarned = &points
		raw += points
		if ok {
			correct++
		}
		responses = append(responses, r)
		graded = append(graded, domain.GradedAnswer{
			QuestionSnapshotID: q.ID,
			IsCorrect:          ok,
			PointsEarned:       points,
		})
	}

	duration := 0
	if instance.StartedAt != nil {
		duration = int(now.Sub(*instance.StartedAt).Seconds())
	}
	score := normalizeScore(raw, maxScore)

	instance.RawScore = &raw
	instance.MaxPossibleScore = &maxScore
	instance.Score = score
	instance.DurationSeconds = &duration
	instance.CompletedAt = &now
	instance.UpdatedAt = now
	if err := s.testRepo.Complete(ctx, instance, responses); err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to complete test: %w", err)
	}

	s.metrics.IncTest(metrics.TestSubmitted, string(instance.TestType))
	s.logAudit(ctx, domain.NewAuditEvent(domain.TestSubmittedEvent, now).
		WithUser(candidateID).
		WithMetadata("test_id", testID).
		WithMetadata("raw_score", raw).
		WithMetadata("max_possible_score", maxScore))

	return &domain.SubmissionResult{
		TestID:           testID,
		Status:           domain.TestStatusCompleted,
		RawScore:         raw,
		MaxPossibleScore: maxScore,
		Score:            score,
		CorrectAnswers:   correct,
		TotalQuestions:   countKind(instance.Questions, domain.ResponseKindMultipleChoice),
		DurationSeconds:  duration,
		CompletedAt:      now,
		Answers:          graded,
	}, nil
}

// normalizeScore scales raw to 0-100 with two decimals, nil when nothing is gradable
func normalizeScore(raw, max float64) *float64 {
	if max <= 0 {
		return nil
	}
	v := math.Round(raw/max*100*100) / 100
	return &v
}

func countKind(questions []domain.QuestionSnapshot, kind domain.ResponseKind) int {
	n := 0
	for _, q := range questions {
		if q.ResponseKind == kind {
			n++
		}
	}
	return n
}

// GetTestStatus implements domain.TestService
func (s *TestServiceImpl) GetTestStatus(ctx context.Context, testID string, candidateID uint) (*domain.TestStatusSummary, error) {
	instance, err := s.loadOwned(ctx, testID, candidateID)
	if err != nil {
		return nil, err
	}

	summary := &domain.TestStatusSummary{
		TestID:            instance.ID,
		Status:            instance.Status,
		QuestionsAnswered: len(instance.QuestionResponses),
		TotalQuestions:    countKind(instance.Questions, domain.ResponseKindMultipleChoice),
		VideosUploaded:    len(instance.VideoResponses),
		VideosRequired:    countKind(instance.Questions, domain.ResponseKindVideo),
		RemainingSeconds:  instance.RemainingSeconds(s.clock.Now()),
		StartedAt:         instance.StartedAt,
	}
	summary.CanSubmit = instance.Status == domain.TestStatusInProgress &&
		summary.VideosUploaded >= summary.VideosRequired
	return summary, nil
}

// CanStartTest implements domain.TestService
func (s *TestServiceImpl) CanStartTest(ctx context.Context, candidateID uint, testType domain.TestType) (bool, error) {
	if !testType.IsValid() {
		return false, domain.ErrInvalidTestType
	}
	active, err := s.testRepo.HasActiveTest(ctx, candidateID, testType)
	if err != nil {
		return false, fmt.Errorf("failed to check active tests: %w", err)
	}
	return !active, nil
}

// GetTest implements domain.TestService
func (s *TestServiceImpl) GetTest(ctx context.Context, testID string, candidateID uint) (*domain.CandidateTestView, error) {
	instance, err := s.loadOwned(ctx, testID, candidateID)
	if err != nil {
		return nil, err
	}
	return instance.CandidateView(), nil
}

// SaveAnswer implements domain.TestService
func (s *TestServiceImpl) SaveAnswer(ctx context.Context, testID string, candidateID uint, answer domain.SubmittedAnswer) error {
	instance, err := s.loadOwned(ctx, testID, candidateID)
	if err != nil {
		return err
	}
	if instance.Status != domain.TestStatusInProgress {
		return domain.ErrInvalidStateTransition
	}
	snapshot, ok := instance.Snapshot(answer.QuestionSnapshotID)
	if !ok {
		return domain.ErrInvalidQuestionSnapshot
	}
	if err := snapshot.ValidateSelection(answer.SelectedOptionIDs); err != nil {
		return err
	}

	return s.testRepo.SaveResponse(ctx, &domain.QuestionResponse{
		ID:                  uuid.NewString(),
		TestInstanceID:      testID,
		QuestionSnapshotID:  answer.QuestionSnapshotID,
		SelectedOptionIDs:   append([]string(nil), answer.SelectedOptionIDs...),
		ResponseTimeSeconds: answer.ResponseTimeSeconds,
		AnsweredAt:          s.clock.Now(),
	})
}

// UploadVideoResponse implements domain.TestService. The blob and the response row are
// committed before the AI agent is called; a failed dispatch is only logged.
func (s *TestServiceImpl) UploadVideoResponse(ctx context.Context, testID string, candidateID uint, upload domain.VideoUpload, content io.Reader) (*domain.VideoResponse, error) {
	instance, err := s.loadOwned(ctx, testID, candidateID)
	if err != nil {
		return nil, err
	}
	if instance.Status != domain.TestStatusInProgress {
		return nil, domain.ErrInvalidStateTransition
	}
	snapshot, ok := instance.Snapshot(upload.QuestionSnapshotID)
	if !ok {
		return nil, domain.ErrInvalidQuestionSnapshot
	}
	if snapshot.ResponseKind != domain.ResponseKindVideo {
		return nil, domain.ErrInvalidVideo.WithMessage("question does not accept video answers")
	}
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tests/%s/%s/%s%s", testID, snapshot.ID, uuid.NewString(), strings.ToLower(filepath.Ext(upload.FileName)))
	url, err := s.storage.Upload(ctx, key, content, upload.Size, upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}

	response := &domain.VideoResponse{
		ID:                 uuid.NewString(),
		TestInstanceID:     testID,
		QuestionSnapshotID: snapshot.ID,
		BlobKey:            key,
		BlobURL:            url,
		ContentType:        upload.ContentType,
		FileSize:           upload.Size,
		UploadedAt:         s.clock.Now(),
	}
	replaced, err := s.testRepo.SaveVideoResponse(ctx, response)
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn("failed to remove orphaned video", zap.String("key", key), zap.Error(delErr))
		}
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save video response: %w", err)
	}
	if replaced != "" && replaced != key {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), replaced); delErr != nil {
			s.logger.Warn("failed to remove replaced video", zap.String("key", replaced), zap.Error(delErr))
		}
	}

	s.dispatchVideo(ctx, instance, snapshot, response)
	return response, nil
}

func (s *TestServiceImpl) validateUpload(upload domain.VideoUpload) error {
	if upload.Size <= 0 {
		return domain.ErrInvalidVideo.WithMessage("video file is empty")
	}
	if s.config.MaxVideoSize > 0 && upload.Size > s.config.MaxVideoSize {
		return domain.ErrInvalidVideo.WithMessage(fmt.Sprintf("video exceeds %d bytes", s.config.MaxVideoSize))
	}
	if !strings.HasPrefix(upload.ContentType, "video/") {
		return domain.ErrInvalidVideo.WithMessage("unsupported content type " + upload.ContentType)
	}
	return nil
}

func (s *TestServiceImpl) dispatchVideo(ctx context.Context, instance *domain.TestInstance, snapshot *domain.QuestionSnapshot, response *domain.VideoResponse) {
	if s.aiAgent == nil {
		return
	}
	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.AIDispatchTimeout)
	defer cancel()

	err := s.aiAgent.SubmitVideo(dispatchCtx, domain.VideoScoringRequest{
		ResponseID:   response.ID,
		TestID:       instance.ID,
		TestType:     string(instance.TestType),
		QuestionText: snapshot.Text,
		GradingGuide: snapshot.GradingGuide,
		VideoURL:     response.BlobURL,
	})
	if err != nil {
		s.logger.Warn("failed to dispatch video for scoring",
			zap.String("test_id", instance.ID),
			zap.String("response_id", response.ID),
			zap.Error(err))
	}
}

// ApplyVideoEvaluation implements domain.TestService
func (s *TestServiceImpl) ApplyVideoEvaluation(ctx context.Context, eval domain.VideoEvaluation) error {
	if eval.Score < 0 || eval.Score > 100 {
		return domain.ErrInvalidVideo.WithMessage("score must be between 0 and 100")
	}
	if _, err := s.testRepo.FindVideoResponse(ctx, eval.ResponseID); err != nil {
		return err
	}
	return s.testRepo.UpdateVideoEvaluation(ctx, eval.ResponseID, eval, s.clock.Now())
}

// loadOwned loads a test and rejects access by any other candidate
func (s *TestServiceImpl) loadOwned(ctx context.Context, testID string, candidateID uint) (*domain.TestInstance, error) {
	instance, err := s.testRepo.FindByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if instance.CandidateID != candidateID {
		s.logAudit(ctx, domain.NewAuditEvent(domain.AccessDeniedEvent, s.clock.Now()).
			WithUser(candidateID).
			WithMetadata("test_id", testID).
			WithError(domain.ErrForbidden))
		return nil, domain.ErrForbidden
	}
	return instance, nil
}

func (s *TestServiceImpl) logAudit(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("failed to write audit event", zap.Error(err))
	}
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// QuestionGroupServiceImpl implements domain.QuestionGroupService
type QuestionGroupServiceImpl struct {
	groupRepo    domain.QuestionGroupRepository
	templateRepo domain.QuestionTemplateRepository
	policy       domain.QuestionCountPolicy
	audit        domain.AuditLogger
	clock        clockwork.Clock
	logger       *zap.Logger
}

// NewQuestionGroupService creates a new question group service
func NewQuestionGroupService(
	groupRepo domain.QuestionGroupRepository,
	templateRepo domain.QuestionTemplateRepository,
	policy domain.QuestionCountPolicy,
	audit domain.AuditLogger,
	clock clockwork.Clock,
	logger *zap.Logger,
) domain.QuestionGroupService {
	return &QuestionGroupServiceImpl{
		groupRepo:    groupRepo,
		templateRepo: templateRepo,
		policy:       policy,
		audit:        audit,
		clock:        clock,
		logger:       logger,
	}
}

// CreateGroup implements domain.QuestionGroupService. New groups start inactive.
func (s *QuestionGroupServiceImpl) CreateGroup(ctx context.Context, req domain.CreateGroupRequest) (*domain.TestQuestionGroup, error) {
	required, ok := s.policy.Required(req.TestType)
	if !ok {
		return nil, domain.ErrUnsupportedTestType
	}
	if len(req.Questions) != required {
		return nil, domain.ErrInvalidQuestionCount.WithMessage(
			fmt.Sprintf("%s groups need exactly %d questions, got %d", req.TestType, required, len(req.Questions)))
	}

	seenOrder := make(map[int]struct{}, len(req.Questions))
	seenTemplate := make(map[uint]struct{}, len(req.Questions))
	ids := make([]uint, 0, len(req.Questions))
	for _, q := range req.Questions {
		if _, dup := seenOrder[q.Order]; dup {
			return nil, domain.ErrDuplicateGroupOrder
		}
		seenOrder[q.Order] = struct{}{}
		if q.Order <= 0 {
			return nil, domain.ErrInvalidGroupOrder
		}
		if _, dup := seenTemplate[q.TemplateID]; dup {
			return nil, domain.ErrInvalidQuestionTemplate.WithMessage(
				fmt.Sprintf("template %d appears more than once", q.TemplateID))
		}
		seenTemplate[q.TemplateID] = struct{}{}
		ids = append(ids, q.TemplateID)
	}

	templates, err := s.templateRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load question templates: %w", err)
	}
	for _, id := range ids {
		tpl, ok := templates[id]
		if !ok || tpl.TestType != req.TestType {
			return nil, domain.ErrQuestionTemplateNotFound.WithMessage(
				fmt.Sprintf("template %d not found for test type %s", id, req.TestType))
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("%s group", req.TestType)
	}
	now := s.clock.Now()
	group := &domain.TestQuestionGroup{
		Name:               name,
		TestType:           req.TestType,
		ReadingTextID:      req.ReadingTextID,
		ReadingTextVersion: req.ReadingTextVersion,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, q := range req.Questions {
		group.Questions = append(group.Questions, domain.GroupQuestion{TemplateID: q.TemplateID, Order: q.Order})
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create question group: %w", err)
	}

	s.logger.Info("question group created",
		zap.Uint("group_id", group.ID),
		zap.String("test_type", string(group.TestType)),
		zap.Int("version", group.Version))
	return group, nil
}

// ActivateGroup implements domain.QuestionGroupService
func (s *QuestionGroupServiceImpl) ActivateGroup(ctx context.Context, groupID uint) error {
	if err := s.groupRepo.Activate(ctx, groupID); err != nil {
		return err
	}
	if s.audit != nil {
		event := domain.NewAuditEvent(domain.GroupActivatedEvent, s.clock.Now()).
			WithMetadata("group_id", groupID)
		if err := s.audit.LogEvent(ctx, event); err != nil {
			s.logger.Warn("failed to write audit event", zap.Error(err))
		}
	}
	return nil
}

// DeactivateGroup implements domain.QuestionGroupService
func (s *QuestionGroupServiceImpl) DeactivateGroup(ctx context.Context, groupID uint) error {
	return s.groupRepo.Deactivate(ctx, groupID)
}

// DeleteGroup implements domain.QuestionGroupService
func (s *QuestionGroupServiceImpl) DeleteGroup(ctx context.Context, groupID uint) error {
	return s.groupRepo.Delete(ctx, groupID)
}

// ReorderQuestions implements domain.QuestionGroupService. The orderings must cover
// every question of the group exactly once.
func (s *QuestionGroupServiceImpl) ReorderQuestions(ctx context.Context, groupID uint, orders []domain.QuestionOrdering) error {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}

	current := make(map[uint]struct{}, len(group.Questions))
	for _, q := range group.Questions {
		current[q.ID] = struct{}{}
	}
	if len(orders) != len(current) {
		return domain.ErrInvalidQuestionIDs
	}
	seenID := make(map[uint]struct{}, len(orders))
	seenOrder := make(map[int]struct{}, len(orders))
	for _, o := range orders {
		if _, ok := current[o.QuestionID]; !ok {
			return domain.ErrInvalidQuestionIDs
		}
		if _, dup := seenID[o.QuestionID]; dup {
			return domain.ErrInvalidQuestionIDs
		}
		seenID[o.QuestionID] = struct{}{}
	}
	for _, o := range orders {
		if o.Order <= 0 {
			return domain.ErrInvalidGroupOrder
		}
		if _, dup := seenOrder[o.Order]; dup {
			return domain.ErrDuplicateOrder
		}
		seenOrder[o.Order] = struct{}{}
	}

	return s.groupRepo.UpdateOrders(ctx, groupID, orders)
}

// GetGroup implements domain.QuestionGroupService
func (s *QuestionGroupServiceImpl) GetGroup(ctx context.Context, groupID uint) (*domain.TestQuestionGroup, error) {
	return s.groupRepo.FindByID(ctx, groupID)
}

// ListGroups implements domain.QuestionGroupService. An empty test type lists every group.
func (s *QuestionGroupServiceImpl) ListGroups(ctx context.Context, testType domain.TestType) ([]domain.TestQuestionGroup, error) {
	if testType != "" && !testType.IsValid() {
		return nil, domain.ErrInvalidTestType
	}
	return s.groupRepo.List(ctx, testType)
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
)

// QuestionBankServiceImpl implements domain.QuestionBankService
type QuestionBankServiceImpl struct {
	templateRepo domain.QuestionTemplateRepository
	clock        clockwork.Clock
}

// NewQuestionBankService creates a new question bank service
func NewQuestionBankService(templateRepo domain.QuestionTemplateRepository, clock clockwork.Clock) domain.QuestionBankService {
	return &QuestionBankServiceImpl{templateRepo: templateRepo, clock: clock}
}

// CreateTemplate implements domain.QuestionBankService
func (s *QuestionBankServiceImpl) CreateTemplate(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error) {
	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	tpl.ID = 0
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return tpl, nil
}

// UpdateTemplate implements domain.QuestionBankService. Snapshots taken from the
// template keep their copy.
func (s *QuestionBankServiceImpl) UpdateTemplate(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error) {
	existing, err := s.templateRepo.FindByID(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}
	tpl.CreatedAt = existing.CreatedAt
	tpl.UpdatedAt = s.clock.Now()
	if err := s.templateRepo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return s.templateRepo.FindByID(ctx, tpl.ID)
}

// GetTemplate implements domain.QuestionBankService
func (s *QuestionBankServiceImpl) GetTemplate(ctx context.Context, id uint) (*domain.QuestionTemplate, error) {
	return s.templateRepo.FindByID(ctx, id)
}

// ListTemplates implements domain.QuestionBankService
func (s *QuestionBankServiceImpl) ListTemplates(ctx context.Context, filter domain.TemplateFilter) ([]domain.QuestionTemplate, error) {
	if filter.TestType != "" && !filter.TestType.IsValid() {
		return nil, domain.ErrInvalidTestType
	}
	if !filter.Difficulty.IsValid() {
		return nil, domain.ErrInvalidDifficulty
	}
	return s.templateRepo.List(ctx, filter)
}

func invalidTemplate(format string, args ...interface{}) error {
	return domain.ErrInvalidQuestionTemplate.WithMessage(fmt.Sprintf(format, args...))
}

// validateTemplate checks the template shape and that its answer key fits its options
func validateTemplate(tpl *domain.QuestionTemplate) error {
	if !tpl.TestType.IsValid() {
		return domain.ErrInvalidTestType
	}
	if !tpl.Difficulty.IsValid() {
		return domain.ErrInvalidDifficulty
	}
	if !tpl.ResponseKind.IsValid() {
		return invalidTemplate("unknown response kind %q", tpl.ResponseKind)
	}
	tpl.Text = strings.TrimSpace(tpl.Text)
	if tpl.Text == "" {
		return invalidTemplate("question text is required")
	}
	if tpl.PointValue < 0 {
		return invalidTemplate("point value cannot be negative")
	}

	if tpl.ResponseKind == domain.ResponseKindVideo {
		if len(tpl.Options) > 0 {
			return invalidTemplate("video questions have no options")
		}
		return nil
	}

	if len(tpl.Options) < 2 {
		return invalidTemplate("multiple-choice questions need at least two options")
	}
	options := make(map[string]struct{}, len(tpl.Options))
	for _, o := range tpl.Options {
		if o.ID == "" {
			return invalidTemplate("option ids are required")
		}
		if _, dup := options[o.ID]; dup {
			return invalidTemplate("option %q appears more than once", o.ID)
		}
		options[o.ID] = struct{}{}
	}

	if tpl.Answer == nil || len(tpl.Answer.CorrectOptionIDs) == 0 {
		return invalidTemplate("multiple-choice questions need a correct answer")
	}
	for _, id := range tpl.Answer.CorrectOptionIDs {
		if _, ok := options[id]; !ok {
			return invalidTemplate("correct option %q is not an option", id)
		}
	}
	correct := len(tpl.Answer.CorrectOptionIDs)
	if !tpl.AllowMultiple && correct != 1 {
		return invalidTemplate("single-answer questions need exactly one correct option")
	}
	if tpl.AllowMultiple && tpl.MaxAnswers > 0 && correct > tpl.MaxAnswers {
		return invalidTemplate("more correct options than max answers")
	}
	return nil
}

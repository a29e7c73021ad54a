package repositories

import (
	"context"
	"errors"

	"github.com/kai426/Dignus-sub001/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestionTemplateRepositoryImpl implements domain.QuestionTemplateRepository using GORM
type QuestionTemplateRepositoryImpl struct {
	db *gorm.DB
}

// NewQuestionTemplateRepository creates a new question template repository
func NewQuestionTemplateRepository(db *gorm.DB) domain.QuestionTemplateRepository {
	return &QuestionTemplateRepositoryImpl{db: db}
}

// Create implements domain.QuestionTemplateRepository
func (r *QuestionTemplateRepositoryImpl) Create(ctx context.Context, tpl *domain.QuestionTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := templateToDB(tpl)
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}
		tpl.ID = row.ID
		tpl.CreatedAt = row.CreatedAt
		tpl.UpdatedAt = row.UpdatedAt

		if tpl.Answer == nil {
			return nil
		}
		answer := answerToDB(row.ID, tpl.Answer)
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		tpl.Answer.ID = answer.ID
		tpl.Answer.TemplateID = row.ID
		return nil
	})
}

// Update implements domain.QuestionTemplateRepository. Snapshots already taken are
// separate rows and are never touched here.
func (r *QuestionTemplateRepositoryImpl) Update(ctx context.Context, tpl *domain.QuestionTemplate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := templateToDB(tpl)
		res := tx.Model(&DBQuestionTemplate{}).Where("id = ?", tpl.ID).Updates(map[string]interface{}{
			"test_type":         row.TestType,
			"difficulty":        row.Difficulty,
			"response_kind":     row.ResponseKind,
			"text":              row.Text,
			"options":           row.Options,
			"allow_multiple":    row.AllowMultiple,
			"max_answers":       row.MaxAnswers,
			"point_value":       row.PointValue,
			"estimated_seconds": row.EstimatedSeconds,
			"is_active":         row.IsActive,
			"updated_at":        tpl.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrQuestionTemplateNotFound
		}

		if tpl.Answer == nil {
			return tx.Where("template_id = ?", tpl.ID).Delete(&DBQuestionAnswer{}).Error
		}
		answer := answerToDB(tpl.ID, tpl.Answer)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "template_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"correct_option_ids", "grading_guide"}),
		}).Create(answer).Error
	})
}

// FindByID implements domain.QuestionTemplateRepository
func (r *QuestionTemplateRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.QuestionTemplate, error) {
	var row DBQuestionTemplate
	if err := r.db.WithContext(ctx).Preload("Answer").Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrQuestionTemplateNotFound
		}
		return nil, err
	}
	return templateToDomain(&row), nil
}

// FindByIDs implements domain.QuestionTemplateRepository. Missing ids are simply absent.
func (r *QuestionTemplateRepositoryImpl) FindByIDs(ctx context.Context, ids []uint) (map[uint]*domain.QuestionTemplate, error) {
	out := make(map[uint]*domain.QuestionTemplate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []DBQuestionTemplate
	if err := r.db.WithContext(ctx).Preload("Answer").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = templateToDomain(&rows[i])
	}
	return out, nil
}

// List implements domain.QuestionTemplateRepository
func (r *QuestionTemplateRepositoryImpl) List(ctx context.Context, filter domain.TemplateFilter) ([]domain.QuestionTemplate, error) {
	q := r.db.WithContext(ctx).Preload("Answer")
	if filter.TestType != "" {
		q = q.Where("test_type = ?", string(filter.TestType))
	}
	if filter.Difficulty != "" {
		q = q.Where("difficulty = ?", string(filter.Difficulty))
	}
	var rows []DBQuestionTemplate
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.QuestionTemplate, 0, len(rows))
	for i := range rows {
		out = append(out, *templateToDomain(&rows[i]))
	}
	return out, nil
}

func templateToDB(t *domain.QuestionTemplate) *DBQuestionTemplate {
	return &DBQuestionTemplate{
		ID:               t.ID,
		TestType:         string(t.TestType),
		Difficulty:       string(t.Difficulty),
		ResponseKind:     string(t.ResponseKind),
		Text:             t.Text,
		Options:          t.Options,
		AllowMultiple:    t.AllowMultiple,
		MaxAnswers:       t.MaxAnswers,
		PointValue:       t.PointValue,
		EstimatedSeconds: t.EstimatedSeconds,
		IsActive:         t.IsActive,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func answerToDB(templateID uint, a *domain.QuestionAnswer) *DBQuestionAnswer {
	return &DBQuestionAnswer{
		TemplateID:       templateID,
		CorrectOptionIDs: a.CorrectOptionIDs,
		GradingGuide:     a.GradingGuide,
	}
}

func templateToDomain(row *DBQuestionTemplate) *domain.QuestionTemplate {
	t := &domain.QuestionTemplate{
		ID:               row.ID,
		TestType:         domain.TestType(row.TestType),
		Difficulty:       domain.Difficulty(row.Difficulty),
		ResponseKind:     domain.ResponseKind(row.ResponseKind),
		Text:             row.Text,
		Options:          row.Options,
		AllowMultiple:    row.AllowMultiple,
		MaxAnswers:       row.MaxAnswers,
		PointValue:       row.PointValue,
		EstimatedSeconds: row.EstimatedSeconds,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.Answer != nil {
		t.Answer = &domain.QuestionAnswer{
			ID:               row.Answer.ID,
			TemplateID:       row.Answer.TemplateID,
			CorrectOptionIDs: row.Answer.CorrectOptionIDs,
			GradingGuide:     row.Answer.GradingGuide,
		}
	}
	return t
}

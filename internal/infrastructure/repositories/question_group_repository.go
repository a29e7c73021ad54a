package repositories

import (
	"context"
	"errors"

	"github.com/kai426/Dignus-sub001/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestionGroupRepositoryImpl implements domain.QuestionGroupRepository using GORM
type QuestionGroupRepositoryImpl struct {
	db *gorm.DB
}

// NewQuestionGroupRepository creates a new question group repository
func NewQuestionGroupRepository(db *gorm.DB) domain.QuestionGroupRepository {
	return &QuestionGroupRepositoryImpl{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create implements domain.QuestionGroupRepository. The version is one above the
// highest existing version of the same test type.
func (r *QuestionGroupRepositoryImpl) Create(ctx context.Context, group *domain.TestQuestionGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		if err := tx.Model(&DBQuestionGroup{}).
			Where("test_type = ?", string(group.TestType)).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return err
		}

		row := &DBQuestionGroup{
			Name:               group.Name,
			TestType:           string(group.TestType),
			Version:            latest + 1,
			IsActive:           false,
			ReadingTextID:      group.ReadingTextID,
			ReadingTextVersion: group.ReadingTextVersion,
			CreatedAt:          group.CreatedAt,
			UpdatedAt:          group.UpdatedAt,
		}
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}

		items := make([]DBGroupQuestion, 0, len(group.Questions))
		for _, q := range group.Questions {
			items = append(items, DBGroupQuestion{GroupID: row.ID, TemplateID: q.TemplateID, Order: q.Order})
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		group.ID = row.ID
		group.Version = row.Version
		group.IsActive = row.IsActive
		group.Questions = group.Questions[:0]
		for _, it := range items {
			group.Questions = append(group.Questions, groupQuestionToDomain(&it))
		}
		return nil
	})
}

// FindByID implements domain.QuestionGroupRepository
func (r *QuestionGroupRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.TestQuestionGroup, error) {
	var row DBQuestionGroup
	err := r.db.WithContext(ctx).Preload("Questions", orderedItems).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return groupToDomain(&row), nil
}

// FindActive implements domain.QuestionGroupRepository
func (r *QuestionGroupRepositoryImpl) FindActive(ctx context.Context, testType domain.TestType) (*domain.TestQuestionGroup, error) {
	var row DBQuestionGroup
	err := r.db.WithContext(ctx).Preload("Questions", orderedItems).
		Where("test_type = ? AND is_active = ?", string(testType), true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return groupToDomain(&row), nil
}

// List implements domain.QuestionGroupRepository. An empty test type lists every group.
func (r *QuestionGroupRepositoryImpl) List(ctx context.Context, testType domain.TestType) ([]domain.TestQuestionGroup, error) {
	q := r.db.WithContext(ctx).Preload("Questions", orderedItems)
	if testType != "" {
		q = q.Where("test_type = ?", string(testType))
	}
	var rows []DBQuestionGroup
	if err := q.Order("test_type ASC, version DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.TestQuestionGroup, 0, len(rows))
	for i := range rows {
		out = append(out, *groupToDomain(&rows[i]))
	}
	return out, nil
}

// lockType row-locks every group of the group's test type, serializing activation changes
func lockType(tx *gorm.DB, id uint) (*DBQuestionGroup, error) {
	var target DBQuestionGroup
	if err := tx.Where("id = ?", id).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	var siblings []DBQuestionGroup
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "is_active").
		Where("test_type = ?", target.TestType).
		Find(&siblings).Error; err != nil {
		return nil, err
	}
	for _, s := range siblings {
		if s.ID == target.ID {
			target.IsActive = s.IsActive
		}
	}
	return &target, nil
}

// Activate implements domain.QuestionGroupRepository
func (r *QuestionGroupRepositoryImpl) Activate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := lockType(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&DBQuestionGroup{}).
			Where("test_type = ? AND id <> ? AND is_active = ?", target.TestType, id, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&DBQuestionGroup{}).Where("id = ?", id).Update("is_active", true).Error
	})
}

// Deactivate implements domain.QuestionGroupRepository. Inactive groups are left untouched.
func (r *QuestionGroupRepositoryImpl) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := lockType(tx, id)
		if err != nil {
			return err
		}
		if !target.IsActive {
			return nil
		}
		var active int64
		if err := tx.Model(&DBQuestionGroup{}).
			Where("test_type = ? AND is_active = ?", target.TestType, true).
			Count(&active).Error; err != nil {
			return err
		}
		if active <= 1 {
			return domain.ErrCannotDeactivateOnlyGroup
		}
		return tx.Model(&DBQuestionGroup{}).Where("id = ?", id).Update("is_active", false).Error
	})
}

// Delete implements domain.QuestionGroupRepository
func (r *QuestionGroupRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := lockType(tx, id)
		if err != nil {
			return err
		}
		if target.IsActive {
			return domain.ErrCannotDeactivateOnlyGroup.WithMessage("deactivate the group by activating another one before deleting it")
		}
		var used int64
		if err := tx.Model(&DBTestInstance{}).Where("question_group_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return domain.ErrGroupInUse
		}
		if err := tx.Where("group_id = ?", id).Delete(&DBGroupQuestion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&DBQuestionGroup{}).Error
	})
}

// UpdateOrders implements domain.QuestionGroupRepository
func (r *QuestionGroupRepositoryImpl) UpdateOrders(ctx context.Context, groupID uint, orders []domain.QuestionOrdering) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group DBQuestionGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", groupID).First(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrGroupNotFound
			}
			return err
		}
		for _, o := range orders {
			res := tx.Model(&DBGroupQuestion{}).
				Where("id = ? AND group_id = ?", o.QuestionID, groupID).
				Update("position", o.Order)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrInvalidQuestionIDs
			}
		}
		return nil
	})
}

func groupToDomain(row *DBQuestionGroup) *domain.TestQuestionGroup {
	g := &domain.TestQuestionGroup{
		ID:                 row.ID,
		Name:               row.Name,
		TestType:           domain.TestType(row.TestType),
		Version:            row.Version,
		IsActive:           row.IsActive,
		ReadingTextID:      row.ReadingTextID,
		ReadingTextVersion: row.ReadingTextVersion,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	for i := range row.Questions {
		g.Questions = append(g.Questions, groupQuestionToDomain(&row.Questions[i]))
	}
	return g
}

func groupQuestionToDomain(row *DBGroupQuestion) domain.GroupQuestion {
	return domain.GroupQuestion{
		ID:         row.ID,
		GroupID:    row.GroupID,
		TemplateID: row.TemplateID,
		Order:      row.Order,
	}
}

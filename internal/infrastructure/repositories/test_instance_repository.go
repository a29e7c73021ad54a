package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TestInstanceRepositoryImpl implements domain.TestInstanceRepository using GORM
type TestInstanceRepositoryImpl struct {
	db *gorm.DB
}

// NewTestInstanceRepository creates a new test instance repository
func NewTestInstanceRepository(db *gorm.DB) domain.TestInstanceRepository {
	return &TestInstanceRepositoryImpl{db: db}
}

func activeStatuses() []string {
	out := make([]string, 0, len(domain.ActiveTestStatuses))
	for _, s := range domain.ActiveTestStatuses {
		out = append(out, string(s))
	}
	return out
}

// CreateWithSnapshots implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) CreateWithSnapshots(ctx context.Context, instance *domain.TestInstance) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DBTestInstance{}).
			Where("candidate_id = ? AND test_type = ? AND status IN ?", instance.CandidateID, string(instance.TestType), activeStatuses()).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrActiveTestExists
		}

		row := testInstanceToDB(instance)
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}

		if len(instance.Questions) > 0 {
			snapshots := make([]DBQuestionSnapshot, 0, len(instance.Questions))
			for i := range instance.Questions {
				snapshots = append(snapshots, snapshotToDB(&instance.Questions[i]))
			}
			if err := tx.Create(&snapshots).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrActiveTestExists
	}
	return err
}

// FindByID implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.TestInstance, error) {
	var row DBTestInstance
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("QuestionResponses").
		Preload("VideoResponses").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTestNotFound
		}
		return nil, err
	}
	return testInstanceToDomain(&row), nil
}

// HasActiveTest implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) HasActiveTest(ctx context.Context, candidateID uint, testType domain.TestType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DBTestInstance{}).
		Where("candidate_id = ? AND test_type = ? AND status IN ?", candidateID, string(testType), activeStatuses()).
		Count(&count).Error
	return count > 0, err
}

// ListByCandidate implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) ListByCandidate(ctx context.Context, candidateID uint) ([]domain.TestInstance, error) {
	var rows []DBTestInstance
	if err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.TestInstance, 0, len(rows))
	for i := range rows {
		out = append(out, *testInstanceToDomain(&rows[i]))
	}
	return out, nil
}

// MarkStarted implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) MarkStarted(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBTestInstance{}).
			Where("id = ? AND status = ?", id, string(domain.TestStatusNotStarted)).
			Updates(map[string]interface{}{
				"status":     string(domain.TestStatusInProgress),
				"started_at": at,
				"updated_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrWrongState(tx, id)
		}
		return nil
	})
}

// Complete implements domain.TestInstanceRepository. Stored answers are replaced by the
// graded set in the same transaction that closes the instance.
func (r *TestInstanceRepositoryImpl) Complete(ctx context.Context, instance *domain.TestInstance, responses []domain.QuestionResponse) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBTestInstance{}).
			Where("id = ? AND status = ?", instance.ID, string(domain.TestStatusInProgress)).
			Updates(map[string]interface{}{
				"status":             string(domain.TestStatusCompleted),
				"raw_score":          instance.RawScore,
				"score":              instance.Score,
				"max_possible_score": instance.MaxPossibleScore,
				"duration_seconds":   instance.DurationSeconds,
				"completed_at":       instance.CompletedAt,
				"updated_at":         instance.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrWrongState(tx, instance.ID)
		}

		if err := tx.Where("test_instance_id = ?", instance.ID).Delete(&DBQuestionResponse{}).Error; err != nil {
			return err
		}
		if len(responses) == 0 {
			return nil
		}
		rows := make([]DBQuestionResponse, 0, len(responses))
		for i := range responses {
			rows = append(rows, questionResponseToDB(&responses[i]))
		}
		return tx.Create(&rows).Error
	})
}

// SaveResponse implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) SaveResponse(ctx context.Context, response *domain.QuestionResponse) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockInProgress(tx, response.TestInstanceID); err != nil {
			return err
		}
		row := questionResponseToDB(response)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "test_instance_id"}, {Name: "question_snapshot_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"selected_option_ids", "response_time_seconds", "answered_at"}),
		}).Create(&row).Error
	})
}

// SaveVideoResponse implements domain.TestInstanceRepository. A re-upload for the same
// question replaces the row under the new id, so evaluations addressed to the old id miss.
func (r *TestInstanceRepositoryImpl) SaveVideoResponse(ctx context.Context, response *domain.VideoResponse) (string, error) {
	var replaced string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockInProgress(tx, response.TestInstanceID); err != nil {
			return err
		}

		var previous []DBVideoResponse
		if err := tx.Where("test_instance_id = ? AND question_snapshot_id = ?", response.TestInstanceID, response.QuestionSnapshotID).
			Find(&previous).Error; err != nil {
			return err
		}
		for _, old := range previous {
			if err := tx.Delete(&DBVideoResponse{}, "id = ?", old.ID).Error; err != nil {
				return err
			}
			replaced = old.BlobKey
		}

		row := videoResponseToDB(response)
		return tx.Create(&row).Error
	})
	if err != nil {
		return "", err
	}
	return replaced, nil
}

// FindVideoResponse implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) FindVideoResponse(ctx context.Context, id string) (*domain.VideoResponse, error) {
	var row DBVideoResponse
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrResponseNotFound
		}
		return nil, err
	}
	v := videoResponseToDomain(&row)
	return &v, nil
}

// UpdateVideoEvaluation implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) UpdateVideoEvaluation(ctx context.Context, id string, eval domain.VideoEvaluation, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBVideoResponse{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_score":     eval.Score,
			"ai_feedback":  eval.Feedback,
			"ai_verdict":   eval.Verdict,
			"evaluated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrResponseNotFound
	}
	return nil
}

// CountByGroup implements domain.TestInstanceRepository
func (r *TestInstanceRepositoryImpl) CountByGroup(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DBTestInstance{}).
		Where("question_group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

// lockInProgress row-locks the instance and checks that it accepts answers
func lockInProgress(tx *gorm.DB, id string) error {
	var row DBTestInstance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "status").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrTestNotFound
		}
		return err
	}
	if row.Status != string(domain.TestStatusInProgress) {
		return domain.ErrInvalidStateTransition
	}
	return nil
}

func missingOrWrongState(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&DBTestInstance{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrTestNotFound
	}
	return domain.ErrInvalidStateTransition
}

func testInstanceToDB(t *domain.TestInstance) *DBTestInstance {
	return &DBTestInstance{
		ID:                   t.ID,
		CandidateID:          t.CandidateID,
		TestType:             string(t.TestType),
		Status:               string(t.Status),
		QuestionGroupID:      t.QuestionGroupID,
		Difficulty:           string(t.Difficulty),
		ReadingTextID:        t.ReadingTextID,
		ReadingTextVersion:   t.ReadingTextVersion,
		RawScore:             t.RawScore,
		Score:                t.Score,
		MaxPossibleScore:     t.MaxPossibleScore,
		DurationLimitSeconds: t.DurationLimitSeconds,
		DurationSeconds:      t.DurationSeconds,
		StartedAt:            t.StartedAt,
		CompletedAt:          t.CompletedAt,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

func testInstanceToDomain(row *DBTestInstance) *domain.TestInstance {
	t := &domain.TestInstance{
		ID:                   row.ID,
		CandidateID:          row.CandidateID,
		TestType:             domain.TestType(row.TestType),
		Status:               domain.TestStatus(row.Status),
		QuestionGroupID:      row.QuestionGroupID,
		Difficulty:           domain.Difficulty(row.Difficulty),
		ReadingTextID:        row.ReadingTextID,
		ReadingTextVersion:   row.ReadingTextVersion,
		RawScore:             row.RawScore,
		Score:                row.Score,
		MaxPossibleScore:     row.MaxPossibleScore,
		DurationLimitSeconds: row.DurationLimitSeconds,
		DurationSeconds:      row.DurationSeconds,
		StartedAt:            row.StartedAt,
		CompletedAt:          row.CompletedAt,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	for i := range row.Questions {
		t.Questions = append(t.Questions, snapshotToDomain(&row.Questions[i]))
	}
	for i := range row.QuestionResponses {
		t.QuestionResponses = append(t.QuestionResponses, questionResponseToDomain(&row.QuestionResponses[i]))
	}
	for i := range row.VideoResponses {
		t.VideoResponses = append(t.VideoResponses, videoResponseToDomain(&row.VideoResponses[i]))
	}
	return t
}

func snapshotToDB(s *domain.QuestionSnapshot) DBQuestionSnapshot {
	return DBQuestionSnapshot{
		ID:                 s.ID,
		TestInstanceID:     s.TestInstanceID,
		OriginalTemplateID: s.OriginalTemplateID,
		Order:              s.Order,
		ResponseKind:       string(s.ResponseKind),
		Text:               s.Text,
		Options:            s.Options,
		AllowMultiple:      s.AllowMultiple,
		MaxAnswers:         s.MaxAnswers,
		PointValue:         s.PointValue,
		EstimatedSeconds:   s.EstimatedSeconds,
		CorrectOptionIDs:   s.CorrectOptionIDs,
		GradingGuide:       s.GradingGuide,
		CreatedAt:          s.CreatedAt,
	}
}

func snapshotToDomain(row *DBQuestionSnapshot) domain.QuestionSnapshot {
	return domain.QuestionSnapshot{
		ID:                 row.ID,
		TestInstanceID:     row.TestInstanceID,
		OriginalTemplateID: row.OriginalTemplateID,
		Order:              row.Order,
		ResponseKind:       domain.ResponseKind(row.ResponseKind),
		Text:               row.Text,
		Options:            row.Options,
		AllowMultiple:      row.AllowMultiple,
		MaxAnswers:         row.MaxAnswers,
		PointValue:         row.PointValue,
		EstimatedSeconds:   row.EstimatedSeconds,
		CorrectOptionIDs:   row.CorrectOptionIDs,
		GradingGuide:       row.GradingGuide,
		CreatedAt:          row.CreatedAt,
	}
}

func questionResponseToDB(q *domain.QuestionResponse) DBQuestionResponse {
	return DBQuestionResponse{
		ID:                  q.ID,
		TestInstanceID:      q.TestInstanceID,
		QuestionSnapshotID:  q.QuestionSnapshotID,
		SelectedOptionIDs:   q.SelectedOptionIDs,
		ResponseTimeSeconds: q.ResponseTimeSeconds,
		IsCorrect:           q.IsCorrect,
		PointsEarned:        q.PointsEarned,
		AnsweredAt:          q.AnsweredAt,
	}
}

func questionResponseToDomain(row *DBQuestionResponse) domain.QuestionResponse {
	return domain.QuestionResponse{
		ID:                  row.ID,
		TestInstanceID:      row.TestInstanceID,
		QuestionSnapshotID:  row.QuestionSnapshotID,
		SelectedOptionIDs:   row.SelectedOptionIDs,
		ResponseTimeSeconds: row.ResponseTimeSeconds,
		IsCorrect:           row.IsCorrect,
		PointsEarned:        row.PointsEarned,
		AnsweredAt:          row.AnsweredAt,
	}
}

func videoResponseToDB(v *domain.VideoResponse) DBVideoResponse {
	return DBVideoResponse{
		ID:                 v.ID,
		TestInstanceID:     v.TestInstanceID,
		QuestionSnapshotID: v.QuestionSnapshotID,
		BlobKey:            v.BlobKey,
		BlobURL:            v.BlobURL,
		ContentType:        v.ContentType,
		FileSize:           v.FileSize,
		UploadedAt:         v.UploadedAt,
		AIScore:            v.AIScore,
		AIFeedback:         v.AIFeedback,
		AIVerdict:          v.AIVerdict,
		EvaluatedAt:        v.EvaluatedAt,
	}
}

func videoResponseToDomain(row *DBVideoResponse) domain.VideoResponse {
	return domain.VideoResponse{
		ID:                 row.ID,
		TestInstanceID:     row.TestInstanceID,
		QuestionSnapshotID: row.QuestionSnapshotID,
		BlobKey:            row.BlobKey,
		BlobURL:            row.BlobURL,
		ContentType:        row.ContentType,
		FileSize:           row.FileSize,
		UploadedAt:         row.UploadedAt,
		AIScore:            row.AIScore,
		AIFeedback:         row.AIFeedback,
		AIVerdict:          row.AIVerdict,
		EvaluatedAt:        row.EvaluatedAt,
	}
}

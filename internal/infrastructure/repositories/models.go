package repositories

import (
	"fmt"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DBCandidate represents the database model for Candidate
type DBCandidate struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:255"`
	Email        string `gorm:"index;size:255"`
	CPF          string `gorm:"uniqueIndex;size:11"`
	Phone        string `gorm:"size:32"`
	LGPDAccepted bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (DBCandidate) TableName() string { return "candidates" }

// DBAuthToken represents the database model for CandidateAuthToken
type DBAuthToken struct {
	ID             uint      `gorm:"primaryKey"`
	CPF            string    `gorm:"index;size:11;not null"`
	Email          string    `gorm:"size:255"`
	Code           string    `gorm:"size:12;not null"`
	CreatedAt      time.Time `gorm:"index"`
	ExpiresAt      time.Time `gorm:"index"`
	IsConsumed     bool      `gorm:"index"`
	ConsumedAt     *time.Time
	IsInvalidated  bool `gorm:"index"`
	FailedAttempts int  `gorm:"not null;default:0"`
	LockedUntil    *time.Time
	IPAddress      string `gorm:"size:64"`
	UserAgent      string `gorm:"size:512"`
}

// TableName returns the table name for GORM
func (DBAuthToken) TableName() string { return "candidate_auth_tokens" }

// DBAdmin represents the database model for Admin
type DBAdmin struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:255"`
	Email        string `gorm:"uniqueIndex;size:255"`
	PasswordHash string `gorm:"column:password"`
	Role         string `gorm:"index;size:64"`
	IsActive     bool   `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (DBAdmin) TableName() string { return "admins" }

// DBQuestionTemplate represents the database model for QuestionTemplate
type DBQuestionTemplate struct {
	ID               uint                                     `gorm:"primaryKey"`
	TestType         string                                   `gorm:"index;size:32;not null"`
	Difficulty       string                                   `gorm:"index;size:16"`
	ResponseKind     string                                   `gorm:"size:32;not null"`
	Text             string                                   `gorm:"type:text;not null"`
	Options          datatypes.JSONSlice[domain.QuestionOption] `gorm:"type:json"`
	AllowMultiple    bool
	MaxAnswers       int
	PointValue       float64
	EstimatedSeconds int
	IsActive         bool              `gorm:"index"`
	Answer           *DBQuestionAnswer `gorm:"foreignKey:TemplateID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (DBQuestionTemplate) TableName() string { return "question_templates" }

// DBQuestionAnswer represents the database model for QuestionAnswer
type DBQuestionAnswer struct {
	ID               uint                       `gorm:"primaryKey"`
	TemplateID       uint                       `gorm:"uniqueIndex;not null"`
	CorrectOptionIDs datatypes.JSONSlice[string] `gorm:"type:json"`
	GradingGuide     string                     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (DBQuestionAnswer) TableName() string { return "question_answers" }

// DBQuestionGroup represents the database model for TestQuestionGroup
type DBQuestionGroup struct {
	ID                 uint   `gorm:"primaryKey"`
	Name               string `gorm:"size:255;not null"`
	TestType           string `gorm:"index;size:32;not null"`
	Version            int    `gorm:"not null"`
	IsActive           bool   `gorm:"index"`
	ReadingTextID      *uint
	ReadingTextVersion *int
	Questions          []DBGroupQuestion `gorm:"foreignKey:GroupID"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName returns the table name for GORM
func (DBQuestionGroup) TableName() string { return "test_question_groups" }

// DBGroupQuestion represents one ordered entry of a question group
type DBGroupQuestion struct {
	ID         uint `gorm:"primaryKey"`
	GroupID    uint `gorm:"index;not null"`
	TemplateID uint `gorm:"not null"`
	Order      int  `gorm:"column:position;not null"`
}

// TableName returns the table name for GORM
func (DBGroupQuestion) TableName() string { return "test_question_group_items" }

// DBTestInstance represents the database model for TestInstance
type DBTestInstance struct {
	ID                   string `gorm:"primaryKey;size:36"`
	CandidateID          uint   `gorm:"index;not null"`
	TestType             string `gorm:"index;size:32;not null"`
	Status               string `gorm:"index;size:16;not null"`
	QuestionGroupID      uint   `gorm:"index"`
	Difficulty           string `gorm:"size:16"`
	ReadingTextID        *uint
	ReadingTextVersion   *int
	RawScore             *float64
	Score                *float64
	MaxPossibleScore     *float64
	DurationLimitSeconds int
	DurationSeconds      *int
	StartedAt            *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Questions         []DBQuestionSnapshot `gorm:"foreignKey:TestInstanceID"`
	QuestionResponses []DBQuestionResponse `gorm:"foreignKey:TestInstanceID"`
	VideoResponses    []DBVideoResponse    `gorm:"foreignKey:TestInstanceID"`
}

// TableName returns the table name for GORM
func (DBTestInstance) TableName() string { return "test_instances" }

// DBQuestionSnapshot represents the frozen copy of a template inside a test instance
type DBQuestionSnapshot struct {
	ID                 string                                   `gorm:"primaryKey;size:36"`
	TestInstanceID     string                                   `gorm:"size:36;not null;uniqueIndex:idx_snapshot_template"`
	OriginalTemplateID uint                                     `gorm:"not null;uniqueIndex:idx_snapshot_template"`
	Order              int                                      `gorm:"column:position;not null"`
	ResponseKind       string                                   `gorm:"size:32;not null"`
	Text               string                                   `gorm:"type:text;not null"`
	Options            datatypes.JSONSlice[domain.QuestionOption] `gorm:"type:json"`
	AllowMultiple      bool
	MaxAnswers         int
	PointValue         float64
	EstimatedSeconds   int
	CorrectOptionIDs   datatypes.JSONSlice[string] `gorm:"type:json"`
	GradingGuide       string                      `gorm:"type:text"`
	CreatedAt          time.Time
}

// TableName returns the table name for GORM
func (DBQuestionSnapshot) TableName() string { return "question_snapshots" }

// DBQuestionResponse represents a multiple-choice answer
type DBQuestionResponse struct {
	ID                  string                      `gorm:"primaryKey;size:36"`
	TestInstanceID      string                      `gorm:"size:36;not null;uniqueIndex:idx_response_snapshot"`
	QuestionSnapshotID  string                      `gorm:"size:36;not null;uniqueIndex:idx_response_snapshot"`
	SelectedOptionIDs   datatypes.JSONSlice[string] `gorm:"type:json"`
	ResponseTimeSeconds int
	IsCorrect           *bool
	PointsEarned        *float64
	AnsweredAt          time.Time
}

// TableName returns the table name for GORM
func (DBQuestionResponse) TableName() string { return "question_responses" }

// DBVideoResponse represents an uploaded video answer
type DBVideoResponse struct {
	ID                 string `gorm:"primaryKey;size:36"`
	TestInstanceID     string `gorm:"size:36;not null;uniqueIndex:idx_video_snapshot"`
	QuestionSnapshotID string `gorm:"size:36;not null;uniqueIndex:idx_video_snapshot"`
	BlobKey            string `gorm:"size:512;not null"`
	BlobURL            string `gorm:"size:1024"`
	ContentType        string `gorm:"size:128"`
	FileSize           int64
	UploadedAt         time.Time
	AIScore            *float64
	AIFeedback         string `gorm:"type:text"`
	AIVerdict          string `gorm:"size:64"`
	EvaluatedAt        *time.Time
}

// TableName returns the table name for GORM
func (DBVideoResponse) TableName() string { return "video_responses" }

// partialIndexes back the single-active invariants at the database level
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_test_per_type
		ON test_instances (candidate_id, test_type)
		WHERE status IN ('not_started', 'in_progress')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_group_per_type
		ON test_question_groups (test_type)
		WHERE is_active = true`,
}

// Migrate creates or updates every table owned by this package
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&DBCandidate{},
		&DBAuthToken{},
		&DBAdmin{},
		&DBQuestionTemplate{},
		&DBQuestionAnswer{},
		&DBQuestionGroup{},
		&DBGroupQuestion{},
		&DBTestInstance{},
		&DBQuestionSnapshot{},
		&DBQuestionResponse{},
		&DBVideoResponse{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create partial index: %w", err)
		}
	}
	return nil
}

// Package testutil provides in-memory backing stores and fixtures for service and end-to-end tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BaseTime is the instant fake clocks start at
var BaseTime = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// ValidCPF is a checksum-valid CPF used across tests
const ValidCPF = "52998224725"

// NewTestDB creates a migrated in-memory SQLite database
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repositories.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// NewTestRedis starts a miniredis server and a client connected to it
func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// CreateCandidate stores a candidate with the given CPF and email
func CreateCandidate(t *testing.T, db *gorm.DB, cpf, email string, lgpdAccepted bool) *domain.Candidate {
	t.Helper()
	c := &domain.Candidate{
		Name:         "Maria Silva",
		Email:        email,
		CPF:          cpf,
		Phone:        "+5511999990000",
		LGPDAccepted: lgpdAccepted,
	}
	if err := repositories.NewCandidateRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("failed to create candidate: %v", err)
	}
	return c
}

// ChoiceTemplate builds a single-answer multiple-choice template whose correct option is "b"
func ChoiceTemplate(testType domain.TestType, text string, points float64) *domain.QuestionTemplate {
	return &domain.QuestionTemplate{
		TestType:     testType,
		Difficulty:   domain.DifficultyMedium,
		ResponseKind: domain.ResponseKindMultipleChoice,
		Text:         text,
		Options: []domain.QuestionOption{
			{ID: "a", Text: "Alternativa A"},
			{ID: "b", Text: "Alternativa B"},
			{ID: "c", Text: "Alternativa C"},
		},
		MaxAnswers:       1,
		PointValue:       points,
		EstimatedSeconds: 60,
		IsActive:         true,
		Answer:           &domain.QuestionAnswer{CorrectOptionIDs: []string{"b"}},
	}
}

// VideoTemplate builds a video question template
func VideoTemplate(testType domain.TestType, text string) *domain.QuestionTemplate {
	return &domain.QuestionTemplate{
		TestType:         testType,
		ResponseKind:     domain.ResponseKindVideo,
		Text:             text,
		PointValue:       10,
		EstimatedSeconds: 120,
		IsActive:         true,
		Answer:           &domain.QuestionAnswer{GradingGuide: "clarity and coherence"},
	}
}

// SeedActiveGroup stores the templates and an active group holding them in order
func SeedActiveGroup(t *testing.T, db *gorm.DB, testType domain.TestType, templates ...*domain.QuestionTemplate) (*domain.TestQuestionGroup, []*domain.QuestionTemplate) {
	t.Helper()
	ctx := context.Background()
	tplRepo := repositories.NewQuestionTemplateRepository(db)
	groupRepo := repositories.NewQuestionGroupRepository(db)

	group := &domain.TestQuestionGroup{
		Name:     fmt.Sprintf("%s group", testType),
		TestType: testType,
		Version:  1,
	}
	for i, tpl := range templates {
		if err := tplRepo.Create(ctx, tpl); err != nil {
			t.Fatalf("failed to create template: %v", err)
		}
		group.Questions = append(group.Questions, domain.GroupQuestion{TemplateID: tpl.ID, Order: i + 1})
	}
	if err := groupRepo.Create(ctx, group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	if err := groupRepo.Activate(ctx, group.ID); err != nil {
		t.Fatalf("failed to activate group: %v", err)
	}
	group.IsActive = true
	return group, templates
}

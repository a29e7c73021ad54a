package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/repositories"
	"github.com/kai426/Dignus-sub001/internal/testutil"
)

func TestQuestionBankServiceImpl_CreateTemplate(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(tpl *domain.QuestionTemplate)
		expectedError error
	}{
		{name: "valid single answer", modify: func(tpl *domain.QuestionTemplate) {}},
		{
			name: "valid multi select",
			modify: func(tpl *domain.QuestionTemplate) {
				tpl.AllowMultiple = true
				tpl.MaxAnswers = 2
				tpl.Answer.CorrectOptionIDs = []string{"a", "c"}
			},
		},
		{
			name:          "unknown test type",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.TestType = "chemistry" },
			expectedError: domain.ErrInvalidTestType,
		},
		{
			name:          "unknown difficulty",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.Difficulty = "extreme" },
			expectedError: domain.ErrInvalidDifficulty,
		},
		{
			name:          "blank text",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.Text = "   " },
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
		{
			name:          "single option",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.Options = tpl.Options[:1] },
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
		{
			name: "duplicate option ids",
			modify: func(tpl *domain.QuestionTemplate) {
				tpl.Options = []domain.QuestionOption{{ID: "a", Text: "1"}, {ID: "a", Text: "2"}}
				tpl.Answer.CorrectOptionIDs = []string{"a"}
			},
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
		{
			name:          "missing answer key",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.Answer = nil },
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
		{
			name:          "answer outside the options",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.Answer.CorrectOptionIDs = []string{"z"} },
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
		{
			name:          "two answers on a single-answer question",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.Answer.CorrectOptionIDs = []string{"a", "b"} },
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
		{
			name:          "negative points",
			modify:        func(tpl *domain.QuestionTemplate) { tpl.PointValue = -1 },
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			svc := NewQuestionBankService(repositories.NewQuestionTemplateRepository(db), clockwork.NewFakeClockAt(testutil.BaseTime))

			tpl := testutil.ChoiceTemplate(domain.TestTypeMath, "1 + 1 = ?", 1)
			tt.modify(tpl)

			created, err := svc.CreateTemplate(context.Background(), tpl)
			if !errors.Is(err, tt.expectedError) {
				t.Fatalf("expected error %v, got %v", tt.expectedError, err)
			}
			if tt.expectedError != nil {
				return
			}
			if created.ID == 0 || !created.CreatedAt.Equal(testutil.BaseTime) {
				t.Errorf("unexpected template %+v", created)
			}
			stored, err := svc.GetTemplate(context.Background(), created.ID)
			if err != nil {
				t.Fatalf("failed to load template: %v", err)
			}
			if stored.Answer == nil || len(stored.Answer.CorrectOptionIDs) != len(tpl.Answer.CorrectOptionIDs) {
				t.Errorf("expected the answer key to be stored, got %+v", stored.Answer)
			}
		})
	}
}

func TestQuestionBankServiceImpl_VideoTemplate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewQuestionBankService(repositories.NewQuestionTemplateRepository(db), clockwork.NewFakeClockAt(testutil.BaseTime))
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, testutil.VideoTemplate(domain.TestTypeInterview, "Conte um desafio")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withOptions := testutil.VideoTemplate(domain.TestTypeInterview, "Conte um desafio")
	withOptions.Options = []domain.QuestionOption{{ID: "a", Text: "x"}}
	if _, err := svc.CreateTemplate(ctx, withOptions); !errors.Is(err, domain.ErrInvalidQuestionTemplate) {
		t.Errorf("expected ErrInvalidQuestionTemplate, got %v", err)
	}
}

func TestQuestionBankServiceImpl_UpdateAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	clock := clockwork.NewFakeClockAt(testutil.BaseTime)
	svc := NewQuestionBankService(repositories.NewQuestionTemplateRepository(db), clock)
	ctx := context.Background()

	created, err := svc.CreateTemplate(ctx, testutil.ChoiceTemplate(domain.TestTypeMath, "1 + 1 = ?", 1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateTemplate(ctx, testutil.ChoiceTemplate(domain.TestTypePortuguese, "Plural de pão", 1)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	clock.Advance(time.Hour)
	update := *created
	update.Text = "1 + 2 = ?"
	update.Answer = &domain.QuestionAnswer{CorrectOptionIDs: []string{"c"}}
	updated, err := svc.UpdateTemplate(ctx, &update)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Text != "1 + 2 = ?" || updated.Answer.CorrectOptionIDs[0] != "c" {
		t.Errorf("unexpected template %+v", updated)
	}
	if !updated.UpdatedAt.Equal(testutil.BaseTime.Add(time.Hour)) {
		t.Errorf("expected updated_at to move, got %v", updated.UpdatedAt)
	}

	missing := *created
	missing.ID = 9999
	if _, err := svc.UpdateTemplate(ctx, &missing); !errors.Is(err, domain.ErrQuestionTemplateNotFound) {
		t.Errorf("expected ErrQuestionTemplateNotFound, got %v", err)
	}

	math, err := svc.ListTemplates(ctx, domain.TemplateFilter{TestType: domain.TestTypeMath})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(math) != 1 {
		t.Errorf("expected 1 math template, got %d", len(math))
	}
	all, err := svc.ListTemplates(ctx, domain.TemplateFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 templates, got %d", len(all))
	}
	if _, err := svc.ListTemplates(ctx, domain.TemplateFilter{Difficulty: "extreme"}); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Errorf("expected ErrInvalidDifficulty, got %v", err)
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/repositories"
	"github.com/kai426/Dignus-sub001/internal/mocks"
	"github.com/kai426/Dignus-sub001/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type groupHarness struct {
	svc       domain.QuestionGroupService
	db        *gorm.DB
	groupRepo domain.QuestionGroupRepository
	tplRepo   domain.QuestionTemplateRepository
	audit     *mocks.MockAuditLogger
}

func newGroupHarness(t *testing.T) *groupHarness {
	t.Helper()
	db := testutil.NewTestDB(t)
	h := &groupHarness{
		db:        db,
		groupRepo: repositories.NewQuestionGroupRepository(db),
		tplRepo:   repositories.NewQuestionTemplateRepository(db),
		audit:     mocks.NewMockAuditLogger(),
	}
	h.svc = NewQuestionGroupService(
		h.groupRepo,
		h.tplRepo,
		domain.NewQuestionCountPolicy(domain.DefaultQuestionCounts()),
		h.audit,
		clockwork.NewFakeClockAt(testutil.BaseTime),
		zap.NewNop(),
	)
	return h
}

// templates stores n choice templates of testType and returns their ids
func (h *groupHarness) templates(t *testing.T, testType domain.TestType, n int) []uint {
	t.Helper()
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		tpl := testutil.ChoiceTemplate(testType, "Questão", 1)
		if err := h.tplRepo.Create(context.Background(), tpl); err != nil {
			t.Fatalf("failed to create template: %v", err)
		}
		ids = append(ids, tpl.ID)
	}
	return ids
}

func inputs(ids []uint, orders ...int) []domain.GroupQuestionInput {
	out := make([]domain.GroupQuestionInput, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.GroupQuestionInput{TemplateID: id, Order: orders[i]})
	}
	return out
}

func TestQuestionGroupServiceImpl_CreateGroup(t *testing.T) {
	tests := []struct {
		name          string
		request       func(math, portuguese []uint) domain.CreateGroupRequest
		expectedError error
	}{
		{
			name: "valid math group",
			request: func(math, _ []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{Name: "Matemática v1", TestType: domain.TestTypeMath, Questions: inputs(math[:2], 1, 2)}
			},
		},
		{
			name: "test type without a configured count",
			request: func(math, _ []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{TestType: domain.TestTypePsychology, Questions: inputs(math[:2], 1, 2)}
			},
			expectedError: domain.ErrUnsupportedTestType,
		},
		{
			name: "too many questions",
			request: func(math, _ []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs(math, 1, 2, 3)}
			},
			expectedError: domain.ErrInvalidQuestionCount,
		},
		{
			name: "repeated order",
			request: func(math, _ []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs(math[:2], 1, 1)}
			},
			expectedError: domain.ErrDuplicateGroupOrder,
		},
		{
			name: "non-positive order",
			request: func(math, _ []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs(math[:2], 0, 1)}
			},
			expectedError: domain.ErrInvalidGroupOrder,
		},
		{
			name: "same template twice",
			request: func(math, _ []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs([]uint{math[0], math[0]}, 1, 2)}
			},
			expectedError: domain.ErrInvalidQuestionTemplate,
		},
		{
			name: "template of another test type",
			request: func(math, portuguese []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs([]uint{math[0], portuguese[0]}, 1, 2)}
			},
			expectedError: domain.ErrQuestionTemplateNotFound,
		},
		{
			name: "missing template",
			request: func(math, _ []uint) domain.CreateGroupRequest {
				return domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs([]uint{math[0], 9999}, 1, 2)}
			},
			expectedError: domain.ErrQuestionTemplateNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newGroupHarness(t)
			math := h.templates(t, domain.TestTypeMath, 3)
			portuguese := h.templates(t, domain.TestTypePortuguese, 1)

			group, err := h.svc.CreateGroup(context.Background(), tt.request(math, portuguese))

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected error %v, got %v", tt.expectedError, err)
				}
				groups, _ := h.groupRepo.List(context.Background(), "")
				if len(groups) != 0 {
					t.Errorf("expected nothing persisted, found %d groups", len(groups))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if group.ID == 0 || group.Version != 1 || group.IsActive {
				t.Errorf("unexpected group %+v", group)
			}
			stored, err := h.svc.GetGroup(context.Background(), group.ID)
			if err != nil {
				t.Fatalf("failed to load group: %v", err)
			}
			if len(stored.Questions) != 2 {
				t.Errorf("expected 2 questions, got %d", len(stored.Questions))
			}
		})
	}
}

func TestQuestionGroupServiceImpl_Activation(t *testing.T) {
	h := newGroupHarness(t)
	ctx := context.Background()
	ids := h.templates(t, domain.TestTypeMath, 2)

	first, err := h.svc.CreateGroup(ctx, domain.CreateGroupRequest{Name: "v1", TestType: domain.TestTypeMath, Questions: inputs(ids, 1, 2)})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := h.svc.CreateGroup(ctx, domain.CreateGroupRequest{Name: "v2", TestType: domain.TestTypeMath, Questions: inputs(ids, 2, 1)})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("expected version 2, got %d", second.Version)
	}

	if err := h.svc.ActivateGroup(ctx, first.ID); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if err := h.svc.ActivateGroup(ctx, second.ID); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	groups, err := h.svc.ListGroups(ctx, domain.TestTypeMath)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	active := 0
	for _, g := range groups {
		if g.IsActive {
			active++
			if g.ID != second.ID {
				t.Errorf("expected group %d to be active, got %d", second.ID, g.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active group, got %d", active)
	}
	if n := h.audit.Count(domain.GroupActivatedEvent); n != 2 {
		t.Errorf("expected 2 activation audit events, got %d", n)
	}

	if err := h.svc.DeactivateGroup(ctx, second.ID); !errors.Is(err, domain.ErrCannotDeactivateOnlyGroup) {
		t.Errorf("expected ErrCannotDeactivateOnlyGroup, got %v", err)
	}
	if err := h.svc.DeactivateGroup(ctx, first.ID); err != nil {
		t.Errorf("expected deactivating an inactive group to be a no-op, got %v", err)
	}
	if err := h.svc.ActivateGroup(ctx, 9999); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
	if _, err := h.svc.ListGroups(ctx, "chemistry"); !errors.Is(err, domain.ErrInvalidTestType) {
		t.Errorf("expected ErrInvalidTestType, got %v", err)
	}
}

func TestQuestionGroupServiceImpl_DeleteGroup(t *testing.T) {
	h := newGroupHarness(t)
	ctx := context.Background()
	ids := h.templates(t, domain.TestTypeMath, 2)

	unused, err := h.svc.CreateGroup(ctx, domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs(ids, 1, 2)})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	used, err := h.svc.CreateGroup(ctx, domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs(ids, 1, 2)})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := h.svc.ActivateGroup(ctx, used.ID); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	candidate := testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	testSvc := NewTestService(
		repositories.NewTestInstanceRepository(h.db), h.groupRepo, h.tplRepo,
		mocks.NewMockVideoStorage(), nil, nil, nil,
		clockwork.NewFakeClockAt(testutil.BaseTime), zap.NewNop(), DefaultTestServiceConfig(),
	)
	if _, err := testSvc.CreateTest(ctx, candidate.ID, domain.TestTypeMath, ""); err != nil {
		t.Fatalf("create test failed: %v", err)
	}
	// switch the active group so the used one can only fail on its references
	if err := h.svc.ActivateGroup(ctx, unused.ID); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	if err := h.svc.DeleteGroup(ctx, used.ID); !errors.Is(err, domain.ErrGroupInUse) {
		t.Errorf("expected ErrGroupInUse, got %v", err)
	}
	if err := h.svc.DeleteGroup(ctx, unused.ID); !errors.Is(err, domain.ErrCannotDeactivateOnlyGroup) {
		t.Errorf("expected deleting the active group to fail, got %v", err)
	}

	spare, err := h.svc.CreateGroup(ctx, domain.CreateGroupRequest{TestType: domain.TestTypeMath, Questions: inputs(ids, 1, 2)})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := h.svc.DeleteGroup(ctx, spare.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := h.svc.GetGroup(ctx, spare.ID); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound after delete, got %v", err)
	}
}

func TestQuestionGroupServiceImpl_ReorderQuestions(t *testing.T) {
	h := newGroupHarness(t)
	ctx := context.Background()
	ids := h.templates(t, domain.TestTypePortuguese, 3)

	group, err := h.svc.CreateGroup(ctx, domain.CreateGroupRequest{TestType: domain.TestTypePortuguese, Questions: inputs(ids, 1, 2, 3)})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	q := group.Questions

	tests := []struct {
		name          string
		orders        []domain.QuestionOrdering
		expectedError error
	}{
		{
			name:          "partial reorder",
			orders:        []domain.QuestionOrdering{{QuestionID: q[0].ID, Order: 2}, {QuestionID: q[1].ID, Order: 1}},
			expectedError: domain.ErrInvalidQuestionIDs,
		},
		{
			name:          "foreign id",
			orders:        []domain.QuestionOrdering{{QuestionID: q[0].ID, Order: 1}, {QuestionID: q[1].ID, Order: 2}, {QuestionID: 9999, Order: 3}},
			expectedError: domain.ErrInvalidQuestionIDs,
		},
		{
			name:          "repeated id",
			orders:        []domain.QuestionOrdering{{QuestionID: q[0].ID, Order: 1}, {QuestionID: q[0].ID, Order: 2}, {QuestionID: q[1].ID, Order: 3}},
			expectedError: domain.ErrInvalidQuestionIDs,
		},
		{
			name:          "repeated position",
			orders:        []domain.QuestionOrdering{{QuestionID: q[0].ID, Order: 1}, {QuestionID: q[1].ID, Order: 1}, {QuestionID: q[2].ID, Order: 3}},
			expectedError: domain.ErrDuplicateOrder,
		},
		{
			name:          "non-positive position",
			orders:        []domain.QuestionOrdering{{QuestionID: q[0].ID, Order: 0}, {QuestionID: q[1].ID, Order: 1}, {QuestionID: q[2].ID, Order: 2}},
			expectedError: domain.ErrInvalidGroupOrder,
		},
		{
			name:   "full reverse",
			orders: []domain.QuestionOrdering{{QuestionID: q[0].ID, Order: 3}, {QuestionID: q[1].ID, Order: 2}, {QuestionID: q[2].ID, Order: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.svc.ReorderQuestions(ctx, group.ID, tt.orders)
			if !errors.Is(err, tt.expectedError) {
				t.Fatalf("expected error %v, got %v", tt.expectedError, err)
			}
		})
	}

	stored, err := h.svc.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("failed to load group: %v", err)
	}
	if stored.Questions[0].ID != q[2].ID || stored.Questions[2].ID != q[0].ID {
		t.Errorf("expected reversed order, got %+v", stored.Questions)
	}
	if err := h.svc.ReorderQuestions(ctx, 9999, nil); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/mocks"
	"go.uber.org/zap"
)

func TestQuestionGroupHandlers_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockQuestionGroupService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "created",
			body: `{"name":"Math A","testType":"math","questions":[{"template_id":1,"order":1},{"template_id":2,"order":2}]}`,
			setupMocks: func(svc *mocks.MockQuestionGroupService) {
				svc.CreateGroupFunc = func(ctx context.Context, req domain.CreateGroupRequest) (*domain.TestQuestionGroup, error) {
					if req.TestType != domain.TestTypeMath || len(req.Questions) != 2 || req.Questions[1].TemplateID != 2 {
						t.Errorf("unexpected request %+v", req)
					}
					return &domain.TestQuestionGroup{
						ID: 3, Name: req.Name, TestType: req.TestType, Version: 1,
						Questions: []domain.GroupQuestion{{ID: 10, GroupID: 3, TemplateID: 1, Order: 1}, {ID: 11, GroupID: 3, TemplateID: 2, Order: 2}},
					}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "question list required",
			body:           `{"name":"Math A","testType":"math"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_REQUEST",
		},
		{
			name: "wrong question count",
			body: `{"testType":"math","questions":[{"template_id":1,"order":1}]}`,
			setupMocks: func(svc *mocks.MockQuestionGroupService) {
				svc.CreateGroupFunc = func(context.Context, domain.CreateGroupRequest) (*domain.TestQuestionGroup, error) {
					return nil, domain.ErrInvalidQuestionCount
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_QUESTION_COUNT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockQuestionGroupService()
			if tt.setupMocks != nil {
				tt.setupMocks(svc)
			}
			handler := NewQuestionGroupHandlers(svc, clockwork.NewFakeClockAt(baseTime), zap.NewNop())

			w, body := serve(t, handler.Create, http.MethodPost, "/admin/question-groups", tt.body, nil)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedCode != "" && body["code"] != tt.expectedCode {
				t.Errorf("expected code %s, got %v", tt.expectedCode, body["code"])
			}
			if w.Code == http.StatusCreated {
				data := dataOf(t, body)
				if data["version"] != float64(1) || len(data["questions"].([]interface{})) != 2 {
					t.Errorf("unexpected group payload %v", data)
				}
			}
		})
	}
}

func TestQuestionGroupHandlers_Lifecycle(t *testing.T) {
	svc := mocks.NewMockQuestionGroupService()
	var activated, deleted uint
	svc.ActivateGroupFunc = func(ctx context.Context, id uint) error {
		activated = id
		return nil
	}
	svc.DeactivateGroupFunc = func(ctx context.Context, id uint) error {
		return domain.ErrCannotDeactivateOnlyGroup
	}
	svc.DeleteGroupFunc = func(ctx context.Context, id uint) error {
		deleted = id
		return nil
	}
	var reordered []domain.QuestionOrdering
	svc.ReorderQuestionsFunc = func(ctx context.Context, id uint, orders []domain.QuestionOrdering) error {
		reordered = orders
		return nil
	}
	svc.ListGroupsFunc = func(ctx context.Context, testType domain.TestType) ([]domain.TestQuestionGroup, error) {
		return []domain.TestQuestionGroup{{ID: 1, TestType: testType, IsActive: true}}, nil
	}
	handler := NewQuestionGroupHandlers(svc, clockwork.NewFakeClockAt(baseTime), zap.NewNop())

	w, _ := serve(t, handler.Activate, http.MethodPost, "/admin/question-groups/5/activate", "", withParam("id", "5", nil))
	if w.Code != http.StatusNoContent || activated != 5 {
		t.Errorf("expected group 5 activated, got %d %d", w.Code, activated)
	}

	w, body := serve(t, handler.Deactivate, http.MethodPost, "/admin/question-groups/5/deactivate", "", withParam("id", "5", nil))
	if w.Code != http.StatusConflict || body["code"] != "CANNOT_DEACTIVATE_ONLY_GROUP" {
		t.Errorf("expected CANNOT_DEACTIVATE_ONLY_GROUP, got %d %v", w.Code, body)
	}

	w, _ = serve(t, handler.Delete, http.MethodDelete, "/admin/question-groups/6", "", withParam("id", "6", nil))
	if w.Code != http.StatusNoContent || deleted != 6 {
		t.Errorf("expected group 6 deleted, got %d %d", w.Code, deleted)
	}

	w, _ = serve(t, handler.Delete, http.MethodDelete, "/admin/question-groups/abc", "", withParam("id", "abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-numeric id, got %d", w.Code)
	}

	w, _ = serve(t, handler.Reorder, http.MethodPut, "/admin/question-groups/5/reorder",
		`{"orders":[{"question_id":10,"order":2},{"question_id":11,"order":1}]}`, withParam("id", "5", nil))
	if w.Code != http.StatusNoContent || len(reordered) != 2 || reordered[0].Order != 2 {
		t.Errorf("unexpected reorder outcome %d %+v", w.Code, reordered)
	}

	w, body = serve(t, handler.List, http.MethodGet, "/admin/question-groups?testType=math", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	groups := body["data"].([]interface{})
	if len(groups) != 1 || groups[0].(map[string]interface{})["test_type"] != "math" {
		t.Errorf("unexpected list %v", groups)
	}

	w, body = serve(t, handler.Get, http.MethodGet, "/admin/question-groups/9", "", withParam("id", "9", nil))
	if w.Code != http.StatusNotFound || body["code"] != "GROUP_NOT_FOUND" {
		t.Errorf("expected GROUP_NOT_FOUND, got %d %v", w.Code, body)
	}
}

func TestQuestionTemplateHandlers(t *testing.T) {
	svc := mocks.NewMockQuestionBankService()
	var created *domain.QuestionTemplate
	svc.CreateTemplateFunc = func(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error) {
		created = tpl
		tpl.ID = 12
		return tpl, nil
	}
	svc.UpdateTemplateFunc = func(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error) {
		if tpl.ID != 12 {
			return nil, domain.ErrQuestionTemplateNotFound
		}
		return tpl, nil
	}
	handler := NewQuestionTemplateHandlers(svc, clockwork.NewFakeClockAt(baseTime), zap.NewNop())

	payload := `{"testType":"math","difficulty":"easy","text":"2+2?","options":[{"id":"a","text":"3"},{"id":"b","text":"4"}],"pointValue":1,"correctOptionIds":["b"]}`
	w, body := serve(t, handler.Create, http.MethodPost, "/admin/question-templates", payload, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if created.ResponseKind != domain.ResponseKindMultipleChoice || !created.IsActive {
		t.Errorf("defaults not applied: %+v", created)
	}
	if created.Answer == nil || len(created.Answer.CorrectOptionIDs) != 1 {
		t.Errorf("answer key not passed through: %+v", created.Answer)
	}
	if ids := dataOf(t, body)["correct_option_ids"].([]interface{}); len(ids) != 1 || ids[0] != "b" {
		t.Errorf("admin payload must expose the answer key, got %v", ids)
	}

	w, _ = serve(t, handler.Update, http.MethodPut, "/admin/question-templates/12", payload, withParam("id", "12", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w, body = serve(t, handler.Update, http.MethodPut, "/admin/question-templates/13", payload, withParam("id", "13", nil))
	if w.Code != http.StatusNotFound || body["code"] != "QUESTION_TEMPLATE_NOT_FOUND" {
		t.Errorf("expected QUESTION_TEMPLATE_NOT_FOUND, got %d %v", w.Code, body)
	}

	var filter domain.TemplateFilter
	svc.ListTemplatesFunc = func(ctx context.Context, f domain.TemplateFilter) ([]domain.QuestionTemplate, error) {
		filter = f
		return []domain.QuestionTemplate{{ID: 12}}, nil
	}
	w, _ = serve(t, handler.List, http.MethodGet, "/admin/question-templates?testType=math&difficulty=hard", "", nil)
	if w.Code != http.StatusOK || filter.TestType != domain.TestTypeMath || filter.Difficulty != domain.DifficultyHard {
		t.Errorf("unexpected list outcome %d %+v", w.Code, filter)
	}
}

func TestPolicyHandlers(t *testing.T) {
	svc := mocks.NewMockPolicyService()
	var added []string
	svc.AddPolicyFunc = func(role, resource, action string) error {
		added = []string{role, resource, action}
		return nil
	}
	handler := NewPolicyHandlers(svc, clockwork.NewFakeClockAt(baseTime), zap.NewNop())

	w, body := serve(t, handler.List, http.MethodGet, "/admin/policies", "", nil)
	if w.Code != http.StatusOK || len(body["data"].([]interface{})) != 2 {
		t.Errorf("unexpected policy list %d %v", w.Code, body)
	}

	w, _ = serve(t, handler.Add, http.MethodPost, "/admin/policies",
		`{"role":"admin","resource":"/admin/reports","action":"GET"}`, nil)
	if w.Code != http.StatusNoContent || added[1] != "/admin/reports" {
		t.Errorf("unexpected add outcome %d %v", w.Code, added)
	}

	w, _ = serve(t, handler.Remove, http.MethodDelete, "/admin/policies", `{"role":"admin"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an incomplete policy, got %d", w.Code)
	}

	w, body = serve(t, handler.Check, http.MethodGet, "/admin/policies/check?role=role_admin&resource=/admin/x&action=GET", "", nil)
	if w.Code != http.StatusOK || dataOf(t, body)["allowed"] != true {
		t.Errorf("unexpected check outcome %d %v", w.Code, body)
	}

	w, body = serve(t, handler.Check, http.MethodGet, "/admin/policies/check?role=role_admin", "", nil)
	if w.Code != http.StatusBadRequest || body["code"] != "INVALID_POLICY" {
		t.Errorf("expected INVALID_POLICY, got %d %v", w.Code, body)
	}
}

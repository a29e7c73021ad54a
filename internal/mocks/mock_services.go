package mocks

import (
	"context"
	"io"

	"github.com/kai426/Dignus-sub001/domain"
)

// MockCandidateAuthService implements domain.CandidateAuthService interface for testing
type MockCandidateAuthService struct {
	RequestTokenFunc       func(ctx context.Context, cpf, email, ipAddress, userAgent string) (*domain.TokenRequestResult, error)
	ValidateTokenFunc      func(ctx context.Context, cpf, code string) (*domain.TokenValidationResult, error)
	CheckLockoutStatusFunc func(ctx context.Context, cpf string) (*domain.LockoutStatus, error)
	RefreshAccessTokenFunc func(ctx context.Context, refreshToken string) (*domain.TokenValidationResult, error)
}

// NewMockCandidateAuthService creates a new MockCandidateAuthService
func NewMockCandidateAuthService() *MockCandidateAuthService {
	return &MockCandidateAuthService{}
}

// RequestToken issues an access code
func (m *MockCandidateAuthService) RequestToken(ctx context.Context, cpf, email, ipAddress, userAgent string) (*domain.TokenRequestResult, error) {
	if m.RequestTokenFunc != nil {
		return m.RequestTokenFunc(ctx, cpf, email, ipAddress, userAgent)
	}
	return &domain.TokenRequestResult{MaskedEmail: domain.MaskEmail(email), ExpiresInMinutes: 15}, nil
}

// ValidateToken exchanges an access code for tokens
func (m *MockCandidateAuthService) ValidateToken(ctx context.Context, cpf, code string) (*domain.TokenValidationResult, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, cpf, code)
	}
	return nil, domain.ErrTokenNotFound
}

// CheckLockoutStatus reports the lockout state
func (m *MockCandidateAuthService) CheckLockoutStatus(ctx context.Context, cpf string) (*domain.LockoutStatus, error) {
	if m.CheckLockoutStatusFunc != nil {
		return m.CheckLockoutStatusFunc(ctx, cpf)
	}
	return &domain.LockoutStatus{}, nil
}

// RefreshAccessToken rotates a refresh token
func (m *MockCandidateAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenValidationResult, error) {
	if m.RefreshAccessTokenFunc != nil {
		return m.RefreshAccessTokenFunc(ctx, refreshToken)
	}
	return nil, domain.ErrRefreshTokenInvalid
}

// MockTestService implements domain.TestService interface for testing
type MockTestService struct {
	CreateTestFunc           func(ctx context.Context, candidateID uint, testType domain.TestType, difficulty domain.Difficulty) (*domain.CandidateTestView, error)
	StartTestFunc            func(ctx context.Context, testID string, candidateID uint) (*domain.CandidateTestView, error)
	SubmitTestFunc           func(ctx context.Context, testID string, candidateID uint, answers []domain.SubmittedAnswer) (*domain.SubmissionResult, error)
	GetTestStatusFunc        func(ctx context.Context, testID string, candidateID uint) (*domain.TestStatusSummary, error)
	CanStartTestFunc         func(ctx context.Context, candidateID uint, testType domain.TestType) (bool, error)
	GetTestFunc              func(ctx context.Context, testID string, candidateID uint) (*domain.CandidateTestView, error)
	SaveAnswerFunc           func(ctx context.Context, testID string, candidateID uint, answer domain.SubmittedAnswer) error
	UploadVideoResponseFunc  func(ctx context.Context, testID string, candidateID uint, upload domain.VideoUpload, content io.Reader) (*domain.VideoResponse, error)
	ApplyVideoEvaluationFunc func(ctx context.Context, eval domain.VideoEvaluation) error
}

// NewMockTestService creates a new MockTestService
func NewMockTestService() *MockTestService {
	return &MockTestService{}
}

// CreateTest creates a test instance
func (m *MockTestService) CreateTest(ctx context.Context, candidateID uint, testType domain.TestType, difficulty domain.Difficulty) (*domain.CandidateTestView, error) {
	if m.CreateTestFunc != nil {
		return m.CreateTestFunc(ctx, candidateID, testType, difficulty)
	}
	return &domain.CandidateTestView{ID: "test-1", TestType: testType, Status: domain.TestStatusNotStarted}, nil
}

// StartTest starts a test instance
func (m *MockTestService) StartTest(ctx context.Context, testID string, candidateID uint) (*domain.CandidateTestView, error) {
	if m.StartTestFunc != nil {
		return m.StartTestFunc(ctx, testID, candidateID)
	}
	return &domain.CandidateTestView{ID: testID, Status: domain.TestStatusInProgress}, nil
}

// SubmitTest grades and completes a test instance
func (m *MockTestService) SubmitTest(ctx context.Context, testID string, candidateID uint, answers []domain.SubmittedAnswer) (*domain.SubmissionResult, error) {
	if m.SubmitTestFunc != nil {
		return m.SubmitTestFunc(ctx, testID, candidateID, answers)
	}
	return &domain.SubmissionResult{TestID: testID, Status: domain.TestStatusCompleted}, nil
}

// GetTestStatus returns the progress summary
func (m *MockTestService) GetTestStatus(ctx context.Context, testID string, candidateID uint) (*domain.TestStatusSummary, error) {
	if m.GetTestStatusFunc != nil {
		return m.GetTestStatusFunc(ctx, testID, candidateID)
	}
	return &domain.TestStatusSummary{TestID: testID}, nil
}

// CanStartTest reports whether a new instance may be created
func (m *MockTestService) CanStartTest(ctx context.Context, candidateID uint, testType domain.TestType) (bool, error) {
	if m.CanStartTestFunc != nil {
		return m.CanStartTestFunc(ctx, candidateID, testType)
	}
	return true, nil
}

// GetTest returns the candidate view of a test instance
func (m *MockTestService) GetTest(ctx context.Context, testID string, candidateID uint) (*domain.CandidateTestView, error) {
	if m.GetTestFunc != nil {
		return m.GetTestFunc(ctx, testID, candidateID)
	}
	return &domain.CandidateTestView{ID: testID}, nil
}

// SaveAnswer stores one answer
func (m *MockTestService) SaveAnswer(ctx context.Context, testID string, candidateID uint, answer domain.SubmittedAnswer) error {
	if m.SaveAnswerFunc != nil {
		return m.SaveAnswerFunc(ctx, testID, candidateID, answer)
	}
	return nil
}

// UploadVideoResponse stores a video answer
func (m *MockTestService) UploadVideoResponse(ctx context.Context, testID string, candidateID uint, upload domain.VideoUpload, content io.Reader) (*domain.VideoResponse, error) {
	if m.UploadVideoResponseFunc != nil {
		return m.UploadVideoResponseFunc(ctx, testID, candidateID, upload, content)
	}
	return &domain.VideoResponse{ID: "video-1", TestInstanceID: testID, QuestionSnapshotID: upload.QuestionSnapshotID}, nil
}

// ApplyVideoEvaluation stores an AI evaluation
func (m *MockTestService) ApplyVideoEvaluation(ctx context.Context, eval domain.VideoEvaluation) error {
	if m.ApplyVideoEvaluationFunc != nil {
		return m.ApplyVideoEvaluationFunc(ctx, eval)
	}
	return nil
}

// MockQuestionGroupService implements domain.QuestionGroupService interface for testing
type MockQuestionGroupService struct {
	CreateGroupFunc      func(ctx context.Context, req domain.CreateGroupRequest) (*domain.TestQuestionGroup, error)
	ActivateGroupFunc    func(ctx context.Context, groupID uint) error
	DeactivateGroupFunc  func(ctx context.Context, groupID uint) error
	DeleteGroupFunc      func(ctx context.Context, groupID uint) error
	ReorderQuestionsFunc func(ctx context.Context, groupID uint, orders []domain.QuestionOrdering) error
	GetGroupFunc         func(ctx context.Context, groupID uint) (*domain.TestQuestionGroup, error)
	ListGroupsFunc       func(ctx context.Context, testType domain.TestType) ([]domain.TestQuestionGroup, error)
}

// NewMockQuestionGroupService creates a new MockQuestionGroupService
func NewMockQuestionGroupService() *MockQuestionGroupService {
	return &MockQuestionGroupService{}
}

// CreateGroup creates a question group
func (m *MockQuestionGroupService) CreateGroup(ctx context.Context, req domain.CreateGroupRequest) (*domain.TestQuestionGroup, error) {
	if m.CreateGroupFunc != nil {
		return m.CreateGroupFunc(ctx, req)
	}
	return &domain.TestQuestionGroup{ID: 1, Name: req.Name, TestType: req.TestType, Version: 1}, nil
}

// ActivateGroup activates a question group
func (m *MockQuestionGroupService) ActivateGroup(ctx context.Context, groupID uint) error {
	if m.ActivateGroupFunc != nil {
		return m.ActivateGroupFunc(ctx, groupID)
	}
	return nil
}

// DeactivateGroup deactivates a question group
func (m *MockQuestionGroupService) DeactivateGroup(ctx context.Context, groupID uint) error {
	if m.DeactivateGroupFunc != nil {
		return m.DeactivateGroupFunc(ctx, groupID)
	}
	return nil
}

// DeleteGroup deletes a question group
func (m *MockQuestionGroupService) DeleteGroup(ctx context.Context, groupID uint) error {
	if m.DeleteGroupFunc != nil {
		return m.DeleteGroupFunc(ctx, groupID)
	}
	return nil
}

// ReorderQuestions reorders the questions of a group
func (m *MockQuestionGroupService) ReorderQuestions(ctx context.Context, groupID uint, orders []domain.QuestionOrdering) error {
	if m.ReorderQuestionsFunc != nil {
		return m.ReorderQuestionsFunc(ctx, groupID, orders)
	}
	return nil
}

// GetGroup returns a question group
func (m *MockQuestionGroupService) GetGroup(ctx context.Context, groupID uint) (*domain.TestQuestionGroup, error) {
	if m.GetGroupFunc != nil {
		return m.GetGroupFunc(ctx, groupID)
	}
	return nil, domain.ErrGroupNotFound
}

// ListGroups lists question groups
func (m *MockQuestionGroupService) ListGroups(ctx context.Context, testType domain.TestType) ([]domain.TestQuestionGroup, error) {
	if m.ListGroupsFunc != nil {
		return m.ListGroupsFunc(ctx, testType)
	}
	return nil, nil
}

// MockQuestionBankService implements domain.QuestionBankService interface for testing
type MockQuestionBankService struct {
	CreateTemplateFunc func(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error)
	UpdateTemplateFunc func(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error)
	GetTemplateFunc    func(ctx context.Context, id uint) (*domain.QuestionTemplate, error)
	ListTemplatesFunc  func(ctx context.Context, filter domain.TemplateFilter) ([]domain.QuestionTemplate, error)
}

// NewMockQuestionBankService creates a new MockQuestionBankService
func NewMockQuestionBankService() *MockQuestionBankService {
	return &MockQuestionBankService{}
}

// CreateTemplate creates a question template
func (m *MockQuestionBankService) CreateTemplate(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error) {
	if m.CreateTemplateFunc != nil {
		return m.CreateTemplateFunc(ctx, tpl)
	}
	tpl.ID = 1
	return tpl, nil
}

// UpdateTemplate updates a question template
func (m *MockQuestionBankService) UpdateTemplate(ctx context.Context, tpl *domain.QuestionTemplate) (*domain.QuestionTemplate, error) {
	if m.UpdateTemplateFunc != nil {
		return m.UpdateTemplateFunc(ctx, tpl)
	}
	return tpl, nil
}

// GetTemplate returns a question template
func (m *MockQuestionBankService) GetTemplate(ctx context.Context, id uint) (*domain.QuestionTemplate, error) {
	if m.GetTemplateFunc != nil {
		return m.GetTemplateFunc(ctx, id)
	}
	return nil, domain.ErrQuestionTemplateNotFound
}

// ListTemplates lists question templates
func (m *MockQuestionBankService) ListTemplates(ctx context.Context, filter domain.TemplateFilter) ([]domain.QuestionTemplate, error) {
	if m.ListTemplatesFunc != nil {
		return m.ListTemplatesFunc(ctx, filter)
	}
	return nil, nil
}

// MockAdminAuthService implements domain.AdminAuthService interface for testing
type MockAdminAuthService struct {
	LoginFunc      func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	LogoutFunc     func(ctx context.Context, sessionID string) error
	GetProfileFunc func(ctx context.Context, adminID uint) (*domain.Admin, error)
}

// NewMockAdminAuthService creates a new MockAdminAuthService
func NewMockAdminAuthService() *MockAdminAuthService {
	return &MockAdminAuthService{}
}

// Login authenticates an admin
func (m *MockAdminAuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, domain.ErrInvalidCredentials
}

// Logout ends an admin session
func (m *MockAdminAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

// GetProfile returns the admin profile
func (m *MockAdminAuthService) GetProfile(ctx context.Context, adminID uint) (*domain.Admin, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, adminID)
	}
	return nil, domain.ErrAdminNotFound
}

// Compile-time interface compliance verification
var (
	_ domain.CandidateAuthService = (*MockCandidateAuthService)(nil)
	_ domain.TestService          = (*MockTestService)(nil)
	_ domain.QuestionGroupService = (*MockQuestionGroupService)(nil)
	_ domain.QuestionBankService  = (*MockQuestionBankService)(nil)
	_ domain.AdminAuthService     = (*MockAdminAuthService)(nil)
)

package domain

import (
	"context"
	"io"
	"time"
)

// CandidateRepository defines candidate data access operations
type CandidateRepository interface {
	Create(ctx context.Context, candidate *Candidate) error
	FindByCPF(ctx context.Context, cpf string) (*Candidate, error)
	FindByID(ctx context.Context, id uint) (*Candidate, error)
}

// AuthTokenRepository defines access-code persistence. Every method is atomic on its own.
type AuthTokenRepository interface {
	// CreateToken invalidates every active token of the CPF and inserts token in one
	// transaction. The failed-attempt counter of the replaced token carries over.
	CreateToken(ctx context.Context, token *CandidateAuthToken) error
	// GetCurrentToken returns the newest token that is neither consumed nor invalidated,
	// expired or not.
	GetCurrentToken(ctx context.Context, cpf string) (*CandidateAuthToken, error)
	// RegisterFailedAttempt increments the counter and, once it reaches maxAttempts,
	// sets the lockout. It returns the new count and the lockout expiry if one was set.
	RegisterFailedAttempt(ctx context.Context, tokenID uint, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	// GetLockout returns the latest lockout expiry recorded for the CPF, nil when none
	GetLockout(ctx context.Context, cpf string) (*time.Time, error)
	ClearLockout(ctx context.Context, cpf string) error
	// MarkConsumed consumes the token unless it is already consumed or invalidated
	MarkConsumed(ctx context.Context, tokenID uint, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// AdminRepository defines admin data access operations
type AdminRepository interface {
	Create(ctx context.Context, admin *Admin) error
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	FindByID(ctx context.Context, id uint) (*Admin, error)
}

// SessionRepository defines admin session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// RefreshTokenRepository stores opaque candidate refresh tokens
type RefreshTokenRepository interface {
	Store(ctx context.Context, token string, candidateID uint, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (uint, error)
	Revoke(ctx context.Context, token string) error
}

// TestInstanceRepository defines test instance persistence
type TestInstanceRepository interface {
	// CreateWithSnapshots inserts the instance and its snapshots in one transaction,
	// failing with ErrActiveTestExists when another active instance of the type exists.
	CreateWithSnapshots(ctx context.Context, instance *TestInstance) error
	// FindByID loads the instance with snapshots and responses
	FindByID(ctx context.Context, id string) (*TestInstance, error)
	HasActiveTest(ctx context.Context, candidateID uint, testType TestType) (bool, error)
	ListByCandidate(ctx context.Context, candidateID uint) ([]TestInstance, error)
	// MarkStarted moves the instance from not_started to in_progress, failing with
	// ErrInvalidStateTransition when the stored status differs.
	MarkStarted(ctx context.Context, id string, at time.Time) error
	// Complete stores grading results and moves the instance from in_progress to completed
	Complete(ctx context.Context, instance *TestInstance, responses []QuestionResponse) error
	// SaveResponse upserts one multiple-choice answer while the instance is in progress
	SaveResponse(ctx context.Context, response *QuestionResponse) error
	// SaveVideoResponse stores a video answer. A re-upload for the same question replaces the
	// previous row, so its id stops resolving, and the replaced blob key is returned.
	SaveVideoResponse(ctx context.Context, response *VideoResponse) (replacedBlobKey string, err error)
	FindVideoResponse(ctx context.Context, id string) (*VideoResponse, error)
	UpdateVideoEvaluation(ctx context.Context, id string, eval VideoEvaluation, at time.Time) error
	CountByGroup(ctx context.Context, groupID uint) (int64, error)
}

// QuestionGroupRepository defines question group persistence
type QuestionGroupRepository interface {
	// Create inserts the group and its questions in one transaction
	Create(ctx context.Context, group *TestQuestionGroup) error
	FindByID(ctx context.Context, id uint) (*TestQuestionGroup, error)
	FindActive(ctx context.Context, testType TestType) (*TestQuestionGroup, error)
	List(ctx context.Context, testType TestType) ([]TestQuestionGroup, error)
	// Activate deactivates every sibling of the same test type and activates the group
	// in one transaction
	Activate(ctx context.Context, id uint) error
	// Deactivate fails with ErrCannotDeactivateOnlyGroup when the group is the only
	// active one of its type
	Deactivate(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	UpdateOrders(ctx context.Context, groupID uint, orders []QuestionOrdering) error
}

// QuestionTemplateRepository defines question bank persistence
type QuestionTemplateRepository interface {
	Create(ctx context.Context, tpl *QuestionTemplate) error
	Update(ctx context.Context, tpl *QuestionTemplate) error
	FindByID(ctx context.Context, id uint) (*QuestionTemplate, error)
	// FindByIDs loads templates with their answers, keyed by id
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*QuestionTemplate, error)
	List(ctx context.Context, filter TemplateFilter) ([]QuestionTemplate, error)
}

// CandidateAuthService defines candidate one-time-code authentication
type CandidateAuthService interface {
	RequestToken(ctx context.Context, cpf, email, ipAddress, userAgent string) (*TokenRequestResult, error)
	ValidateToken(ctx context.Context, cpf, code string) (*TokenValidationResult, error)
	CheckLockoutStatus(ctx context.Context, cpf string) (*LockoutStatus, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenValidationResult, error)
}

// TestService defines the test instance lifecycle
type TestService interface {
	CreateTest(ctx context.Context, candidateID uint, testType TestType, difficulty Difficulty) (*CandidateTestView, error)
	StartTest(ctx context.Context, testID string, candidateID uint) (*CandidateTestView, error)
	SubmitTest(ctx context.Context, testID string, candidateID uint, answers []SubmittedAnswer) (*SubmissionResult, error)
	GetTestStatus(ctx context.Context, testID string, candidateID uint) (*TestStatusSummary, error)
	CanStartTest(ctx context.Context, candidateID uint, testType TestType) (bool, error)
	GetTest(ctx context.Context, testID string, candidateID uint) (*CandidateTestView, error)
	SaveAnswer(ctx context.Context, testID string, candidateID uint, answer SubmittedAnswer) error
	UploadVideoResponse(ctx context.Context, testID string, candidateID uint, upload VideoUpload, content io.Reader) (*VideoResponse, error)
	ApplyVideoEvaluation(ctx context.Context, eval VideoEvaluation) error
}

// QuestionGroupService defines admin question group management
type QuestionGroupService interface {
	CreateGroup(ctx context.Context, req CreateGroupRequest) (*TestQuestionGroup, error)
	ActivateGroup(ctx context.Context, groupID uint) error
	DeactivateGroup(ctx context.Context, groupID uint) error
	DeleteGroup(ctx context.Context, groupID uint) error
	ReorderQuestions(ctx context.Context, groupID uint, orders []QuestionOrdering) error
	GetGroup(ctx context.Context, groupID uint) (*TestQuestionGroup, error)
	ListGroups(ctx context.Context, testType TestType) ([]TestQuestionGroup, error)
}

// QuestionBankService defines admin question template management
type QuestionBankService interface {
	CreateTemplate(ctx context.Context, tpl *QuestionTemplate) (*QuestionTemplate, error)
	UpdateTemplate(ctx context.Context, tpl *QuestionTemplate) (*QuestionTemplate, error)
	GetTemplate(ctx context.Context, id uint) (*QuestionTemplate, error)
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]QuestionTemplate, error)
}

// AdminAuthService defines back-office authentication
type AdminAuthService interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetProfile(ctx context.Context, adminID uint) (*Admin, error)
}

// CodeGenerator produces one-time access codes
type CodeGenerator interface {
	Generate() (string, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines access token operations
type TokenService interface {
	GenerateCandidateToken(candidate *Candidate) (string, error)
	GenerateAdminToken(admin *Admin, sessionID string) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	AccessTokenTTL() time.Duration
}

// NotificationService defines outbound notification operations
type NotificationService interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, message string) error
}

// Locker serializes work on a key across processes
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done. The returned func releases it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// VideoStorage stores video response blobs
type VideoStorage interface {
	Upload(ctx context.Context, key string, content io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// AIAgent receives video responses for asynchronous scoring
type AIAgent interface {
	SubmitVideo(ctx context.Context, req VideoScoringRequest) error
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
	CPF          string `json:"cpf,omitempty"`
	Email        string `json:"email,omitempty"`
	LGPDAccepted bool   `json:"lgpd_accepted,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}

package domain

import (
	"errors"
	"time"
)

// ErrorKind classifies domain failures so callers can react without string matching
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindAuth       ErrorKind = "auth"
	KindForbidden  ErrorKind = "forbidden"
	KindState      ErrorKind = "state"
	KindInternal   ErrorKind = "internal"
)

// Error is a typed domain failure. Two errors match under errors.Is when their codes match,
// so detail-carrying copies still compare equal to the sentinel they came from.
type Error struct {
	Kind              ErrorKind
	Code              string
	Message           string
	LockedUntil       *time.Time
	AttemptsRemaining *int
}

// NewError creates a domain error
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on error code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy with a more specific message
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// WithLockedUntil returns a copy carrying the lockout expiry
func (e *Error) WithLockedUntil(until time.Time) *Error {
	cp := *e
	cp.LockedUntil = &until
	return &cp
}

// WithAttemptsRemaining returns a copy carrying the attempts left before lockout
func (e *Error) WithAttemptsRemaining(n int) *Error {
	cp := *e
	cp.AttemptsRemaining = &n
	return &cp
}

// KindOf returns the kind of a domain error, or KindInternal for anything else
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Candidate authentication errors
var (
	ErrInvalidCPF          = NewError(KindValidation, "INVALID_CPF", "invalid cpf")
	ErrInvalidEmail        = NewError(KindValidation, "INVALID_EMAIL", "invalid email")
	ErrAccountLocked       = NewError(KindAuth, "ACCOUNT_LOCKED", "account temporarily locked after too many failed attempts")
	ErrCandidateNotFound   = NewError(KindNotFound, "CANDIDATE_NOT_FOUND", "candidate not found")
	ErrEmailMismatch       = NewError(KindAuth, "EMAIL_MISMATCH", "email does not match the registered candidate")
	ErrTokenNotFound       = NewError(KindNotFound, "TOKEN_NOT_FOUND", "no active access code")
	ErrTokenExpired        = NewError(KindAuth, "TOKEN_EXPIRED", "access code has expired")
	ErrInvalidToken        = NewError(KindAuth, "INVALID_TOKEN", "invalid access code")
	ErrRefreshTokenInvalid = NewError(KindAuth, "REFRESH_TOKEN_INVALID", "invalid or expired refresh token")
)

// Admin authentication errors
var (
	ErrAdminNotFound      = NewError(KindNotFound, "ADMIN_NOT_FOUND", "admin not found")
	ErrInvalidCredentials = NewError(KindAuth, "INVALID_CREDENTIALS", "invalid credentials")
	ErrAdminInactive      = NewError(KindForbidden, "ADMIN_INACTIVE", "admin account is inactive")
)

// Access token errors
var (
	ErrAccessTokenInvalid   = NewError(KindAuth, "ACCESS_TOKEN_INVALID", "invalid token")
	ErrAccessTokenExpired   = NewError(KindAuth, "ACCESS_TOKEN_EXPIRED", "token has expired")
	ErrAccessTokenMalformed = NewError(KindAuth, "ACCESS_TOKEN_MALFORMED", "malformed token")
)

// Session errors
var (
	ErrSessionNotFound = NewError(KindAuth, "SESSION_NOT_FOUND", "session not found")
	ErrSessionExpired  = NewError(KindAuth, "SESSION_EXPIRED", "session has expired")
)

// Authorization errors
var (
	ErrUnauthorized     = NewError(KindAuth, "UNAUTHORIZED", "unauthorized access")
	ErrForbidden        = NewError(KindForbidden, "FORBIDDEN", "resource belongs to another candidate")
	ErrInsufficientRole = NewError(KindForbidden, "INSUFFICIENT_ROLE", "insufficient role permissions")
	ErrInvalidPolicy    = NewError(KindValidation, "INVALID_POLICY", "role, resource and action are required")
)

// Test lifecycle errors
var (
	ErrInvalidTestType         = NewError(KindValidation, "INVALID_TEST_TYPE", "unknown test type")
	ErrInvalidDifficulty       = NewError(KindValidation, "INVALID_DIFFICULTY", "unknown difficulty")
	ErrTestNotFound            = NewError(KindNotFound, "TEST_NOT_FOUND", "test not found")
	ErrActiveTestExists        = NewError(KindConflict, "ACTIVE_TEST_EXISTS", "candidate already has an active test of this type")
	ErrNoActiveQuestionGroup   = NewError(KindInternal, "NO_ACTIVE_QUESTION_GROUP", "no active question group configured for this test type")
	ErrInvalidStateTransition  = NewError(KindState, "INVALID_STATE_TRANSITION", "operation not allowed in the current test status")
	ErrInvalidQuestionSnapshot = NewError(KindValidation, "INVALID_QUESTION_SNAPSHOT", "question does not belong to this test")
	ErrInvalidAnswerSelection  = NewError(KindValidation, "INVALID_ANSWER_SELECTION", "invalid answer selection")
	ErrInvalidVideo            = NewError(KindValidation, "INVALID_VIDEO", "invalid video upload")
	ErrResponseNotFound        = NewError(KindNotFound, "RESPONSE_NOT_FOUND", "response not found")
)

// Question bank and group errors
var (
	ErrUnsupportedTestType       = NewError(KindValidation, "UNSUPPORTED_TEST_TYPE", "test type has no configured question count")
	ErrInvalidQuestionCount      = NewError(KindValidation, "INVALID_QUESTION_COUNT", "question count does not match the required count for this test type")
	ErrDuplicateGroupOrder       = NewError(KindValidation, "DUPLICATE_GROUP_ORDER", "question order indices must be unique")
	ErrInvalidGroupOrder         = NewError(KindValidation, "INVALID_GROUP_ORDER", "question order indices must be positive")
	ErrGroupNotFound             = NewError(KindNotFound, "GROUP_NOT_FOUND", "question group not found")
	ErrCannotDeactivateOnlyGroup = NewError(KindConflict, "CANNOT_DEACTIVATE_ONLY_GROUP", "cannot deactivate the only active group of a test type")
	ErrGroupInUse                = NewError(KindConflict, "GROUP_IN_USE", "question group is referenced by test instances")
	ErrInvalidQuestionIDs        = NewError(KindValidation, "INVALID_QUESTION_IDS", "question ids must match the group's questions exactly")
	ErrDuplicateOrder            = NewError(KindConflict, "DUPLICATE_ORDER", "target positions must be unique")
	ErrQuestionTemplateNotFound  = NewError(KindNotFound, "QUESTION_TEMPLATE_NOT_FOUND", "question template not found")
	ErrInvalidQuestionTemplate   = NewError(KindValidation, "INVALID_QUESTION_TEMPLATE", "invalid question template")
)

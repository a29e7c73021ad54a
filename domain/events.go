package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Candidate authentication events
	TokenRequestedEvent AuditEventType = "ACCESS_CODE_REQUESTED"
	TokenValidatedEvent AuditEventType = "ACCESS_CODE_VALIDATED"
	TokenFailureEvent   AuditEventType = "ACCESS_CODE_FAILED"
	AccountLockedEvent  AuditEventType = "ACCOUNT_LOCKED"

	// Test lifecycle events
	TestCreatedEvent   AuditEventType = "TEST_CREATED"
	TestStartedEvent   AuditEventType = "TEST_STARTED"
	TestSubmittedEvent AuditEventType = "TEST_SUBMITTED"

	// Admin events
	AdminLoginEvent     AuditEventType = "ADMIN_LOGIN"
	GroupActivatedEvent AuditEventType = "QUESTION_GROUP_ACTIVATED"
	AccessDeniedEvent   AuditEventType = "ACCESS_DENIED"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	UserID    uint                   `json:"user_id,omitempty"`
	CPF       string                 `json:"cpf,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent) error
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, at time.Time) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Timestamp: at.UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithUser sets the acting user
func (e *AuditEvent) WithUser(userID uint) *AuditEvent {
	e.UserID = userID
	return e
}

// WithCPF records the CPF masked down to its last two digits
func (e *AuditEvent) WithCPF(cpf string) *AuditEvent {
	if len(cpf) > 2 {
		e.CPF = "*********" + cpf[len(cpf)-2:]
	}
	return e
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithClient sets client information
func (e *AuditEvent) WithClient(ip, userAgent string) *AuditEvent {
	e.IPAddress = ip
	e.UserAgent = userAgent
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}

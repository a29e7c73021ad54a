package mocks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
)

// MockCodeGenerator implements domain.CodeGenerator returning a fixed code unless Codes is set
type MockCodeGenerator struct {
	Code  string
	Codes []string
	Err   error

	mu sync.Mutex
	n  int
}

// NewMockCodeGenerator returns a generator that always yields code
func NewMockCodeGenerator(code string) *MockCodeGenerator {
	return &MockCodeGenerator{Code: code}
}

// Generate returns the next configured code
func (m *MockCodeGenerator) Generate() (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Codes) > 0 {
		code := m.Codes[m.n%len(m.Codes)]
		m.n++
		return code, nil
	}
	return m.Code, nil
}

// MockLocker implements domain.Locker with an in-process mutex per key
type MockLocker struct {
	AcquireFunc func(ctx context.Context, key string, ttl time.Duration) (func(), error)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	Keys  []string
}

// NewMockLocker creates a new MockLocker
func NewMockLocker() *MockLocker {
	return &MockLocker{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks key until the returned func is called
func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

// MockVideoStorage implements domain.VideoStorage in memory
type MockVideoStorage struct {
	UploadFunc func(ctx context.Context, key string, content io.Reader, size int64, contentType string) (string, error)

	mu      sync.Mutex
	Objects map[string][]byte
}

// NewMockVideoStorage creates a new MockVideoStorage
func NewMockVideoStorage() *MockVideoStorage {
	return &MockVideoStorage{Objects: make(map[string][]byte)}
}

// Upload stores the content under key
func (m *MockVideoStorage) Upload(ctx context.Context, key string, content io.Reader, size int64, contentType string) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, key, content, size, contentType)
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.Objects[key] = data
	m.mu.Unlock()
	return fmt.Sprintf("/videos/%s", key), nil
}

// Delete removes key
func (m *MockVideoStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.Objects, key)
	m.mu.Unlock()
	return nil
}

// MockAIAgent implements domain.AIAgent and records submissions
type MockAIAgent struct {
	SubmitVideoFunc func(ctx context.Context, req domain.VideoScoringRequest) error

	mu          sync.Mutex
	Submissions []domain.VideoScoringRequest
}

// NewMockAIAgent creates a new MockAIAgent
func NewMockAIAgent() *MockAIAgent {
	return &MockAIAgent{}
}

// SubmitVideo records req and delegates to SubmitVideoFunc when set
func (m *MockAIAgent) SubmitVideo(ctx context.Context, req domain.VideoScoringRequest) error {
	m.mu.Lock()
	m.Submissions = append(m.Submissions, req)
	m.mu.Unlock()
	if m.SubmitVideoFunc != nil {
		return m.SubmitVideoFunc(ctx, req)
	}
	return nil
}

// Submitted returns a copy of the recorded scoring requests
func (m *MockAIAgent) Submitted() []domain.VideoScoringRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.VideoScoringRequest(nil), m.Submissions...)
}

// MockAuditLogger implements domain.AuditLogger and keeps every event
type MockAuditLogger struct {
	mu     sync.Mutex
	Events []domain.AuditEvent
}

// NewMockAuditLogger creates a new MockAuditLogger
func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// LogEvent records the event
func (m *MockAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()
	return nil
}

// Count returns how many events of the given type were logged
func (m *MockAuditLogger) Count(eventType domain.AuditEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

// Compile-time interface compliance verification
var (
	_ domain.CodeGenerator = (*MockCodeGenerator)(nil)
	_ domain.Locker        = (*MockLocker)(nil)
	_ domain.VideoStorage  = (*MockVideoStorage)(nil)
	_ domain.AIAgent       = (*MockAIAgent)(nil)
	_ domain.AuditLogger   = (*MockAuditLogger)(nil)
)

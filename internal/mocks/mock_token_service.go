package mocks

import (
	"fmt"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateCandidateTokenFunc func(candidate *domain.Candidate) (string, error)
	GenerateAdminTokenFunc     func(admin *domain.Admin, sessionID string) (string, error)
	ValidateAccessTokenFunc    func(token string) (*domain.TokenClaims, error)
	TTL                        time.Duration
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTL: 15 * time.Minute}
}

// GenerateCandidateToken generates an access token for the candidate
func (m *MockTokenService) GenerateCandidateToken(candidate *domain.Candidate) (string, error) {
	if m.GenerateCandidateTokenFunc != nil {
		return m.GenerateCandidateTokenFunc(candidate)
	}
	return fmt.Sprintf("access_token_candidate_%d", candidate.ID), nil
}

// GenerateAdminToken generates an access token for the admin
func (m *MockTokenService) GenerateAdminToken(admin *domain.Admin, sessionID string) (string, error) {
	if m.GenerateAdminTokenFunc != nil {
		return m.GenerateAdminTokenFunc(admin, sessionID)
	}
	return fmt.Sprintf("access_token_admin_%d_%s", admin.ID, sessionID), nil
}

// ValidateAccessToken validates an access token and returns claims
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	if token == "" {
		return nil, domain.ErrAccessTokenInvalid
	}

	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:    1,
		Role:      domain.RoleCandidate,
		IssuedAt:  now,
		ExpiresAt: now + int64(m.TTL.Seconds()),
	}, nil
}

// AccessTokenTTL returns the configured lifetime
func (m *MockTokenService) AccessTokenTTL() time.Duration {
	return m.TTL
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)

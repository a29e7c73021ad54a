package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// AdminAuthServiceImpl implements domain.AdminAuthService
type AdminAuthServiceImpl struct {
	adminRepo   domain.AdminRepository
	sessionRepo domain.SessionRepository
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	audit       domain.AuditLogger
	clock       clockwork.Clock
	logger      *zap.Logger
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(
	adminRepo domain.AdminRepository,
	sessionRepo domain.SessionRepository,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	audit domain.AuditLogger,
	clock clockwork.Clock,
	logger *zap.Logger,
) domain.AdminAuthService {
	return &AdminAuthServiceImpl{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		audit:       audit,
		clock:       clock,
		logger:      logger,
	}
}

// Login implements domain.AdminAuthService
func (s *AdminAuthServiceImpl) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = strings.TrimSpace(email)

	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			s.recordLogin(ctx, 0, domain.ErrInvalidCredentials)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}

	if !s.passwordSvc.Verify(admin.PasswordHash, password) {
		s.recordLogin(ctx, admin.ID, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if !admin.IsActive {
		s.recordLogin(ctx, admin.ID, domain.ErrAdminInactive)
		return nil, domain.ErrAdminInactive
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:        "sess_" + uuid.NewString(),
		UserID:    admin.ID,
		Role:      domain.RoleAdmin,
		ExpiresAt: now.Add(s.tokenSvc.AccessTokenTTL()),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, err := s.tokenSvc.GenerateAdminToken(admin, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.recordLogin(ctx, admin.ID, nil)
	return &domain.AuthResult{
		Admin:       admin,
		AccessToken: accessToken,
		SessionID:   session.ID,
		ExpiresIn:   int64(s.tokenSvc.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout implements domain.AdminAuthService
func (s *AdminAuthServiceImpl) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Delete(ctx, sessionID)
}

// GetProfile implements domain.AdminAuthService
func (s *AdminAuthServiceImpl) GetProfile(ctx context.Context, adminID uint) (*domain.Admin, error) {
	return s.adminRepo.FindByID(ctx, adminID)
}

func (s *AdminAuthServiceImpl) recordLogin(ctx context.Context, adminID uint, failure error) {
	if s.audit == nil {
		return
	}
	event := domain.NewAuditEvent(domain.AdminLoginEvent, s.clock.Now()).WithUser(adminID)
	if failure != nil {
		event.WithError(failure)
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("failed to write audit event", zap.Error(err))
	}
}

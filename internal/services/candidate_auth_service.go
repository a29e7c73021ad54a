package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/metrics"
	"go.uber.org/zap"
)

// CandidateAuthConfig holds the access-code policy
type CandidateAuthConfig struct {
	CodeTTL           time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	RefreshTokenTTL   time.Duration
	LockTTL           time.Duration
	NotifyTimeout     time.Duration
}

// DefaultCandidateAuthConfig returns the production policy: 15 minute codes, lockout for
// 10 minutes after 10 wrong codes
func DefaultCandidateAuthConfig() CandidateAuthConfig {
	return CandidateAuthConfig{
		CodeTTL:           15 * time.Minute,
		MaxFailedAttempts: 10,
		LockoutDuration:   10 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		LockTTL:           10 * time.Second,
		NotifyTimeout:     10 * time.Second,
	}
}

// CandidateAuthServiceImpl implements domain.CandidateAuthService
type CandidateAuthServiceImpl struct {
	candidateRepo domain.CandidateRepository
	tokenRepo     domain.AuthTokenRepository
	refreshRepo   domain.RefreshTokenRepository
	codeGen       domain.CodeGenerator
	tokenSvc      domain.TokenService
	notifier      domain.NotificationService
	locker        domain.Locker
	audit         domain.AuditLogger
	metrics       *metrics.Metrics
	clock         clockwork.Clock
	logger        *zap.Logger
	config        CandidateAuthConfig
}

// NewCandidateAuthService creates a new candidate authentication service
func NewCandidateAuthService(
	candidateRepo domain.CandidateRepository,
	tokenRepo domain.AuthTokenRepository,
	refreshRepo domain.RefreshTokenRepository,
	codeGen domain.CodeGenerator,
	tokenSvc domain.TokenService,
	notifier domain.NotificationService,
	locker domain.Locker,
	audit domain.AuditLogger,
	m *metrics.Metrics,
	clock clockwork.Clock,
	logger *zap.Logger,
	config CandidateAuthConfig,
) domain.CandidateAuthService {
	return &CandidateAuthServiceImpl{
		candidateRepo: candidateRepo,
		tokenRepo:     tokenRepo,
		refreshRepo:   refreshRepo,
		codeGen:       codeGen,
		tokenSvc:      tokenSvc,
		notifier:      notifier,
		locker:        locker,
		audit:         audit,
		metrics:       m,
		clock:         clock,
		logger:        logger,
		config:        config,
	}
}

// RequestToken implements domain.CandidateAuthService
func (s *CandidateAuthServiceImpl) RequestToken(ctx context.Context, cpf, email, ipAddress, userAgent string) (*domain.TokenRequestResult, error) {
	cpf = domain.NormalizeCPF(cpf)
	if !domain.IsValidCPF(cpf) {
		return nil, domain.ErrInvalidCPF
	}
	email = strings.TrimSpace(email)

	release, err := s.locker.Acquire(ctx, "cpf:"+cpf, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cpf: %w", err)
	}
	token, candidate, err := s.issueToken(ctx, cpf, email, ipAddress, userAgent)
	release()
	if err != nil {
		s.logAudit(ctx, domain.NewAuditEvent(domain.TokenRequestedEvent, s.clock.Now()).
			WithCPF(cpf).WithClient(ipAddress, userAgent).WithError(err))
		return nil, err
	}

	// the token is committed; delivery problems must not undo it
	s.sendCode(ctx, candidate, token)

	s.metrics.IncAuth(metrics.AuthCodeIssued)
	s.logAudit(ctx, domain.NewAuditEvent(domain.TokenRequestedEvent, s.clock.Now()).
		WithCPF(cpf).WithUser(candidate.ID).WithClient(ipAddress, userAgent))

	masked := domain.MaskEmail(candidate.Email)
	return &domain.TokenRequestResult{
		MaskedEmail:      masked,
		Message:          fmt.Sprintf("Código de acesso enviado para %s", masked),
		ExpiresAt:        token.ExpiresAt,
		ExpiresInMinutes: int(s.config.CodeTTL.Minutes()),
	}, nil
}

func (s *CandidateAuthServiceImpl) issueToken(ctx context.Context, cpf, email, ipAddress, userAgent string) (*domain.CandidateAuthToken, *domain.Candidate, error) {
	now := s.clock.Now()
	if err := s.ensureUnlocked(ctx, cpf, now); err != nil {
		return nil, nil, err
	}
	if email == "" {
		return nil, nil, domain.ErrInvalidEmail
	}

	candidate, err := s.candidateRepo.FindByCPF(ctx, cpf)
	if err != nil {
		return nil, nil, err
	}
	if !strings.EqualFold(email, strings.TrimSpace(candidate.Email)) {
		return nil, nil, domain.ErrEmailMismatch
	}

	code, err := s.codeGen.Generate()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access code: %w", err)
	}

	token := &domain.CandidateAuthToken{
		CPF:       cpf,
		Email:     candidate.Email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.CodeTTL),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := s.tokenRepo.CreateToken(ctx, token); err != nil {
		return nil, nil, fmt.Errorf("failed to store access code: %w", err)
	}
	return token, candidate, nil
}

// ValidateToken implements domain.CandidateAuthService
func (s *CandidateAuthServiceImpl) ValidateToken(ctx context.Context, cpf, code string) (*domain.TokenValidationResult, error) {
	cpf = domain.NormalizeCPF(cpf)
	if !domain.IsValidCPF(cpf) {
		return nil, domain.ErrInvalidCPF
	}

	release, err := s.locker.Acquire(ctx, "cpf:"+cpf, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cpf: %w", err)
	}
	defer release()

	now := s.clock.Now()
	if err := s.ensureUnlocked(ctx, cpf, now); err != nil {
		return nil, err
	}

	token, err := s.tokenRepo.GetCurrentToken(ctx, cpf)
	if err != nil {
		return nil, err
	}
	if token.IsExpired(now) {
		return nil, domain.ErrTokenExpired
	}

	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(token.Code)) != 1 {
		return nil, s.rejectCode(ctx, token, now)
	}

	if err := s.tokenRepo.MarkConsumed(ctx, token.ID, now); err != nil {
		return nil, err
	}
	if err := s.tokenRepo.ClearLockout(ctx, cpf); err != nil {
		return nil, fmt.Errorf("failed to clear lockout: %w", err)
	}

	candidate, err := s.candidateRepo.FindByCPF(ctx, cpf)
	if err != nil {
		return nil, err
	}
	result, err := s.issueSession(ctx, candidate)
	if err != nil {
		return nil, err
	}

	s.metrics.IncAuth(metrics.AuthCodeValidated)
	s.logAudit(ctx, domain.NewAuditEvent(domain.TokenValidatedEvent, now).WithCPF(cpf).WithUser(candidate.ID))
	return result, nil
}

// rejectCode counts a wrong code and returns the error the caller sees
func (s *CandidateAuthServiceImpl) rejectCode(ctx context.Context, token *domain.CandidateAuthToken, now time.Time) error {
	attempts, lockedUntil, err := s.tokenRepo.RegisterFailedAttempt(ctx, token.ID, s.config.MaxFailedAttempts, now.Add(s.config.LockoutDuration))
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if lockedUntil != nil {
		s.metrics.IncAuth(metrics.AuthLockout)
		s.logAudit(ctx, domain.NewAuditEvent(domain.AccountLockedEvent, now).
			WithCPF(token.CPF).
			WithMetadata("failed_attempts", attempts).
			WithError(domain.ErrAccountLocked))
		s.alertLockout(ctx, token.CPF, *lockedUntil)
		return domain.ErrAccountLocked.WithLockedUntil(*lockedUntil)
	}

	s.metrics.IncAuth(metrics.AuthCodeRejected)
	s.logAudit(ctx, domain.NewAuditEvent(domain.TokenFailureEvent, now).
		WithCPF(token.CPF).
		WithMetadata("failed_attempts", attempts).
		WithError(domain.ErrInvalidToken))
	return domain.ErrInvalidToken.WithAttemptsRemaining(s.config.MaxFailedAttempts - attempts)
}

// ensureUnlocked fails while a lockout is in force and resets the counter once it has lapsed
func (s *CandidateAuthServiceImpl) ensureUnlocked(ctx context.Context, cpf string, now time.Time) error {
	lockedUntil, err := s.tokenRepo.GetLockout(ctx, cpf)
	if err != nil {
		return fmt.Errorf("failed to read lockout: %w", err)
	}
	if lockedUntil == nil {
		return nil
	}
	if lockedUntil.After(now) {
		return domain.ErrAccountLocked.WithLockedUntil(*lockedUntil)
	}
	if err := s.tokenRepo.ClearLockout(ctx, cpf); err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

// CheckLockoutStatus implements domain.CandidateAuthService
func (s *CandidateAuthServiceImpl) CheckLockoutStatus(ctx context.Context, cpf string) (*domain.LockoutStatus, error) {
	cpf = domain.NormalizeCPF(cpf)
	if !domain.IsValidCPF(cpf) {
		return nil, domain.ErrInvalidCPF
	}
	lockedUntil, err := s.tokenRepo.GetLockout(ctx, cpf)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockout: %w", err)
	}
	status := domain.NewLockoutStatus(lockedUntil, s.clock.Now())
	return &status, nil
}

// RefreshAccessToken implements domain.CandidateAuthService. The presented refresh token
// is rotated.
func (s *CandidateAuthServiceImpl) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenValidationResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrRefreshTokenInvalid
	}
	candidateID, err := s.refreshRepo.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	candidate, err := s.candidateRepo.FindByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, domain.ErrCandidateNotFound) {
			return nil, domain.ErrRefreshTokenInvalid
		}
		return nil, err
	}
	if err := s.refreshRepo.Revoke(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return s.issueSession(ctx, candidate)
}

func (s *CandidateAuthServiceImpl) issueSession(ctx context.Context, candidate *domain.Candidate) (*domain.TokenValidationResult, error) {
	accessToken, err := s.tokenSvc.GenerateCandidateToken(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.refreshRepo.Store(ctx, refreshToken, candidate.ID, s.config.RefreshTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &domain.TokenValidationResult{
		AccessToken:         accessToken,
		RefreshToken:        refreshToken,
		ExpiresIn:           int64(s.tokenSvc.AccessTokenTTL().Seconds()),
		Candidate:           candidate,
		RequiresLGPDConsent: !candidate.LGPDAccepted,
	}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *CandidateAuthServiceImpl) sendCode(ctx context.Context, candidate *domain.Candidate, token *domain.CandidateAuthToken) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.NotifyTimeout)
	defer cancel()

	body := fmt.Sprintf(
		"Olá %s,\n\nSeu código de acesso é %s.\nEle expira em %d minutos.\n\nSe você não solicitou este código, ignore esta mensagem.",
		candidate.Name, token.Code, int(s.config.CodeTTL.Minutes()),
	)
	if err := s.notifier.SendEmail(sendCtx, candidate.Email, "Seu código de acesso", body); err != nil {
		s.logger.Warn("failed to send access code email",
			zap.Uint("candidate_id", candidate.ID),
			zap.Error(err))
	}
}

// alertLockout tells the candidate by SMS that their account was locked. Best effort.
func (s *CandidateAuthServiceImpl) alertLockout(ctx context.Context, cpf string, lockedUntil time.Time) {
	candidate, err := s.candidateRepo.FindByCPF(ctx, cpf)
	if err != nil || candidate.Phone == "" {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.NotifyTimeout)
	defer cancel()

	msg := fmt.Sprintf("Seu acesso foi bloqueado por %d minutos após várias tentativas inválidas.",
		domain.RemainingMinutes(lockedUntil, s.clock.Now()))
	if err := s.notifier.SendSMS(sendCtx, candidate.Phone, msg); err != nil {
		s.logger.Warn("failed to send lockout alert",
			zap.Uint("candidate_id", candidate.ID),
			zap.Error(err))
	}
}

func (s *CandidateAuthServiceImpl) logAudit(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("failed to write audit event", zap.Error(err))
	}
}

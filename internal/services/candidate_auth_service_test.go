package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/auth"
	"github.com/kai426/Dignus-sub001/internal/infrastructure/repositories"
	"github.com/kai426/Dignus-sub001/internal/metrics"
	"github.com/kai426/Dignus-sub001/internal/mocks"
	"github.com/kai426/Dignus-sub001/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testCode = "482913"

type candidateAuthHarness struct {
	svc       domain.CandidateAuthService
	db        *gorm.DB
	tokenRepo domain.AuthTokenRepository
	tokenSvc  domain.TokenService
	codeGen   *mocks.MockCodeGenerator
	notifier  *mocks.MockNotificationService
	audit     *mocks.MockAuditLogger
	metrics   *metrics.Metrics
	clock     *clockwork.FakeClock
}

func newCandidateAuthHarness(t *testing.T) *candidateAuthHarness {
	t.Helper()
	db := testutil.NewTestDB(t)
	rdb, _ := testutil.NewTestRedis(t)
	clock := clockwork.NewFakeClockAt(testutil.BaseTime)

	h := &candidateAuthHarness{
		db:        db,
		tokenRepo: repositories.NewAuthTokenRepository(db),
		tokenSvc:  auth.NewJWTService("test-secret", "dignus", 15*time.Minute, clock),
		codeGen:   mocks.NewMockCodeGenerator(testCode),
		notifier:  mocks.NewMockNotificationService(),
		audit:     mocks.NewMockAuditLogger(),
		metrics:   metrics.New(),
		clock:     clock,
	}
	h.svc = NewCandidateAuthService(
		repositories.NewCandidateRepository(db),
		h.tokenRepo,
		repositories.NewRefreshTokenRepository(rdb),
		h.codeGen,
		h.tokenSvc,
		h.notifier,
		mocks.NewMockLocker(),
		h.audit,
		h.metrics,
		clock,
		zap.NewNop(),
		DefaultCandidateAuthConfig(),
	)
	return h
}

func expectDomainError(t *testing.T, err error, want *domain.Error) *domain.Error {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected error %v, got %v", want, err)
	}
	var de *domain.Error
	errors.As(err, &de)
	return de
}

func TestCandidateAuthServiceImpl_RequestToken(t *testing.T) {
	tests := []struct {
		name          string
		cpf           string
		email         string
		setup         func(t *testing.T, h *candidateAuthHarness)
		expectedError error
	}{
		{
			name:  "issues a code for matching cpf and email",
			cpf:   testutil.ValidCPF,
			email: "x@y.com",
		},
		{
			name:  "formatted cpf and email case are accepted",
			cpf:   "529.982.247-25",
			email: "X@Y.COM",
		},
		{
			name:          "invalid cpf",
			cpf:           "11111111111",
			email:         "x@y.com",
			expectedError: domain.ErrInvalidCPF,
		},
		{
			name:          "empty email",
			cpf:           testutil.ValidCPF,
			email:         "  ",
			expectedError: domain.ErrInvalidEmail,
		},
		{
			name:          "unknown candidate",
			cpf:           "11144477735",
			email:         "x@y.com",
			expectedError: domain.ErrCandidateNotFound,
		},
		{
			name:          "email mismatch",
			cpf:           testutil.ValidCPF,
			email:         "other@y.com",
			expectedError: domain.ErrEmailMismatch,
		},
		{
			name:  "locked cpf is rejected before the candidate lookup",
			cpf:   testutil.ValidCPF,
			email: "other@y.com",
			setup: func(t *testing.T, h *candidateAuthHarness) {
				lockCPF(t, h)
			},
			expectedError: domain.ErrAccountLocked,
		},
		{
			name:  "locked cpf with an empty email reports the lock",
			cpf:   testutil.ValidCPF,
			email: "",
			setup: func(t *testing.T, h *candidateAuthHarness) {
				lockCPF(t, h)
			},
			expectedError: domain.ErrAccountLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCandidateAuthHarness(t)
			testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
			if tt.setup != nil {
				tt.setup(t, h)
			}
			emailsBefore := len(h.notifier.Emails)

			result, err := h.svc.RequestToken(context.Background(), tt.cpf, tt.email, "10.0.0.1", "go-test")

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected error %v, got %v", tt.expectedError, err)
				}
				if result != nil {
					t.Error("expected nil result on error")
				}
				if len(h.notifier.Emails) != emailsBefore {
					t.Error("expected no email to be sent")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.MaskedEmail != domain.MaskEmail("x@y.com") {
				t.Errorf("expected masked email %q, got %q", domain.MaskEmail("x@y.com"), result.MaskedEmail)
			}
			if !strings.Contains(result.Message, result.MaskedEmail) {
				t.Errorf("expected message to mention %q, got %q", result.MaskedEmail, result.Message)
			}
			if result.ExpiresInMinutes != 15 {
				t.Errorf("expected 15 minutes, got %d", result.ExpiresInMinutes)
			}
			if !result.ExpiresAt.Equal(testutil.BaseTime.Add(15 * time.Minute)) {
				t.Errorf("unexpected expiry %v", result.ExpiresAt)
			}

			email, ok := h.notifier.LastEmail()
			if !ok {
				t.Fatal("expected an email")
			}
			if email.To != "x@y.com" || !strings.Contains(email.Body, testCode) {
				t.Errorf("unexpected email %+v", email)
			}
			if got := promtest.ToFloat64(h.metrics.AuthEvents.WithLabelValues(metrics.AuthCodeIssued)); got != 1 {
				t.Errorf("expected 1 issued code metric, got %v", got)
			}
		})
	}
}

func TestCandidateAuthServiceImpl_RequestTokenKeepsSingleActiveCode(t *testing.T) {
	h := newCandidateAuthHarness(t)
	testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	h.codeGen.Codes = []string{"111111", "222222", "333333"}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	var active int64
	h.db.Model(&repositories.DBAuthToken{}).
		Where("cpf = ? AND is_consumed = ? AND is_invalidated = ?", testutil.ValidCPF, false, false).
		Count(&active)
	if active != 1 {
		t.Fatalf("expected exactly one active code, got %d", active)
	}

	if _, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, "111111"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("expected superseded code to be rejected, got %v", err)
	}
	if _, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, "333333"); err != nil {
		t.Errorf("expected latest code to be accepted, got %v", err)
	}
}

func TestCandidateAuthServiceImpl_RequestTokenEmailFailureIsNotFatal(t *testing.T) {
	h := newCandidateAuthHarness(t)
	testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	h.notifier.SendEmailFunc = func(ctx context.Context, to, subject, body string) error {
		return errors.New("smtp unavailable")
	}

	if _, err := h.svc.RequestToken(context.Background(), testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("expected request to succeed, got %v", err)
	}
	if _, err := h.tokenRepo.GetCurrentToken(context.Background(), testutil.ValidCPF); err != nil {
		t.Errorf("expected code to stay stored, got %v", err)
	}
}

func TestCandidateAuthServiceImpl_ValidateToken(t *testing.T) {
	h := newCandidateAuthHarness(t)
	candidate := testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", false)
	ctx := context.Background()

	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	h.clock.Advance(5 * time.Minute)

	result, err := h.svc.ValidateToken(ctx, "529.982.247-25", " "+testCode+" ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Candidate.ID != candidate.ID {
		t.Errorf("expected candidate %d, got %d", candidate.ID, result.Candidate.ID)
	}
	if !result.RequiresLGPDConsent {
		t.Error("expected LGPD consent to be required")
	}
	if result.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("unexpected expires_in %d", result.ExpiresIn)
	}
	if result.RefreshToken == "" {
		t.Error("expected a refresh token")
	}

	claims, err := h.tokenSvc.ValidateAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("access token did not validate: %v", err)
	}
	if claims.UserID != candidate.ID || claims.CPF != testutil.ValidCPF || claims.Role != domain.RoleCandidate {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, testCode); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected consumed code to be gone, got %v", err)
	}
	if n := h.audit.Count(domain.TokenValidatedEvent); n != 1 {
		t.Errorf("expected 1 validation audit event, got %d", n)
	}
}

func TestCandidateAuthServiceImpl_ValidateTokenErrors(t *testing.T) {
	tests := []struct {
		name          string
		cpf           string
		code          string
		request       bool
		advance       time.Duration
		expectedError error
	}{
		{"invalid cpf", "123", testCode, true, 0, domain.ErrInvalidCPF},
		{"no code issued", testutil.ValidCPF, testCode, false, 0, domain.ErrTokenNotFound},
		{"expired code", testutil.ValidCPF, testCode, true, 15 * time.Minute, domain.ErrTokenExpired},
		{"wrong code", testutil.ValidCPF, "000000", true, 0, domain.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCandidateAuthHarness(t)
			testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
			ctx := context.Background()
			if tt.request {
				if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
					t.Fatalf("request failed: %v", err)
				}
			}
			h.clock.Advance(tt.advance)

			_, err := h.svc.ValidateToken(ctx, tt.cpf, tt.code)
			if !errors.Is(err, tt.expectedError) {
				t.Errorf("expected error %v, got %v", tt.expectedError, err)
			}
		})
	}
}

func TestCandidateAuthServiceImpl_ExpiredCodeDoesNotCountAsFailure(t *testing.T) {
	h := newCandidateAuthHarness(t)
	testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	ctx := context.Background()

	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	h.clock.Advance(15 * time.Minute)

	if _, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, "000000"); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	token, err := h.tokenRepo.GetCurrentToken(ctx, testutil.ValidCPF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.FailedAttempts != 0 {
		t.Errorf("expected no failed attempts, got %d", token.FailedAttempts)
	}
}

func TestCandidateAuthServiceImpl_Lockout(t *testing.T) {
	h := newCandidateAuthHarness(t)
	testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	ctx := context.Background()

	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	for i := 1; i <= 9; i++ {
		_, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, "000000")
		de := expectDomainError(t, err, domain.ErrInvalidToken)
		if de.AttemptsRemaining == nil || *de.AttemptsRemaining != 10-i {
			t.Fatalf("attempt %d: expected %d attempts remaining, got %v", i, 10-i, de.AttemptsRemaining)
		}
	}

	_, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, "000000")
	de := expectDomainError(t, err, domain.ErrAccountLocked)
	wantUntil := testutil.BaseTime.Add(10 * time.Minute)
	if de.LockedUntil == nil || !de.LockedUntil.Equal(wantUntil) {
		t.Fatalf("expected locked until %v, got %v", wantUntil, de.LockedUntil)
	}

	// the correct code is refused while locked
	if _, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, testCode); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected new codes to be refused while locked, got %v", err)
	}

	if len(h.notifier.SMS) != 1 || h.notifier.SMS[0].To != "+5511999990000" {
		t.Errorf("expected one lockout SMS, got %+v", h.notifier.SMS)
	}
	if n := h.audit.Count(domain.AccountLockedEvent); n != 1 {
		t.Errorf("expected 1 lockout audit event, got %d", n)
	}
	if got := promtest.ToFloat64(h.metrics.AuthEvents.WithLabelValues(metrics.AuthLockout)); got != 1 {
		t.Errorf("expected 1 lockout metric, got %v", got)
	}

	h.clock.Advance(10 * time.Minute)
	if _, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, testCode); err != nil {
		t.Fatalf("expected success once the lockout lapsed, got %v", err)
	}
	status, err := h.svc.CheckLockoutStatus(ctx, testutil.ValidCPF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.IsLocked {
		t.Error("expected lockout to be cleared")
	}
}

func TestCandidateAuthServiceImpl_ReissuedCodeResetsFailureCount(t *testing.T) {
	h := newCandidateAuthHarness(t)
	testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	ctx := context.Background()

	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	for i := 0; i < 9; i++ {
		h.svc.ValidateToken(ctx, testutil.ValidCPF, "000000")
	}
	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request after nine misses failed: %v", err)
	}

	_, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, "000000")
	de := expectDomainError(t, err, domain.ErrInvalidToken)
	if de.AttemptsRemaining == nil || *de.AttemptsRemaining != 9 {
		t.Errorf("expected 9 attempts remaining on the new code, got %v", de.AttemptsRemaining)
	}

	status, err := h.svc.CheckLockoutStatus(ctx, testutil.ValidCPF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.IsLocked {
		t.Error("one miss on a new code must not lock the CPF")
	}
}

func TestCandidateAuthServiceImpl_CheckLockoutStatus(t *testing.T) {
	h := newCandidateAuthHarness(t)
	testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	ctx := context.Background()

	status, err := h.svc.CheckLockoutStatus(ctx, testutil.ValidCPF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.IsLocked || status.RemainingMinutes != 0 {
		t.Errorf("expected unlocked status, got %+v", status)
	}

	lockCPF(t, h)
	h.clock.Advance(9*time.Minute + 30*time.Second)

	status, err = h.svc.CheckLockoutStatus(ctx, testutil.ValidCPF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsLocked {
		t.Fatal("expected locked status")
	}
	if status.RemainingMinutes != 1 {
		t.Errorf("expected 1 remaining minute, got %d", status.RemainingMinutes)
	}

	if _, err := h.svc.CheckLockoutStatus(ctx, "000"); !errors.Is(err, domain.ErrInvalidCPF) {
		t.Errorf("expected ErrInvalidCPF, got %v", err)
	}
}

func TestCandidateAuthServiceImpl_RefreshAccessToken(t *testing.T) {
	h := newCandidateAuthHarness(t)
	candidate := testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	ctx := context.Background()

	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	session, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, testCode)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	refreshed, err := h.svc.RefreshAccessToken(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.Candidate.ID != candidate.ID {
		t.Errorf("expected candidate %d, got %d", candidate.ID, refreshed.Candidate.ID)
	}
	if refreshed.RefreshToken == session.RefreshToken {
		t.Error("expected the refresh token to rotate")
	}

	if _, err := h.svc.RefreshAccessToken(ctx, session.RefreshToken); !errors.Is(err, domain.ErrRefreshTokenInvalid) {
		t.Errorf("expected reused refresh token to fail, got %v", err)
	}
	if _, err := h.svc.RefreshAccessToken(ctx, ""); !errors.Is(err, domain.ErrRefreshTokenInvalid) {
		t.Errorf("expected empty refresh token to fail, got %v", err)
	}
}

func TestCandidateAuthServiceImpl_ConcurrentFailuresLockOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrency test in short mode")
	}

	h := newCandidateAuthHarness(t)
	testutil.CreateCandidate(t, h.db, testutil.ValidCPF, "x@y.com", true)
	ctx := context.Background()
	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	const attempts = 15
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
		locked  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.ValidateToken(ctx, testutil.ValidCPF, "000000")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, domain.ErrInvalidToken):
				invalid++
			case errors.Is(err, domain.ErrAccountLocked):
				locked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if invalid != 9 {
		t.Errorf("expected 9 invalid code responses, got %d", invalid)
	}
	if locked != attempts-9 {
		t.Errorf("expected %d locked responses, got %d", attempts-9, locked)
	}
	if n := h.audit.Count(domain.AccountLockedEvent); n != 1 {
		t.Errorf("expected the lockout to be recorded once, got %d", n)
	}
}

// lockCPF drives the current code of ValidCPF to the lockout threshold
func lockCPF(t *testing.T, h *candidateAuthHarness) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.svc.RequestToken(ctx, testutil.ValidCPF, "x@y.com", "", ""); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		h.svc.ValidateToken(ctx, testutil.ValidCPF, "000000")
	}
	status, err := h.svc.CheckLockoutStatus(ctx, testutil.ValidCPF)
	if err != nil || !status.IsLocked {
		t.Fatalf("expected cpf to be locked, got %+v, %v", status, err)
	}
}

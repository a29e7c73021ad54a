package domain

import (
	"testing"
	"time"
)

func TestCandidateAuthToken_State(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name         string
		token        CandidateAuthToken
		expectActive bool
		expectLocked bool
		description  string
	}{
		{
			name:         "fresh token",
			token:        CandidateAuthToken{ExpiresAt: now.Add(15 * time.Minute)},
			expectActive: true,
			description:  "not consumed, not invalidated, not expired",
		},
		{
			name:         "expires exactly now",
			token:        CandidateAuthToken{ExpiresAt: now},
			expectActive: false,
			description:  "expiry instant is exclusive",
		},
		{
			name:         "consumed",
			token:        CandidateAuthToken{ExpiresAt: future, IsConsumed: true},
			expectActive: false,
			description:  "consumed tokens cannot be reused",
		},
		{
			name:         "invalidated",
			token:        CandidateAuthToken{ExpiresAt: future, IsInvalidated: true},
			expectActive: false,
			description:  "replaced by a newer token",
		},
		{
			name:         "locked",
			token:        CandidateAuthToken{ExpiresAt: future, LockedUntil: &future},
			expectActive: true,
			expectLocked: true,
			description:  "lockout window in force",
		},
		{
			name:         "lockout elapsed",
			token:        CandidateAuthToken{ExpiresAt: future, LockedUntil: &past},
			expectActive: true,
			expectLocked: false,
			description:  "lockout in the past no longer applies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.IsActive(now); got != tt.expectActive {
				t.Errorf("IsActive = %v, want %v (%s)", got, tt.expectActive, tt.description)
			}
			if got := tt.token.IsLocked(now); got != tt.expectLocked {
				t.Errorf("IsLocked = %v, want %v (%s)", got, tt.expectLocked, tt.description)
			}
		})
	}
}

func TestNewLockoutStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		lockedUntil     *time.Time
		expectLocked    bool
		expectRemaining int
	}{
		{name: "no lockout", lockedUntil: nil},
		{name: "elapsed", lockedUntil: ptrTime(now.Add(-time.Second))},
		{name: "ends now", lockedUntil: ptrTime(now)},
		{name: "thirty seconds left", lockedUntil: ptrTime(now.Add(30 * time.Second)), expectLocked: true, expectRemaining: 1},
		{name: "exactly ten minutes", lockedUntil: ptrTime(now.Add(10 * time.Minute)), expectLocked: true, expectRemaining: 10},
		{name: "nine minutes one second", lockedUntil: ptrTime(now.Add(9*time.Minute + time.Second)), expectLocked: true, expectRemaining: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := NewLockoutStatus(tt.lockedUntil, now)
			if status.IsLocked != tt.expectLocked {
				t.Errorf("IsLocked = %v, want %v", status.IsLocked, tt.expectLocked)
			}
			if status.RemainingMinutes != tt.expectRemaining {
				t.Errorf("RemainingMinutes = %d, want %d", status.RemainingMinutes, tt.expectRemaining)
			}
			if !tt.expectLocked && status.LockedUntil != nil {
				t.Error("unlocked status should not carry a lockout time")
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

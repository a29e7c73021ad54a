package domain

import (
	"math"
	"time"
)

// Role names carried in access tokens
const (
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

// Candidate represents a registered candidate
type Candidate struct {
	ID           uint
	Name         string
	Email        string
	CPF          string
	Phone        string
	LGPDAccepted bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CandidateAuthToken is a one-time access code issued to a candidate by email
type CandidateAuthToken struct {
	ID             uint
	CPF            string
	Email          string
	Code           string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	IsConsumed     bool
	ConsumedAt     *time.Time
	IsInvalidated  bool
	FailedAttempts int
	LockedUntil    *time.Time
	IPAddress      string
	UserAgent      string
}

// IsExpired reports whether the code can no longer be exchanged
func (t *CandidateAuthToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token is neither consumed, invalidated nor expired
func (t *CandidateAuthToken) IsActive(now time.Time) bool {
	return !t.IsConsumed && !t.IsInvalidated && !t.IsExpired(now)
}

// IsLocked reports whether the token carries a lockout window still in force
func (t *CandidateAuthToken) IsLocked(now time.Time) bool {
	return t.LockedUntil != nil && t.LockedUntil.After(now)
}

// LockoutStatus is the derived lockout state of a CPF
type LockoutStatus struct {
	IsLocked         bool       `json:"is_locked"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
	RemainingMinutes int        `json:"remaining_minutes"`
}

// NewLockoutStatus derives the lockout state for lockedUntil at instant now.
// Remaining minutes round up, so 30 seconds left reports 1 minute.
func NewLockoutStatus(lockedUntil *time.Time, now time.Time) LockoutStatus {
	if lockedUntil == nil || !lockedUntil.After(now) {
		return LockoutStatus{}
	}
	until := *lockedUntil
	return LockoutStatus{
		IsLocked:         true,
		LockedUntil:      &until,
		RemainingMinutes: RemainingMinutes(until, now),
	}
}

// RemainingMinutes returns ceil((until - now) / 1m), never negative
func RemainingMinutes(until, now time.Time) int {
	left := until.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}

// TokenRequestResult is returned after an access code has been issued
type TokenRequestResult struct {
	MaskedEmail      string
	Message          string
	ExpiresAt        time.Time
	ExpiresInMinutes int
}

// TokenValidationResult is returned when an access code is exchanged for a session
type TokenValidationResult struct {
	AccessToken         string
	RefreshToken        string
	ExpiresIn           int64
	Candidate           *Candidate
	RequiresLGPDConsent bool
}

// Admin represents a back-office user managing question banks
type Admin struct {
	ID           uint
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthResult represents an admin authentication outcome
type AuthResult struct {
	Admin       *Admin
	AccessToken string
	SessionID   string
	ExpiresIn   int64
}

// Session represents an admin session
type Session struct {
	ID        string
	UserID    uint
	Role      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

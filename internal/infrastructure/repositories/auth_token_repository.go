package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
	"gorm.io/gorm"
)

// AuthTokenRepositoryImpl implements domain.AuthTokenRepository using GORM
type AuthTokenRepositoryImpl struct {
	db *gorm.DB
}

// NewAuthTokenRepository creates a new access-code repository
func NewAuthTokenRepository(db *gorm.DB) domain.AuthTokenRepository {
	return &AuthTokenRepositoryImpl{db: db}
}

func currentTokens(tx *gorm.DB, cpf string) *gorm.DB {
	return tx.Model(&DBAuthToken{}).
		Where("cpf = ? AND is_consumed = ? AND is_invalidated = ?", cpf, false, false)
}

// CreateToken implements domain.AuthTokenRepository
func (r *AuthTokenRepositoryImpl) CreateToken(ctx context.Context, token *domain.CandidateAuthToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := currentTokens(tx, token.CPF).Update("is_invalidated", true).Error; err != nil {
			return err
		}

		row := authTokenToDB(token)
		row.FailedAttempts = 0
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		token.ID = row.ID
		token.FailedAttempts = 0
		return nil
	})
}

// GetCurrentToken implements domain.AuthTokenRepository
func (r *AuthTokenRepositoryImpl) GetCurrentToken(ctx context.Context, cpf string) (*domain.CandidateAuthToken, error) {
	var row DBAuthToken
	err := currentTokens(r.db.WithContext(ctx), cpf).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return authTokenToDomain(&row), nil
}

// RegisterFailedAttempt implements domain.AuthTokenRepository.
// The increment is a single UPDATE so concurrent failures never lose a count.
func (r *AuthTokenRepositoryImpl) RegisterFailedAttempt(ctx context.Context, tokenID uint, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	var (
		attempts int
		locked   *time.Time
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBAuthToken{}).
			Where("id = ?", tokenID).
			Update("failed_attempts", gorm.Expr("failed_attempts + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrTokenNotFound
		}

		var row DBAuthToken
		if err := tx.Where("id = ?", tokenID).First(&row).Error; err != nil {
			return err
		}
		attempts = row.FailedAttempts

		if attempts >= maxAttempts {
			if err := tx.Model(&DBAuthToken{}).
				Where("id = ?", tokenID).
				Update("locked_until", lockUntil).Error; err != nil {
				return err
			}
			until := lockUntil
			locked = &until
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return attempts, locked, nil
}

// GetLockout implements domain.AuthTokenRepository
func (r *AuthTokenRepositoryImpl) GetLockout(ctx context.Context, cpf string) (*time.Time, error) {
	var row DBAuthToken
	err := r.db.WithContext(ctx).
		Where("cpf = ? AND locked_until IS NOT NULL", cpf).
		Order("locked_until DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.LockedUntil, nil
}

// ClearLockout implements domain.AuthTokenRepository
func (r *AuthTokenRepositoryImpl) ClearLockout(ctx context.Context, cpf string) error {
	return r.db.WithContext(ctx).Model(&DBAuthToken{}).
		Where("cpf = ? AND (failed_attempts > 0 OR locked_until IS NOT NULL)", cpf).
		Updates(map[string]interface{}{
			"failed_attempts": 0,
			"locked_until":    nil,
		}).Error
}

// MarkConsumed implements domain.AuthTokenRepository
func (r *AuthTokenRepositoryImpl) MarkConsumed(ctx context.Context, tokenID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBAuthToken{}).
		Where("id = ? AND is_consumed = ? AND is_invalidated = ?", tokenID, false, false).
		Updates(map[string]interface{}{
			"is_consumed": true,
			"consumed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// DeleteExpired implements domain.AuthTokenRepository. Rows carrying a live lockout are kept.
func (r *AuthTokenRepositoryImpl) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? AND (locked_until IS NULL OR locked_until < ?)", before, before).
		Delete(&DBAuthToken{})
	return res.RowsAffected, res.Error
}

func authTokenToDB(t *domain.CandidateAuthToken) *DBAuthToken {
	return &DBAuthToken{
		ID:             t.ID,
		CPF:            t.CPF,
		Email:          t.Email,
		Code:           t.Code,
		CreatedAt:      t.CreatedAt,
		ExpiresAt:      t.ExpiresAt,
		IsConsumed:     t.IsConsumed,
		ConsumedAt:     t.ConsumedAt,
		IsInvalidated:  t.IsInvalidated,
		FailedAttempts: t.FailedAttempts,
		LockedUntil:    t.LockedUntil,
		IPAddress:      t.IPAddress,
		UserAgent:      t.UserAgent,
	}
}

func authTokenToDomain(row *DBAuthToken) *domain.CandidateAuthToken {
	return &domain.CandidateAuthToken{
		ID:             row.ID,
		CPF:            row.CPF,
		Email:          row.Email,
		Code:           row.Code,
		CreatedAt:      row.CreatedAt,
		ExpiresAt:      row.ExpiresAt,
		IsConsumed:     row.IsConsumed,
		ConsumedAt:     row.ConsumedAt,
		IsInvalidated:  row.IsInvalidated,
		FailedAttempts: row.FailedAttempts,
		LockedUntil:    row.LockedUntil,
		IPAddress:      row.IPAddress,
		UserAgent:      row.UserAgent,
	}
}

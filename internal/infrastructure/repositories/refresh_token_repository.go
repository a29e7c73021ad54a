package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
	"github.com/redis/go-redis/v9"
)

// RefreshTokenRepositoryImpl implements domain.RefreshTokenRepository using Redis.
// Only the SHA-256 of a token is used as key, so a Redis dump does not leak usable tokens.
type RefreshTokenRepositoryImpl struct {
	client *redis.Client
	prefix string
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(client *redis.Client) domain.RefreshTokenRepository {
	return &RefreshTokenRepositoryImpl{client: client, prefix: "refresh:"}
}

func (r *RefreshTokenRepositoryImpl) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + hex.EncodeToString(sum[:])
}

// Store implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) Store(ctx context.Context, token string, candidateID uint, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(token), strconv.FormatUint(uint64(candidateID), 10), ttl).Err()
}

// Lookup implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) Lookup(ctx context.Context, token string) (uint, error) {
	val, err := r.client.Get(ctx, r.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrRefreshTokenInvalid
		}
		return 0, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, domain.ErrRefreshTokenInvalid
	}
	return uint(id), nil
}

// Revoke implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) Revoke(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}

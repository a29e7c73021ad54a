package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kai426/Dignus-sub001/domain"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct{ *redis.Client }

func NewRedis(addr, pass string, db int) *RedisClient {
	return &RedisClient{redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (c *RedisClient) Ping(ctx context.Context) error { return c.Client.Ping(ctx).Err() }

// Helpers
func SetNX(ctx context.Context, r *redis.Client, key string, val any, ttl time.Duration) (bool, error) {
	return r.SetNX(ctx, key, val, ttl).Result()
}

// releaseScript deletes the lock only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements domain.Locker with SET NX PX and a token-checked release
type RedisLocker struct {
	client *redis.Client
	prefix string
	retry  time.Duration
}

// NewRedisLocker creates a locker whose keys are namespaced by prefix
func NewRedisLocker(client *redis.Client, prefix string) domain.Locker {
	return &RedisLocker{client: client, prefix: prefix, retry: 20 * time.Millisecond}
}

// Acquire implements domain.Locker. The ttl bounds how long a crashed holder can block others.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to create lock token: %w", err)
	}
	token := hex.EncodeToString(b)
	fullKey := l.prefix + key

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := SetNX(ctx, l.client, fullKey, token, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
		}
		if ok {
			return func() {
				// release with a fresh context so a cancelled request still unlocks
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, ctx.Err())
		case <-ticker.C:
		}
	}
}

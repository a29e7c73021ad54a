package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP with a token bucket per address
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	expiry    time.Duration
	lastSweep time.Time
	clock     clockwork.Clock
}

// NewRateLimiter allows maxRequests per window for each IP. Idle entries are
// dropped after three windows.
func NewRateLimiter(maxRequests int, window time.Duration, clock clockwork.Clock) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(window / time.Duration(maxRequests)),
		burst:     maxRequests,
		expiry:    3 * window,
		lastSweep: clock.Now(),
		clock:     clock,
	}
}

// Middleware returns the gin handler
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) > rl.expiry {
		for ip, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.expiry {
				delete(rl.visitors, ip)
			}
		}
		rl.lastSweep = now
	}
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

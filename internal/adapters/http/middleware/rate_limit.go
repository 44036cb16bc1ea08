package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meridianpay/meridian/internal/adapters/http/common"
)

// RateLimitConfig bounds requests per key per window. The limiter is
// in-memory and per-process; with multiple replicas the effective limit
// scales with the replica count.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyFunc derives the limiting key; defaults to the client IP.
	KeyFunc func(*gin.Context) string
}

type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     RateLimitConfig
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{buckets: make(map[string]*bucket), cfg: cfg}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.lastReset) >= rl.cfg.Window {
		rl.buckets[key] = &bucket{tokens: rl.cfg.Limit - 1, lastReset: now}
		return true, 0
	}

	if b.tokens <= 0 {
		return false, rl.cfg.Window - now.Sub(b.lastReset)
	}
	b.tokens--
	return true, 0
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cfg.Window * 2)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, b := range rl.buckets {
			if now.Sub(b.lastReset) > rl.cfg.Window*2 {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects requests over the configured budget with 429 and a
// Retry-After header. Authenticated requests are keyed by user, anonymous
// ones by client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string {
			if userID := common.AuthUserID(c); userID != 0 {
				return "user:" + strconv.FormatInt(userID, 10)
			}
			return "ip:" + c.ClientIP()
		}
	}

	limiter := newRateLimiter(cfg)

	return func(c *gin.Context) {
		allowed, retryAfter := limiter.allow(cfg.KeyFunc(c))
		if !allowed {
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Error:     "rate_limited",
				Detail:    "Rate limit exceeded, please try again later",
				RequestID: common.RequestID(c),
			})
			return
		}
		c.Next()
	}
}

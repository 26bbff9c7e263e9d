/**
 * Middleware: rate limiting
 * @description: per-client token bucket keyed by client IP
 * @func: RateLimiter, TokenBucketLimiter, GinRateLimitMiddleware
 */
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	"leadsync/internal/pkg/utils"
)

// RateLimiter decides whether a keyed request may pass.
type RateLimiter interface {
	Allow(key string) bool
	Reset(key string)
}

// TokenBucketLimiter keeps one token bucket per key.
type TokenBucketLimiter struct {
	buckets map[string]*tokenBucket
	mutex   sync.RWMutex
	rate    int // tokens added per second
	burst   int // bucket capacity
	cleanup time.Duration
}

type tokenBucket struct {
	tokens   int
	capacity int
	rate     int
	lastTime time.Time
	mutex    sync.Mutex
}

// NewTokenBucketLimiter creates a limiter and starts its cleanup loop.
func NewTokenBucketLimiter(rate, burst int, cleanup time.Duration) *TokenBucketLimiter {
	limiter := &TokenBucketLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   burst,
		cleanup: cleanup,
	}
	go limiter.cleanupExpiredBuckets()
	return limiter
}

// Allow consumes one token for the key, creating the bucket on first
// sight.
func (tbl *TokenBucketLimiter) Allow(key string) bool {
	tbl.mutex.Lock()
	bucket, exists := tbl.buckets[key]
	if !exists {
		bucket = &tokenBucket{
			tokens:   tbl.burst,
			capacity: tbl.burst,
			rate:     tbl.rate,
			lastTime: time.Now(),
		}
		tbl.buckets[key] = bucket
	}
	tbl.mutex.Unlock()

	return bucket.consume()
}

// Reset clears the bucket for a key.
func (tbl *TokenBucketLimiter) Reset(key string) {
	tbl.mutex.Lock()
	delete(tbl.buckets, key)
	tbl.mutex.Unlock()
}

func (tb *tokenBucket) consume() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()

	tb.tokens += int(elapsed * float64(tb.rate))
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastTime = now

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tbl *TokenBucketLimiter) cleanupExpiredBuckets() {
	ticker := time.NewTicker(tbl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-tbl.cleanup)
		tbl.mutex.Lock()
		for key, bucket := range tbl.buckets {
			bucket.mutex.Lock()
			stale := bucket.lastTime.Before(cutoff)
			bucket.mutex.Unlock()
			if stale {
				delete(tbl.buckets, key)
			}
		}
		tbl.mutex.Unlock()
	}
}

// GinRateLimitMiddleware limits requests per client IP using the
// configured token bucket. Disabled config yields a pass-through.
func (m *MiddlewareManager) GinRateLimitMiddleware() gin.HandlerFunc {
	limits := m.securityConfig.RateLimit
	if !limits.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	m.rateLimiterOnce.Do(func() {
		m.rateLimiter = NewTokenBucketLimiter(limits.Rate, limits.Burst, 10*time.Minute)
	})

	return func(c *gin.Context) {
		if !m.rateLimiter.Allow(utils.GetClientIP(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.APIResponse{
				Code:    http.StatusTooManyRequests,
				Success: false,
				Message: "Rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

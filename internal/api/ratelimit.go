package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// tokenBucket is a token bucket refilled continuously at rate tokens/second.
type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// userLimiter keeps one bucket per user. A bucket idle long enough to be
// full again is dropped, since a new bucket starts full anyway.
type userLimiter struct {
	rate  float64
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

func newUserLimiter(rate float64, burst int) *userLimiter {
	if burst < 1 {
		burst = 1
	}
	idle := time.Duration(float64(burst) / rate * float64(time.Second))
	if idle < time.Minute {
		idle = time.Minute
	}
	return &userLimiter{
		rate:    rate,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
	}
}

// allow takes a token from key's bucket. When none is left it returns the
// wait until the next token.
func (l *userLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.lastSweep = now
		for k, b := range l.buckets {
			if now.Sub(b.lastUpdate) >= l.idle {
				delete(l.buckets, k)
			}
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(l.burst), lastUpdate: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.lastUpdate = now
	b.tokens = math.Min(float64(l.burst), b.tokens+elapsed*l.rate)

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return false, wait
}

// rateLimitMiddleware must run after authMiddleware so requests are keyed by
// user rather than by address.
func rateLimitMiddleware(l *userLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(contextKeyUserID)
		if key == "" {
			key = c.ClientIP()
		}

		ok, wait := l.allow(key)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

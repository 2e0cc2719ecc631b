package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// staleAfter bounds how long an idle client keeps its bucket.
const staleAfter = 10 * time.Minute

// RateLimiter is a per-IP token bucket. Buckets refill at rate tokens per
// second up to burst; idle buckets are dropped opportunistically.
type RateLimiter struct {
	mu       sync.Mutex
	rate     int
	burst    int
	tokens   map[string]int
	lastTime map[string]time.Time
	lastSeen map[string]time.Time
	sweepAt  time.Time
}

func NewRateLimiter(rate, burst int) *RateLimiter {
	return &RateLimiter{
		rate:     rate,
		burst:    burst,
		tokens:   make(map[string]int),
		lastTime: make(map[string]time.Time),
		lastSeen: make(map[string]time.Time),
		sweepAt:  time.Now().Add(staleAfter),
	}
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		now := time.Now()

		if now.After(rl.sweepAt) {
			rl.sweep(now)
		}

		if _, exists := rl.tokens[ip]; !exists {
			rl.tokens[ip] = rl.burst
			rl.lastTime[ip] = now
		}
		rl.lastSeen[ip] = now

		elapsed := now.Sub(rl.lastTime[ip])
		rl.lastTime[ip] = now

		rl.tokens[ip] += int(elapsed.Seconds()) * rl.rate
		if rl.tokens[ip] > rl.burst {
			rl.tokens[ip] = rl.burst
		}

		if rl.tokens[ip] <= 0 {
			rl.mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		rl.tokens[ip]--
		rl.mu.Unlock()

		c.Next()
	}
}

// sweep drops idle buckets. Caller holds the lock.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, seen := range rl.lastSeen {
		if now.Sub(seen) > staleAfter {
			delete(rl.tokens, ip)
			delete(rl.lastTime, ip)
			delete(rl.lastSeen, ip)
		}
	}
	rl.sweepAt = now.Add(staleAfter)
}

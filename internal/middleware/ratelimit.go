package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterInfo
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
	now      func() time.Time
}

type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// NewIPRateLimiter allows requestsPerMinute per IP with the given burst.
func NewIPRateLimiter(requestsPerMinute, burst int) *IPRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: make(map[string]*limiterInfo),
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether ip may make another request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.limiterFor(ip).AllowN(l.now(), 1)
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// drop limiters idle for a while
	if now.Sub(l.lastScan) > l.idleTTL {
		for key, info := range l.limiters {
			if now.Sub(info.lastAccessed) > l.idleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastScan = now
	}

	info, ok := l.limiters[ip]
	if !ok {
		info = &limiterInfo{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = info
	}
	info.lastAccessed = now
	return info.limiter
}

// RateLimit rejects requests over the per-IP limit with 429.
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}

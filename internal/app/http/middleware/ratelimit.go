package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter hands out one token bucket per authenticated user. Buckets
// idle long enough to have refilled are dropped, since a new one starts full.
type UserRateLimiter struct {
	mu        sync.Mutex
	visitors  map[uint]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewUserRateLimiter allows perMinute requests per user, with bursts of the same size.
func NewUserRateLimiter(perMinute int) *UserRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &UserRateLimiter{
		visitors: make(map[uint]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idle:     time.Minute,
		now:      time.Now,
	}
}

func (l *UserRateLimiter) limiter(userID uint) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	v, ok := l.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[userID] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep must be called with mu held.
func (l *UserRateLimiter) sweep(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idle {
			delete(l.visitors, id)
		}
	}
	l.lastSweep = now
}

// Len reports how many users currently hold a bucket.
func (l *UserRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware must run after AuthMiddleware.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.GetUint("user_id")).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}
		c.Next()
	}
}

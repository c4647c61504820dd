package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter holds one token bucket per client IP. Entries idle longer than the
// eviction window are dropped so the map cannot grow without bound.
type ipLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucketEntry
	limit    rate.Limit
	burst    int
	lastTidy time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketEviction = 10 * time.Minute

func newIPLimiter(perMinute, burst int) *ipLimiter {
	return &ipLimiter{
		buckets:  make(map[string]*bucketEntry),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		lastTidy: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Sub(l.lastTidy) > bucketEviction {
		for k, e := range l.buckets {
			if now.Sub(e.lastSeen) > bucketEviction {
				delete(l.buckets, k)
			}
		}
		l.lastTidy = now
	}
	e, ok := l.buckets[ip]
	if !ok {
		e = &bucketEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// WebhookRateLimit throttles the settlement endpoint per source IP. Replays and
// floods get 429 before any signature work happens.
func WebhookRateLimit(perMinute, burst int) gin.HandlerFunc {
	l := newIPLimiter(perMinute, burst)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

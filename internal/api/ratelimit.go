package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet keeps one token bucket per client key and forgets keys idle longer than ttl.
type limiterSet struct {
	mu        sync.Mutex
	rps       int
	burst     int
	ttl       time.Duration
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterSet(rps, burst int, ttl time.Duration) *limiterSet {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *limiterSet) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ttl > 0 && now.Sub(l.lastSweep) > l.ttl {
		for k, e := range l.entries {
			if now.Sub(e.lastAccess) > l.ttl {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}
	if e, ok := l.entries[key]; ok {
		e.lastAccess = now
		return e.limiter
	}
	if key == "" {
		logWarn("Rate limiter key is empty")
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(l.rps)), l.burst)
	l.entries[key] = &limiterEntry{limiter: lim, lastAccess: now}
	return lim
}

func (l *limiterSet) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// middleware limits requests per client IP and user.
func (l *limiterSet) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.GetHeader(UserHeader)
		if !l.get(key, time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}

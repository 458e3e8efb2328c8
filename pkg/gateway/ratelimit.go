package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter rate-limits requests per client with one token bucket
// per key. Idle buckets are reaped in the background.
type TokenBucketLimiter struct {
	requestsPerSecond int
	burst             int

	limiters map[string]*limiterEntry
	mu       sync.Mutex

	cleanupInterval time.Duration
	cleanupStop     chan struct{}
	cleanupDone     chan struct{}
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewTokenBucketLimiter(requestsPerSecond, burst int) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
		limiters:          make(map[string]*limiterEntry),
		cleanupInterval:   5 * time.Minute,
		cleanupStop:       make(chan struct{}),
		cleanupDone:       make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow reports whether the keyed client may proceed now.
func (l *TokenBucketLimiter) Allow(key string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(l.requestsPerSecond), l.burst),
		}
		l.limiters[key] = entry
	}
	entry.lastAccess = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// Middleware rejects over-limit clients with 429, keyed by remote IP.
func (l *TokenBucketLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !l.Allow(host) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close stops the cleanup goroutine.
func (l *TokenBucketLimiter) Close() {
	close(l.cleanupStop)
	<-l.cleanupDone
}

func (l *TokenBucketLimiter) cleanup() {
	defer close(l.cleanupDone)
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.cleanupStop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.cleanupInterval)
			l.mu.Lock()
			for key, entry := range l.limiters {
				if entry.lastAccess.Before(cutoff) {
					delete(l.limiters, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

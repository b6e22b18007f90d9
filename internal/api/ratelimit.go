package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/httputil"
)

// ipRateLimiter hands out one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	r        rate.Limit
	b        int
	idle     time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(r rate.Limit, b int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*limiterEntry),
		r:        r,
		b:        b,
		idle:     10 * time.Minute,
	}
}

// get returns the bucket for ip, dropping buckets idle longer than l.idle.
func (l *ipRateLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[ip]
	if !ok {
		for k, old := range l.limiters {
			if now.Sub(old.lastSeen) > l.idle {
				delete(l.limiters, k)
			}
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

// limit wraps a mutating handler with the per-IP token bucket.
func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := httputil.ClientIP(r, s.config.TrustProxy)
		if !s.limiter.get(ip, time.Now()).Allow() {
			s.logger.Warn("control rate limit exceeded", "remote_ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, http.StatusTooManyRequests, "too many control requests")
			return
		}
		next(w, r)
	}
}

// Per-IP rate limiting for the mutation endpoints.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter allows a fixed number of requests per IP per window.
type Limiter struct {
	mu      sync.Mutex
	seen    map[string]*window
	max     int
	period  time.Duration
	swept   time.Time
}

type window struct {
	count int
	start time.Time
}

// NewLimiter creates a limiter allowing max requests per period.
func NewLimiter(max int, period time.Duration) *Limiter {
	return &Limiter{
		seen:   make(map[string]*window),
		max:    max,
		period: period,
		swept:  time.Now(),
	}
}

// Allow reports whether this IP may proceed, and if not, seconds until reset.
func (l *Limiter) Allow(ip string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	// Sweep stale windows occasionally so the map stays bounded.
	if now.Sub(l.swept) > 10*l.period {
		for k, w := range l.seen {
			if now.Sub(w.start) > l.period {
				delete(l.seen, k)
			}
		}
		l.swept = now
	}

	w, ok := l.seen[ip]
	if !ok || now.Sub(w.start) >= l.period {
		l.seen[ip] = &window{count: 1, start: now}
		return true, 0
	}
	if w.count < l.max {
		w.count++
		return true, 0
	}
	return false, int((l.period - now.Sub(w.start)).Seconds()) + 1
}

// clientIP extracts the caller's IP, preferring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limited wraps a handler with per-IP rate limiting. Returns 429 when exceeded.
func limited(l *Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retry := l.Allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

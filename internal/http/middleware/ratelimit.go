package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	sweepInterval = 5 * time.Minute
	staleAfter    = 10 * time.Minute
)

// RateLimiter throttles callers per client IP with a token bucket. WhatsApp
// webhook deliveries arrive in bursts, so the burst size matters more than
// the steady rate.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	rate    float64 // tokens refilled per second
	burst   int
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests/sec with the given
// burst size per client IP.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   burst,
	}
	go rl.sweep()
	return rl
}

// Allow reports whether the request from ip is within the rate limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	tb, ok := rl.clients[ip]
	if !ok {
		tb = &tokenBucket{tokens: float64(rl.burst), seen: now}
		rl.clients[ip] = tb
	}

	tb.tokens += now.Sub(tb.seen).Seconds() * rl.rate
	if tb.tokens > float64(rl.burst) {
		tb.tokens = float64(rl.burst)
	}
	tb.seen = now

	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// sweep evicts buckets that have not been seen recently so the map does not
// grow without bound.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-staleAfter)
		rl.mu.Lock()
		for ip, tb := range rl.clients {
			if tb.seen.Before(cutoff) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects requests over the configured rate with 429 Too Many
// Requests and a Retry-After hint.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	if rate <= 0 {
		rate = 1
	}
	limiter := NewRateLimiter(rate, burst)
	retryAfter := strconv.Itoa(int(1/rate) + 1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(ip) {
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
	PerIP          bool // limit each client address separately
}

// RateLimiter manages token-bucket limiters for clients.
type RateLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	global   *rate.Limiter
}

// NewRateLimiter creates a rate limiter for the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
	if !config.PerIP {
		rl.global = rate.NewLimiter(rate.Limit(config.RequestsPerSec), config.Burst)
	}
	return rl
}

// limiterFor returns the limiter for a client key, creating it on first
// use. The map is reset when it grows unreasonably large so churn from
// short-lived clients cannot leak memory.
func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSec), rl.config.Burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// RateLimit creates a rate limiting middleware.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			l := limiter.global
			if limiter.config.PerIP {
				l = limiter.limiterFor(clientIP(r))
			}
			if !l.Allow() {
				writeJSONError(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.Burst))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

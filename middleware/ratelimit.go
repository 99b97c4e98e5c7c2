package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/blogem/oauth-login/logging"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// LoginLimit applies to /login and /callback. A real user needs two requests
// per sign in; anything near the limit is a script.
var LoginLimit = RateLimitConfig{
	RequestsPerWindow: 20,
	Window:            time.Minute,
	Burst:             10,
}

const limiterIdleTimeout = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP
type rateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	now         func() time.Time
	lastCleanup time.Time
}

func newRateLimiter(config RateLimitConfig, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		limiters:    make(map[string]*limiterEntry),
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       config.Burst,
		now:         now,
		lastCleanup: now(),
	}
}

// allow reports whether key may proceed and, if not, how long it should wait
func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanup(now)

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return true, 0
	}

	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return false, delay
}

// cleanup drops limiters that have been idle, at most once per idle timeout
func (rl *rateLimiter) cleanup(now time.Time) {
	if now.Sub(rl.lastCleanup) < limiterIdleTimeout {
		return
	}
	rl.lastCleanup = now

	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) >= limiterIdleTimeout {
			delete(rl.limiters, key)
		}
	}
}

// RateLimitByIP limits requests per client IP address
func RateLimitByIP(config RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimitByIP(config, time.Now)
}

func rateLimitByIP(config RateLimitConfig, now func() time.Time) func(http.Handler) http.Handler {
	rl := newRateLimiter(config, now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if key == "" {
				logging.FromContext(r.Context()).Warn("rate limit: unable to extract client IP, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			allowed, delay := rl.allow(key)
			if !allowed {
				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				logging.FromContext(r.Context()).Warn("rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
					"retry_after", retryAfter,
				)

				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

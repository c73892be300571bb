package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/plateful/auth/pkg/slogx"
)

// RateLimitConfig defines the rate limiting parameters for one profile.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed per window.
	RequestsPerWindow int
	// Window is the time window for rate limiting.
	Window time.Duration
	// Burst allows temporary bursts above the steady rate.
	Burst int
}

// Rate limit profiles per endpoint sensitivity. Each is overridable via
// RATELIMIT_{PROFILE}_{REQUESTS,WINDOW_SEC,BURST} environment variables.
var (
	// StrictLimit guards credential endpoints against brute force.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers authenticated session operations.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers low-sensitivity authenticated reads.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers unauthenticated read-only endpoints.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv overlays RATELIMIT_{prefix}_* environment variables
// onto defaultConfig. Invalid or non-positive values are ignored.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}
	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}
	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// KeyExtractor derives the rate-limit bucket key from a request
// (IP address, user id, username, or a combination).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys by the resolved client IP.
func IPKeyExtractor(r *http.Request) string {
	return ClientIP(r)
}

// UserIDKeyExtractor keys by the authenticated user id, empty when the
// request is anonymous.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// CompositeKeyExtractor joins multiple extractors with sep, skipping
// extractors that produce nothing.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor peeks a string field out of a JSON request body
// without consuming it: the body is re-buffered so handlers can still
// decode it. Used to throttle login attempts per IP+username.
func JSONFieldKeyExtractor(fieldName string) KeyExtractor {
	const maxPeek = 1 << 20

	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, maxPeek))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(buf))
		if err != nil {
			return ""
		}

		var fields map[string]any
		if err := json.Unmarshal(buf, &fields); err != nil {
			return ""
		}
		if s, ok := fields[fieldName].(string); ok {
			return s
		}
		return ""
	}
}

// keyedLimiter manages one rate.Limiter per bucket key.
type keyedLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (kl *keyedLimiter) get(key string) *rate.Limiter {
	if limiter, ok := kl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(kl.rate, kl.burst)
	actual, _ := kl.limiters.LoadOrStore(key, limiter)

	kl.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters with full buckets. A full bucket means the
// key has been idle for at least a window, so dropping it loses nothing.
func (kl *keyedLimiter) maybeCleanup() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if time.Since(kl.lastCleanup) < 5*time.Minute {
		return
	}
	kl.lastCleanup = time.Now()

	kl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(kl.burst) {
			kl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware enforces config per key extracted from each request.
// Requests without an extractable key are allowed through with a warning.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	kl := &keyedLimiter{
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := kl.get(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel() // only probing for Retry-After

				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByUser limits by authenticated user id, falling back to IP for
// anonymous requests.
func RateLimitByUser(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}

// RateLimitByIPAndJSONField limits by IP plus a JSON body field, e.g.
// IP+username for login attempts.
func RateLimitByIPAndJSONField(config RateLimitConfig, fieldName string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		IPKeyExtractor,
		JSONFieldKeyExtractor(fieldName),
	))
}

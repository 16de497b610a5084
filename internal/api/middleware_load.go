package api

import (
	"net/http"
	"strconv"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"namereg/internal/config"
)

// priorityPaths are never rate limited, so probes and scrapes keep working
// under load.
var priorityPaths = map[string]bool{
	HealthPath:  true,
	ReadyPath:   true,
	MetricsPath: true,
}

// RateLimiter is a process-wide token bucket.
type RateLimiter struct {
	limiter    *rate.Limiter
	retryAfter int
}

// NewRateLimiter creates a limiter admitting RequestsPerSecond on average
// with bursts up to Burst.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	retry := 1
	if cfg.RequestsPerSecond > 0 && cfg.RequestsPerSecond < 1 {
		retry = int(1/cfg.RequestsPerSecond) + 1
	}
	return &RateLimiter{
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		retryAfter: retry,
	}
}

// Allow reports whether one more request may proceed now.
func (l *RateLimiter) Allow() bool {
	return l.limiter.Allow()
}

// RateLimitMiddleware rejects requests beyond the limiter's rate with 429.
func RateLimitMiddleware(l *RateLimiter, m *MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if priorityPaths[r.URL.Path] || l.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			m.RecordRateLimitExceeded()
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
}

// CompressionMiddleware gzips responses of at least minSize bytes for
// clients that accept it.
func CompressionMiddleware(minSize int) (func(http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(minSize))
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}

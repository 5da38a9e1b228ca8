package httpapi

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitInfo mirrors erauner12-toolbridge-api's httpapi.RateLimitInfo
// shape (window/max/burst), realized here over golang.org/x/time/rate the
// same way the teacher's api.go keeps one package-level *rate.Limiter per
// concern (heartbeatLimiter, reconcileLimiter) rather than a per-client
// table — this boundary limiter protects the process, not individual
// callers.
type RateLimitInfo struct {
	WindowSeconds int
	MaxRequests   int
	Burst         int
}

// DefaultRateLimitConfig is the general HTTP-boundary budget (SPEC_FULL.md
// §4.12): 100 requests per 15 minutes.
var DefaultRateLimitConfig = RateLimitInfo{WindowSeconds: 900, MaxRequests: 100, Burst: 20}

// DefaultAuthRateLimitConfig covers auth-adjacent endpoints with a much
// tighter budget: 5 requests per 15 minutes.
var DefaultAuthRateLimitConfig = RateLimitInfo{WindowSeconds: 900, MaxRequests: 5, Burst: 2}

func (c RateLimitInfo) toLimiter() *rate.Limiter {
	perSecond := float64(c.MaxRequests) / float64(c.WindowSeconds)
	return rate.NewLimiter(rate.Limit(perSecond), c.Burst)
}

// RateLimit rejects with 429 once cfg's budget is exhausted.
func RateLimit(cfg RateLimitInfo) func(http.Handler) http.Handler {
	limiter := cfg.toLimiter()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

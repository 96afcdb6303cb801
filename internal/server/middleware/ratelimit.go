package middleware

import (
	"net/http"
	"strconv"

	"github.com/membergate/membergate/internal/ratelimit"
)

// RateLimit returns an HTTP middleware that counts each request against
// the given policy, keyed by forwarded client IP. Throttled requests get
// a 429 with Retry-After and rate-limit headers and never reach a handler.
func RateLimit(limiter ratelimit.Checker, policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Check(ratelimit.ClientKey(r), policy)
			if res.Limited {
				w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(policy.MaxRequests))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

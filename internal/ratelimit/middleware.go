package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vedamart/backend/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Guard enforces rate limits before delegating to the next handler. Limiter
// failures fail open so a Redis outage never blocks checkout traffic.
type Guard struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// KeyByUserOrIP keys the limit on the authenticated user when present,
// falling back to the remote address for anonymous callers.
func KeyByUserOrIP(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok && userID != "" {
		return "user:" + userID
	}
	return "ip:" + r.RemoteAddr
}

// Middleware implements the http.Handler middleware interface.
func (g Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := g.Config.Key(r)
		allowed, remaining, resetAt, err := g.Limiter.Allow(r.Context(), key, g.Config.Window, g.Config.Max)
		if err != nil {
			if g.OnError != nil {
				g.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limitValue := g.Config.Max
		if limitValue < 0 {
			limitValue = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limitValue))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts, slow down", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

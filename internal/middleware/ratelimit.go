package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"social-backend/internal/metrics"
	"social-backend/internal/ratelimit"

	"github.com/rs/zerolog/log"
)

// RateLimit allows each authenticated user limit requests per window for action.
// It must run after AuthMiddleware. A non-positive limit disables it.
func RateLimit(limiter ratelimit.Limiter, action string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, retryAfter := limiter.Allow(r.Context(), action+":"+userID, limit, window)
			if !ok {
				metrics.RateLimited.WithLabelValues(action).Inc()
				log.Warn().Str("user_id", userID).Str("action", action).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				respondError(w, "Too many requests, please try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

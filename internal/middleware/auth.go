package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"social-backend/internal/models"
	"social-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves a session token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware creates a middleware that rejects requests without a valid session
func AuthMiddleware(auth Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				respondError(w, "Unauthorized: No Token Provided", http.StatusUnauthorized)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				var svcErr *services.Error
				if errors.As(err, &svcErr) && errors.Is(err, services.ErrUnauthorized) {
					respondError(w, svcErr.Message, http.StatusUnauthorized)
					return
				}
				log.Error().Err(err).Msg("Failed to authenticate request")
				respondError(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// TokenFromRequest reads the session cookie, falling back to a Bearer header
func TokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// WithUser attaches the authenticated user to ctx
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the authenticated user, if any
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	user, ok := CurrentUser(ctx)
	if !ok {
		return ""
	}
	return user.ID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

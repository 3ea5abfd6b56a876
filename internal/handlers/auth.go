package handlers

import (
	"net/http"
	"time"

	"social-backend/internal/middleware"
	"social-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// CookieOptions controls the session cookie
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// AuthHandler handles signup, login and session requests
type AuthHandler struct {
	authService *services.AuthService
	cookie      CookieOptions
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to sign up")
		return
	}

	log.Info().
		Str("user_id", session.User.ID).
		Str("username", session.User.Username).
		Msg("User signed up")

	h.setSessionCookie(w, session.Token)
	respondJSON(w, http.StatusCreated, session.User)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to log in")
		return
	}

	log.Info().Str("user_id", session.User.ID).Msg("User logged in")

	h.setSessionCookie(w, session.Token)
	respondJSON(w, http.StatusOK, session.User)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get current user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"social-backend/internal/metrics"
	"social-backend/internal/middleware"
	"social-backend/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateLimits are per-user limits per minute; zero disables a limit
type RateLimits struct {
	Posts    int
	Comments int
	Likes    int
}

// RouterConfig wires the handlers into a router
type RouterConfig struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Posts         *PostHandler
	Notifications *NotificationHandler
	WebSocket     *WebSocketHandler
	Media         *MediaHandler // nil unless uploads are kept in memory
	Authenticator middleware.Authenticator
	CookieName    string
	Limiter       ratelimit.Limiter
	Limits        RateLimits
	DB            Pinger
	RequestLog    bool
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if cfg.RequestLog {
		r.Use(chiMiddleware.Logger)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	auth := middleware.AuthMiddleware(cfg.Authenticator, cfg.CookieName)
	limit := func(action string, n int) func(http.Handler) http.Handler {
		return middleware.RateLimit(cfg.Limiter, action, n, time.Minute)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", cfg.Auth.Signup)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/logout", cfg.Auth.Logout)
			r.With(auth).Get("/me", cfg.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Route("/users", func(r chi.Router) {
				r.Get("/profile/{username}", cfg.Users.GetProfile)
				r.Get("/suggested", cfg.Users.Suggested)
				r.Post("/follow/{id}", cfg.Users.ToggleFollow)
				r.Post("/update", cfg.Users.UpdateProfile)
				r.Put("/push-token", cfg.Users.UpdatePushToken)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Get("/all", cfg.Posts.ListAll)
				r.Get("/following", cfg.Posts.ListFollowing)
				r.Get("/likes/{id}", cfg.Posts.ListLiked)
				r.Get("/user/{username}", cfg.Posts.ListUser)
				r.With(limit("post", cfg.Limits.Posts)).Post("/create", cfg.Posts.CreatePost)
				r.With(limit("like", cfg.Limits.Likes)).Post("/like/{id}", cfg.Posts.ToggleLike)
				r.With(limit("comment", cfg.Limits.Comments)).Post("/comment/{id}", cfg.Posts.CommentOnPost)
				r.Delete("/{id}", cfg.Posts.DeletePost)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", cfg.Notifications.List)
				r.Get("/unread-count", cfg.Notifications.UnreadCount)
				r.Delete("/", cfg.Notifications.DeleteAll)
				r.Delete("/{id}", cfg.Notifications.DeleteOne)
			})
		})
	})

	r.Get("/ws", cfg.WebSocket.HandleWebSocket)
	if cfg.Media != nil {
		r.Get("/media/{name}", cfg.Media.Get)
	}
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.Ping(r.Context()); err != nil {
				respondError(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

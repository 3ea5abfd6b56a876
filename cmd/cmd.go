package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-backend/internal/clock"
	"social-backend/internal/config"
	"social-backend/internal/handlers"
	"social-backend/internal/media"
	"social-backend/internal/push"
	"social-backend/internal/ratelimit"
	"social-backend/internal/repository"
	"social-backend/internal/repository/sqlite"
	"social-backend/internal/services"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stores is the storage backend selected by configuration
type stores struct {
	users         services.UserStore
	posts         services.PostStore
	notifications services.NotificationStore
	db            handlers.Pinger
	close         func()
}

func Run() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()
	clk := clock.NewReal()

	// Connect to database
	st, err := openStores(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	defer st.close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database connection established")

	// Media storage
	var mediaStore media.Store
	var mediaHandler *handlers.MediaHandler
	if cfg.AWS.S3Bucket != "" {
		mediaStore, err = media.NewS3Store(ctx, media.S3Options{
			Region:        cfg.AWS.Region,
			Bucket:        cfg.AWS.S3Bucket,
			AccessKey:     cfg.AWS.AccessKey,
			SecretKey:     cfg.AWS.SecretKey,
			Endpoint:      cfg.AWS.Endpoint,
			PublicBaseURL: cfg.AWS.PublicBaseURL,
			KeyPrefix:     cfg.AWS.KeyPrefix,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create media store")
		}
	} else {
		log.Warn().Msg("No S3 bucket configured, keeping uploads in memory")
		host := cfg.Server.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		memory := media.NewMemoryStore(fmt.Sprintf("http://%s:%d/media", host, cfg.Server.Port))
		mediaStore = memory
		mediaHandler = handlers.NewMediaHandler(memory)
	}

	// Device push
	var pusher push.Pusher
	if cfg.APNs.Enabled {
		apns, err := push.NewAPNs(push.APNsOptions{
			KeyFile:    cfg.APNs.KeyFile,
			KeyID:      cfg.APNs.KeyID,
			TeamID:     cfg.APNs.TeamID,
			Topic:      cfg.APNs.Topic,
			Production: cfg.APNs.Production,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		pusher = apns
	}

	// Rate limiter
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, rate limits fail open")
		}
		limiter = ratelimit.NewRedis(rdb)
	default:
		limiter = ratelimit.NewMemory(clk)
	}

	// Initialize services
	hasher := services.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := services.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL, clk)
	wsHub := services.NewWSHub()
	authService := services.NewAuthService(st.users, hasher, tokens, clk)
	userService := services.NewUserService(st.users, hasher, mediaStore, clk)
	notificationService := services.NewNotificationService(st.notifications, st.users, wsHub, pusher)
	postService := services.NewPostService(st.posts, st.users, mediaStore, notificationService, clk)

	// Initialize handlers
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth: handlers.NewAuthHandler(authService, handlers.CookieOptions{
			Name:   cfg.JWT.CookieName,
			TTL:    cfg.JWT.TTL,
			Secure: !cfg.Server.IsDevelopment(),
		}),
		Users:         handlers.NewUserHandler(userService),
		Posts:         handlers.NewPostHandler(postService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		WebSocket:     handlers.NewWebSocketHandler(wsHub, authService, notificationService, cfg.JWT.CookieName),
		Media:         mediaHandler,
		Authenticator: authService,
		CookieName:    cfg.JWT.CookieName,
		Limiter:       limiter,
		Limits: handlers.RateLimits{
			Posts:    cfg.RateLimit.Posts,
			Comments: cfg.RateLimit.Comments,
			Likes:    cfg.RateLimit.Likes,
		},
		DB:         st.db,
		RequestLog: true,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("env", cfg.Server.Env).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	wsHub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStores(ctx context.Context, cfg *config.DatabaseConfig) (*stores, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:         db.Users,
			posts:         db.Posts,
			notifications: db.Notifications,
			db:            db,
			close:         func() { _ = db.Close() },
		}, nil
	default:
		pool, err := repository.Open(ctx, cfg.DSN(), cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := repository.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &stores{
			users:         repository.NewUserRepository(pool),
			posts:         repository.NewPostRepository(pool),
			notifications: repository.NewNotificationRepository(pool),
			db:            pool,
			close:         pool.Close,
		}, nil
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

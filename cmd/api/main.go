package main

import (
	"context"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/veroa/veroa-api/internal/config"
	"github.com/veroa/veroa-api/internal/domain/booking"
	"github.com/veroa/veroa-api/internal/domain/chat"
	"github.com/veroa/veroa-api/internal/domain/quote"
	"github.com/veroa/veroa-api/internal/domain/user"
	"github.com/veroa/veroa-api/internal/domain/verification"
	"github.com/veroa/veroa-api/internal/middleware"
	"github.com/veroa/veroa-api/internal/pkg/apperr"
	"github.com/veroa/veroa-api/internal/pkg/database"
	"github.com/veroa/veroa-api/internal/pkg/imaging"
	"github.com/veroa/veroa-api/internal/pkg/jwt"
	"github.com/veroa/veroa-api/internal/pkg/logger"
	pkgresponse "github.com/veroa/veroa-api/internal/pkg/response"
	"github.com/veroa/veroa-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	apperr.SetDevelopment(cfg.IsDevelopment())

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Veroa API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	// nil when REDIS_URL is unset; everything below runs single-instance then
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	ctx := context.Background()
	store, err := storage.New(ctx, storage.Config{
		Driver:      cfg.StorageDriver,
		LocalPath:   cfg.StorageLocalPath,
		PublicURL:   cfg.StoragePublicURL,
		S3Endpoint:  cfg.S3Endpoint,
		S3Region:    cfg.S3Region,
		S3Bucket:    cfg.S3Bucket,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("Failed to create attachment storage")
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	quoteRepo := quote.NewRepository(db)
	bookingRepo := booking.NewRepository(db)
	chatRepo := chat.NewRepository(db)

	// ---------- Booking id allocator ----------
	allocator := booking.NewAllocator(bookingRepo)
	syncCtx, cancelSync := context.WithTimeout(ctx, 10*time.Second)
	if err := allocator.Sync(syncCtx); err != nil {
		cancelSync()
		log.Fatal().Err(err).Msg("Failed to reconcile booking id counter")
	}
	cancelSync()

	reconciler := booking.NewReconciler(bookingRepo, cfg.ReconcileInterval)
	reconciler.Start()
	defer reconciler.Stop()

	// ---------- WebSocket hub ----------
	chatHub := chat.NewHub(redisClient)
	go chatHub.Run()
	defer chatHub.Shutdown()

	// ---------- Services ----------
	quoteService := quote.NewService(quoteRepo)
	bookingService := booking.NewService(bookingRepo, userRepo, allocator)
	chatService := chat.NewService(
		chatRepo,
		userRepo,
		chat.NewAnchorResolver(quoteRepo, bookingRepo),
		chatHub,
		store,
		imaging.NewProcessor(imaging.DefaultConfig()),
	)

	// ---------- Handlers ----------
	h := handlers{
		quote:        quote.NewHandler(quoteService),
		booking:      booking.NewHandler(bookingService),
		chat:         chat.NewHandler(chatService, chatHub, jwtService, redisClient, cfg.AllowedOrigins, cfg.WSJoinTimeout),
		verification: newVerificationHandler(cfg, redisClient),
	}

	r := newRouter(cfg, h, middleware.Auth(jwtService))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset: it would cut long-lived socket connections.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type handlers struct {
	quote        *quote.Handler
	booking      *booking.Handler
	chat         *chat.Handler
	verification *verification.Handler
}

// newVerificationHandler prefers the SMS vendor and falls back to codes kept
// in Redis. Returns nil when neither is configured.
func newVerificationHandler(cfg *config.Config, redisClient *redis.Client) *verification.Handler {
	switch {
	case cfg.SMSBaseURL != "":
		return verification.NewHandler(verification.NewSMSProvider(verification.SMSConfig{
			BaseURL:    cfg.SMSBaseURL,
			APIKey:     cfg.SMSAPIKey,
			SenderName: cfg.SMSSenderName,
		}))
	case redisClient != nil:
		log.Warn().Msg("SMS_BASE_URL not set, verification codes are written to the log")
		return verification.NewHandler(verification.NewRedisProvider(redisClient, verification.RedisConfig{}))
	default:
		log.Warn().Msg("Phone verification disabled: neither SMS_BASE_URL nor REDIS_URL is set")
		return nil
	}
}

func newRouter(cfg *config.Config, h handlers, authMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/ws", h.chat.WSRoute())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.With(authMiddleware, middleware.RequireAdmin()).Handle("/debug/vars", expvar.Handler())

	if cfg.StorageDriver != "s3" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", storage.FileServer(cfg.StorageLocalPath)))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/quotes", h.quote.Routes(authMiddleware, h.booking.ConvertQuote))
		r.Mount("/bookings", h.booking.Routes(authMiddleware))
		r.Mount("/conversations", h.chat.ConversationRoutes(authMiddleware))
		r.Mount("/messages", h.chat.MessageRoutes(authMiddleware))
		r.With(authMiddleware).Get("/quotes-with-unread-count", h.chat.QuotesWithUnread)

		if h.verification != nil {
			r.Mount("/verification", h.verification.Routes())
		}
	})

	return r
}

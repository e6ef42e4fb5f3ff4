package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/sheetcharts-be/internal/api"
	"github.com/isdelr/sheetcharts-be/internal/auth"
	"github.com/isdelr/sheetcharts-be/internal/config"
	"github.com/isdelr/sheetcharts-be/internal/database"
	"github.com/isdelr/sheetcharts-be/internal/logger"
	"github.com/isdelr/sheetcharts-be/internal/monitoring"
	"github.com/isdelr/sheetcharts-be/internal/ratelimit"
	"github.com/isdelr/sheetcharts-be/internal/services"
	"github.com/isdelr/sheetcharts-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", "console")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token issuer")
	}

	// Set up WebSocket Hub for the admin activity feed
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db, hub)
	userService := services.NewUserService(db, eventService)
	uploadService := services.NewUploadService(db, eventService)
	vizService := services.NewVisualizationService(uploadService, eventService)
	statsService := services.NewStatsService(db)

	deps := api.Dependencies{
		Tokens:         tokens,
		Users:          userService,
		Uploads:        uploadService,
		Visualizations: vizService,
		Stats:          statsService,
		Events:         eventService,
		Hub:            hub,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		TrustProxy:     cfg.TrustProxy,
	}

	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.AuthRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
		}
		defer limiter.Close()
		deps.AuthLimiter = limiter
		log.Info().Str("redis", cfg.RedisAddr).Int("per_minute", cfg.AuthRateLimitPerMinute).Msg("Auth rate limiting enabled")
	} else {
		log.Warn().Msg("REDIS_ADDR not set, auth rate limiting disabled")
	}

	// Set up and run the background usage reporter
	reporter, err := monitoring.NewReporter(cfg.StatsCronSpec, statsService, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule usage reporter")
	}
	reporter.Start()

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reporter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rpnow/rpnow2/internal/api"
	"github.com/rpnow/rpnow2/internal/config"
	"github.com/rpnow/rpnow2/internal/notify"
	"github.com/rpnow/rpnow2/internal/rp"
	"github.com/rpnow/rpnow2/internal/store"
	"github.com/rpnow/rpnow2/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Pick the room store: PostgreSQL when configured, else SQLite,
	// else in-memory for throwaway development runs.
	var roomStore store.RoomStore
	switch {
	case cfg.DatabaseURL != "":
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		roomStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	case cfg.SQLitePath != "":
		sqlStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		roomStore = sqlStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite database")
	default:
		roomStore = store.NewMemoryStore()
		logger.Warn().Msg("no store configured, rooms will not survive a restart")
	}
	defer roomStore.Close()

	// Optional Redis: rate limiting plus cross-instance event fan-out
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisClient.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Live delivery hub plus optional redis publisher
	hub := ws.NewHub(logger)
	notifiers := notify.Multi{hub}
	if redisClient != nil {
		notifiers = append(notifiers, notify.NewRedisNotifier(redisClient, logger))
	}

	svc := rp.NewService(roomStore, notifiers, nil, logger, rp.Config{
		CodeLength:      cfg.RPCodeLength,
		CodeAlphabet:    cfg.RPCodeChars,
		MaxTitleLen:     cfg.MaxTitleLen,
		MaxDescLen:      cfg.MaxDescLen,
		MaxCharaNameLen: cfg.MaxCharaNameLen,
		MaxContentLen:   cfg.MaxContentLen,
		PageSize:        cfg.PageSize,
	})

	// Create router
	router := api.NewRouter(logger, svc, hub, redisClient)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting rpnow server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/voxa-signaling/config"
	"github.com/mossy-p/voxa-signaling/internal/handlers"
	"github.com/mossy-p/voxa-signaling/internal/metrics"
	"github.com/mossy-p/voxa-signaling/internal/redis"
	"github.com/mossy-p/voxa-signaling/internal/relay"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	m := metrics.New()
	observers := relay.Observers{m}

	// Presence mirror is optional; the relay itself keeps no durable state
	var presence *redis.Presence
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer client.Close()

		presence = redis.NewPresence(client, cfg.Redis.TTL)
		observers = append(observers, presence)
		log.Info().Str("addr", cfg.Redis.Addr).Str("instance", presence.Instance()).Msg("Redis presence enabled")
	}

	rl := relay.New(relay.Options{
		MaxTagLength: cfg.MaxTagLength,
		Logger:       log.With().Str("module", "relay").Logger(),
		Observer:     observers,
	})

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := handlers.Deps{Config: cfg, Relay: rl, Metrics: m}
	if presence != nil {
		deps.Presence = presence
	}
	router := handlers.NewRouter(deps)

	// Bind first so a bad port aborts startup
	listener, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Port).Msg("failed to bind listener")
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("WebRTC signaling server started")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if presence != nil {
		if err := presence.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("failed to clear presence records")
		}
	}
	log.Info().Msg("server exited")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Human-friendly output in development, JSON lines otherwise
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

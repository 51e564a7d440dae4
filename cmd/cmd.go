package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyspot-backend/internal/config"
	"studyspot-backend/internal/handlers"
	"studyspot-backend/internal/metrics"
	"studyspot-backend/internal/repository"
	"studyspot-backend/internal/repository/memory"
	"studyspot-backend/internal/repository/postgres"
	"studyspot-backend/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open storage")
	}
	defer store.Close()

	signer, err := services.NewS3Signer(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create URL signer")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize services
	hub := services.NewOccupancyHub()
	photoService := services.NewPhotoService(store.Photos, store.Spots, signer, cfg.AWS.URLTTL, m)
	svc := handlers.Services{
		Users:    services.NewUserService(store.Users, cfg.JWT.Secret, cfg.JWT.TTL),
		Spots:    services.NewSpotService(store.Spots),
		Search:   services.NewSearchService(store.Spots, store.Checkins, photoService, cfg.Search, m),
		Reviews:  services.NewReviewService(store.Reviews, store.Spots, store.Users),
		Checkins: services.NewCheckinService(store.Checkins, store.Spots, store.Users, hub, m),
		Photos:   photoService,
		Hub:      hub,
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(svc, m, registry),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("backend", cfg.Storage.Backend).
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown and close with the process
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStore(cfg *config.Config) (*repository.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := postgres.Connect(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connection established")
		return postgres.NewStore(db), nil
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

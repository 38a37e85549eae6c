package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/countdown/internal/api"
	"github.com/goodtune/countdown/internal/clock"
	"github.com/goodtune/countdown/internal/config"
	"github.com/goodtune/countdown/internal/countdown"
	"github.com/goodtune/countdown/internal/generation"
	"github.com/goodtune/countdown/internal/metrics"
	"github.com/goodtune/countdown/internal/storage"
	"github.com/goodtune/countdown/internal/storage/bolt"
	"github.com/goodtune/countdown/internal/storage/memory"
	"github.com/goodtune/countdown/internal/storage/redis"
	"github.com/goodtune/countdown/internal/storage/sqlite"
	"github.com/goodtune/countdown/internal/systemd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the countdown server",
	Long:  `Start the countdown controller with its HTTP API and metrics endpoints.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting countdown")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	store, err := openStorage(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	generator := buildGenerator(cfg.Generation, logger)
	if cfg.Generation.APIKey == "" {
		logger.Warn().Msg("No generation API key configured, content requests will fall back")
	}

	controller := countdown.New(countdown.Options{
		Store:        store,
		Generator:    generator,
		Clock:        clock.Real{},
		Logger:       logger,
		TickInterval: config.ParseDuration(cfg.Countdown.TickInterval, countdown.DefaultTickInterval),
		DeadlineHour: cfg.Countdown.DeadlineHour,
	})
	defer controller.Close()

	// Identity may also arrive later through PUT /api/identity
	if cfg.Identity.ID != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := controller.SetIdentity(ctx, cfg.Identity.ID); err != nil {
				logger.Error().Err(err).Msg("Failed to apply configured identity")
			}
		}()
	}

	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort)
	apiServer := api.NewServer(api.Config{ListenAddr: apiAddr}, controller, logger)
	if sdListeners.Activated && sdListeners.API != nil {
		apiServer.SetListener(sdListeners.API)
	}
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	metricsServer := metrics.NewServer(metricsAddr, logger)
	if sdListeners.Activated && sdListeners.Metrics != nil {
		metricsServer.SetListener(sdListeners.Metrics)
	}
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	logger.Info().Msg("Countdown startup complete")
	logger.Info().Msgf("API: http://%s", apiAddr)
	logger.Info().Msgf("Metrics: http://%s/metrics", metricsAddr)

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	watchdogCtx, stopWatchdog := context.WithCancel(context.Background())
	defer stopWatchdog()
	go systemd.RunWatchdog(watchdogCtx, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if err := apiServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping API server")
	}

	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping metrics server")
	}

	controller.Close()
	logger.Info().Msg("Countdown stopped")

	return nil
}

func openStorage(cfg config.StorageConfig, logger zerolog.Logger) (storage.DeadlineStore, error) {
	switch cfg.Type {
	case "bolt", "":
		return bolt.Open(cfg.Path)
	case "sqlite":
		return sqlite.Open(cfg.Path, logger)
	case "redis":
		return redis.Open(cfg.Redis)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func buildGenerator(cfg config.GenerationConfig, logger zerolog.Logger) generation.Generator {
	gemini := generation.NewGemini(generation.GeminiConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: config.ParseDuration(cfg.Timeout, 30*time.Second),
	})

	var generator generation.Generator = generation.NewClient(gemini, generation.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: config.ParseDuration(cfg.InitialBackoff, generation.DefaultInitialBackoff),
	}, logger)

	if cfg.CacheSize > 0 {
		generator = generation.NewCached(generator, cfg.CacheSize, config.ParseDuration(cfg.CacheTTL, time.Hour))
		logger.Info().Int("size", cfg.CacheSize).Msg("Generation cache enabled")
	}

	return generator
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"afltips/automation/internal/accuracy"
	"afltips/automation/internal/automation"
	"afltips/automation/internal/cache"
	"afltips/automation/internal/config"
	"afltips/automation/internal/ingest"
	"afltips/automation/internal/metrics"
	"afltips/automation/internal/predictor"
	"afltips/automation/internal/repository"
	"afltips/automation/internal/scheduler"
	"afltips/automation/internal/scraper"
	"afltips/automation/internal/server"
	"afltips/automation/internal/tips"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting AFL Tips Automation Worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	redisCache, err := cache.New(ctx, cache.Config{
		Addr:        cfg.RedisAddr(),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		SnapshotTTL: cfg.CacheTTLSnapshots,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
		log.Info().Msg("Redis cache connected")
	}

	scrapeClient := scraper.NewClient(cfg.ScraperBaseURL, cfg.ScraperTimeout)
	predictClient := predictor.NewClient(cfg.PredictorBaseURL, cfg.PredictorAPIKey, cfg.PredictorTimeout, cfg.PredictorRateLimit)
	log.Info().Msg("Scraper and predictor clients initialized")

	ingestPipeline := ingest.NewPipeline(scrapeClient, db.Games, ingest.Config{
		UpcomingWindowDays:  cfg.UpcomingWindowDays,
		ResultsLookbackDays: cfg.ResultsLookbackDays,
		MaxRetries:          cfg.IngestMaxRetries,
		RetryBase:           cfg.IngestRetryBase,
	})
	tipsPipeline := tips.NewPipeline(db.Games, db.Predictions, predictClient, tips.Config{
		WindowDays:   cfg.TipsWindowDays,
		ModelVersion: cfg.ModelVersion,
		BetThreshold: cfg.BetConfidenceThreshold,
	})

	var invalidator accuracy.SnapshotInvalidator
	var pinger automation.Pinger
	if redisCache != nil {
		invalidator = redisCache
		pinger = redisCache
	}
	tracker := accuracy.NewTracker(db.Predictions, db.Snapshots, invalidator)

	facade := automation.NewFacade(ingestPipeline, tipsPipeline, tracker)
	health := automation.NewHealthChecker(db, pinger)
	jobs := &automation.Jobs{
		Ingester: ingestPipeline,
		Tips:     tipsPipeline,
		Accuracy: tracker,
		Facade:   facade,
		Health:   health,
	}

	sched := scheduler.NewScheduler(cfg.SchedulerTick, cfg.StopGracePeriod)
	if err := jobs.RegisterAll(sched, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	if cfg.EnableScheduler {
		sched.Start()
	} else {
		log.Info().Msg("Scheduler disabled by configuration")
	}

	srv := server.New(server.Config{
		Port:                strconv.Itoa(cfg.ServerPort),
		UpcomingWindowDays:  cfg.UpcomingWindowDays,
		ResultsLookbackDays: cfg.ResultsLookbackDays,
	}, sched, facade, ingestPipeline, db.Snapshots, redisCache, db)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

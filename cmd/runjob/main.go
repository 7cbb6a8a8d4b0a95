// Command runjob executes a single automation job and exits. Useful for
// backfills and operational one-offs without going through the scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"afltips/automation/internal/accuracy"
	"afltips/automation/internal/automation"
	"afltips/automation/internal/cache"
	"afltips/automation/internal/config"
	"afltips/automation/internal/ingest"
	"afltips/automation/internal/predictor"
	"afltips/automation/internal/repository"
	"afltips/automation/internal/scraper"
	"afltips/automation/internal/tips"

	"github.com/rs/zerolog/log"
)

func main() {
	jobID := flag.String("job", "", "job ID to run")
	timeout := flag.Duration("timeout", 10*time.Minute, "maximum job run time")
	flag.Parse()

	cfg := config.MustLoad()
	jobs, cleanup := buildJobs(cfg)
	defer cleanup()

	if *jobID == "" {
		fmt.Fprintf(os.Stderr, "usage: runjob -job <id>\navailable jobs: %s\n", strings.Join(jobs.IDs(), ", "))
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Info().Str("job", *jobID).Msg("Running job")
	start := time.Now()
	if err := jobs.Run(ctx, *jobID); err != nil {
		log.Fatal().Err(err).Str("job", *jobID).Msg("Job failed")
	}
	log.Info().Str("job", *jobID).Dur("duration", time.Since(start)).Msg("Job complete")
}

func buildJobs(cfg *config.Config) (*automation.Jobs, func()) {
	ctx := context.Background()

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

	redisCache, err := cache.New(ctx, cache.Config{
		Addr:        cfg.RedisAddr(),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		SnapshotTTL: cfg.CacheTTLSnapshots,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	}

	scrapeClient := scraper.NewClient(cfg.ScraperBaseURL, cfg.ScraperTimeout)
	predictClient := predictor.NewClient(cfg.PredictorBaseURL, cfg.PredictorAPIKey, cfg.PredictorTimeout, cfg.PredictorRateLimit)

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

	cleanup := func() {
		if redisCache != nil {
			redisCache.Close()
		}
		db.Close()
	}
	return jobs, cleanup
}

package automation

import (
	"context"
	"fmt"
	"time"

	"afltips/automation/internal/repository"

	"github.com/rs/zerolog/log"
)

// Pinger verifies a dependency connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReport summarises one daily health check run
type HealthReport struct {
	Healthy           bool   `json:"healthy"`
	Database          string `json:"database"`
	Cache             string `json:"cache,omitempty"`
	RecentGames       int    `json:"recent_games"`
	RecentPredictions int    `json:"recent_predictions"`
}

// HealthChecker runs the daily_health_check job
type HealthChecker struct {
	db    *repository.Database
	cache Pinger
}

// NewHealthChecker creates a health checker. cache may be nil.
func NewHealthChecker(db *repository.Database, cache Pinger) *HealthChecker {
	return &HealthChecker{db: db, cache: cache}
}

// DailyHealthCheck verifies the database and cache connections and logs
// recent activity counts. An unreachable database fails the check; a
// cache failure is only logged since the system runs without it.
func (h *HealthChecker) DailyHealthCheck(ctx context.Context) (*HealthReport, error) {
	report := &HealthReport{Healthy: true, Database: "ok"}

	if err := h.db.Health(ctx); err != nil {
		report.Healthy = false
		report.Database = err.Error()
		return report, fmt.Errorf("database health check failed: %w", err)
	}

	if h.cache != nil {
		report.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			report.Cache = err.Error()
			log.Warn().Err(err).Msg("Cache unreachable during health check")
		}
	}

	since := time.Now().AddDate(0, 0, -7)
	games, err := h.db.Games.CountSince(ctx, since)
	if err != nil {
		return report, fmt.Errorf("counting recent games: %w", err)
	}
	report.RecentGames = games

	preds, err := h.db.Predictions.CountSince(ctx, since)
	if err != nil {
		return report, fmt.Errorf("counting recent predictions: %w", err)
	}
	report.RecentPredictions = preds

	if games == 0 {
		log.Warn().Msg("No games ingested in the last 7 days")
	}

	log.Info().
		Int("recent_games", games).
		Int("recent_predictions", preds).
		Msg("Daily health check passed")

	return report, nil
}

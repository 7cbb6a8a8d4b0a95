package automation

import (
	"context"
	"fmt"

	"afltips/automation/internal/config"
	"afltips/automation/internal/models"
	"afltips/automation/internal/scheduler"
)

// Job IDs as exposed by the scheduler API
const (
	JobScrapeUpcoming   = "scrape_upcoming"
	JobScrapeResults    = "scrape_results"
	JobGenerateTips     = "generate_weekly_tips"
	JobUpdateAccuracy   = "update_prediction_accuracy"
	JobFullWeeklyUpdate = "full_weekly_update"
	JobHealthCheck      = "daily_health_check"
)

// Jobs bundles every executable job in the system
type Jobs struct {
	Ingester Ingester
	Tips     TipGenerator
	Accuracy AccuracyUpdater
	Facade   *Facade
	Health   *HealthChecker
}

// Run executes one job by ID. Used by the scheduler registry and the
// one-shot runner.
func (j *Jobs) Run(ctx context.Context, id string) error {
	switch id {
	case JobScrapeUpcoming:
		_, err := j.Ingester.ScrapeUpcoming(ctx)
		return err
	case JobScrapeResults:
		_, err := j.Ingester.ScrapeResults(ctx)
		return err
	case JobGenerateTips:
		_, err := j.Tips.GenerateWeeklyTips(ctx)
		return err
	case JobUpdateAccuracy:
		_, err := j.Accuracy.UpdateAccuracy(ctx)
		return err
	case JobFullWeeklyUpdate:
		result := j.Facade.FullWeeklyUpdate(ctx)
		if !result.Success {
			return fmt.Errorf("full weekly update finished with %d failed steps", len(result.Errors))
		}
		return nil
	case JobHealthCheck:
		_, err := j.Health.DailyHealthCheck(ctx)
		return err
	default:
		return fmt.Errorf("%w: %s", scheduler.ErrJobNotFound, id)
	}
}

// IDs lists every job ID in registration order
func (j *Jobs) IDs() []string {
	return []string{
		JobScrapeUpcoming,
		JobScrapeResults,
		JobGenerateTips,
		JobUpdateAccuracy,
		JobFullWeeklyUpdate,
		JobHealthCheck,
	}
}

// RegisterAll registers every job on the scheduler with its cron trigger
// from config
func (j *Jobs) RegisterAll(sched *scheduler.Scheduler, cfg *config.Config) error {
	entries := []struct {
		id   string
		name string
		cron string
	}{
		{JobScrapeUpcoming, "Scrape upcoming fixtures", cfg.ScrapeUpcomingCron},
		{JobScrapeResults, "Scrape recent results", cfg.ScrapeResultsCron},
		{JobGenerateTips, "Generate weekly tips", cfg.GenerateTipsCron},
		{JobUpdateAccuracy, "Update prediction accuracy", cfg.UpdateAccuracyCron},
		{JobFullWeeklyUpdate, "Full weekly update", cfg.FullWeeklyUpdateCron},
		{JobHealthCheck, "Daily health check", cfg.HealthCheckCron},
	}

	for _, e := range entries {
		id := e.id
		err := sched.Register(id, e.name, models.CronTrigger(e.cron), func(ctx context.Context) error {
			return j.Run(ctx, id)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

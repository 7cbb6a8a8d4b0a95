package automation

import (
	"context"
	"time"

	"afltips/automation/internal/accuracy"
	"afltips/automation/internal/ingest"
	"afltips/automation/internal/tips"

	"github.com/rs/zerolog/log"
)

// Step names as reported in full-update results
const (
	StepScrapeUpcoming = "scrape_upcoming"
	StepScrapeResults  = "scrape_results"
	StepUpdateAccuracy = "update_prediction_accuracy"
	StepGenerateTips   = "generate_weekly_tips"
)

// Ingester scrapes and stores games
type Ingester interface {
	ScrapeUpcoming(ctx context.Context) (*ingest.Summary, error)
	ScrapeResults(ctx context.Context) (*ingest.Summary, error)
}

// TipGenerator produces predictions for upcoming games
type TipGenerator interface {
	GenerateWeeklyTips(ctx context.Context) (*tips.Summary, error)
}

// AccuracyUpdater resolves predictions and recomputes snapshots
type AccuracyUpdater interface {
	UpdateAccuracy(ctx context.Context) (*accuracy.Summary, error)
}

// StepError records which step of a full update failed and why
type StepError struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// Result is the outcome of one full weekly update
type Result struct {
	Success        bool        `json:"success"`
	StepsCompleted []string    `json:"steps_completed"`
	Errors         []StepError `json:"errors,omitempty"`
}

// Facade runs the weekly maintenance sequence as a single operation
type Facade struct {
	ingester Ingester
	tips     TipGenerator
	accuracy AccuracyUpdater
}

// NewFacade creates the automation facade
func NewFacade(ingester Ingester, tipGen TipGenerator, tracker AccuracyUpdater) *Facade {
	return &Facade{ingester: ingester, tips: tipGen, accuracy: tracker}
}

// FullWeeklyUpdate runs scraping, accuracy update and tip generation in a
// fixed order. A failed step is recorded and the remaining steps still
// run; accuracy is updated before tips so new results are resolved first.
func (f *Facade) FullWeeklyUpdate(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{Success: true, StepsCompleted: []string{}}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{StepScrapeUpcoming, func(ctx context.Context) error {
			_, err := f.ingester.ScrapeUpcoming(ctx)
			return err
		}},
		{StepScrapeResults, func(ctx context.Context) error {
			_, err := f.ingester.ScrapeResults(ctx)
			return err
		}},
		{StepUpdateAccuracy, func(ctx context.Context) error {
			_, err := f.accuracy.UpdateAccuracy(ctx)
			return err
		}},
		{StepGenerateTips, func(ctx context.Context) error {
			_, err := f.tips.GenerateWeeklyTips(ctx)
			return err
		}},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			result.Success = false
			result.Errors = append(result.Errors, StepError{Step: step.name, Error: err.Error()})
			log.Error().Err(err).Str("step", step.name).Msg("Full weekly update step failed")
			continue
		}
		result.StepsCompleted = append(result.StepsCompleted, step.name)
	}

	log.Info().
		Bool("success", result.Success).
		Strs("steps_completed", result.StepsCompleted).
		Int("errors", len(result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Full weekly update complete")

	return result
}

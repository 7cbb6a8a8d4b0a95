package ingest

import (
	"context"
	"fmt"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"
	"afltips/automation/internal/scraper"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Scraper fetches raw game data from the external data source
type Scraper interface {
	FetchUpcoming(ctx context.Context, days int) ([]models.RawGame, error)
	FetchResults(ctx context.Context, since time.Time) ([]models.RawGame, error)
}

// GameStore persists games keyed by dedup key
type GameStore interface {
	Upsert(ctx context.Context, game *models.Game) (bool, error)
}

// Config holds ingestion tunables
type Config struct {
	UpcomingWindowDays  int
	ResultsLookbackDays int
	MaxRetries          int
	RetryBase           time.Duration
}

// RecordError pairs a failed record with its error
type RecordError struct {
	Record models.RawGame `json:"record"`
	Error  string         `json:"error"`
}

// Summary is the structured outcome of one ingestion run
type Summary struct {
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Failed   []RecordError `json:"failed,omitempty"`
}

// Pipeline turns scraped records into deduplicated game rows
type Pipeline struct {
	scraper Scraper
	games   GameStore
	cfg     Config
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(s Scraper, games GameStore, cfg Config) *Pipeline {
	return &Pipeline{scraper: s, games: games, cfg: cfg}
}

// ScrapeUpcoming ingests games scheduled inside the upcoming window
func (p *Pipeline) ScrapeUpcoming(ctx context.Context) (*Summary, error) {
	return p.ScrapeUpcomingWindow(ctx, p.cfg.UpcomingWindowDays)
}

// ScrapeUpcomingWindow ingests fixtures inside an explicit window
func (p *Pipeline) ScrapeUpcomingWindow(ctx context.Context, days int) (*Summary, error) {
	return p.run(ctx, "upcoming", func(ctx context.Context) ([]models.RawGame, error) {
		return p.scraper.FetchUpcoming(ctx, days)
	})
}

// ScrapeResults ingests results of recently finished games
func (p *Pipeline) ScrapeResults(ctx context.Context) (*Summary, error) {
	return p.ScrapeResultsWindow(ctx, p.cfg.ResultsLookbackDays)
}

// ScrapeResultsWindow ingests results from an explicit lookback window
func (p *Pipeline) ScrapeResultsWindow(ctx context.Context, days int) (*Summary, error) {
	since := time.Now().AddDate(0, 0, -days)
	return p.run(ctx, "results", func(ctx context.Context) ([]models.RawGame, error) {
		return p.scraper.FetchResults(ctx, since)
	})
}

func (p *Pipeline) run(ctx context.Context, kind string, fetch func(context.Context) ([]models.RawGame, error)) (*Summary, error) {
	start := time.Now()

	var raws []models.RawGame
	operation := func() error {
		var err error
		raws, err = fetch(ctx)
		if err != nil && !scraper.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("kind", kind).Dur("backoff", wait).Msg("Scrape failed, retrying")
	}

	if err := backoff.RetryNotify(operation, p.newBackOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to fetch %s games: %w", kind, err)
	}

	// Records are processed independently: one bad record never aborts
	// the batch.
	summary := &Summary{}
	for _, raw := range raws {
		inserted, err := p.ingestRecord(ctx, raw)
		if err != nil {
			class := "transient"
			if !scraper.IsTransient(err) {
				class = "fatal"
			}
			metrics.IngestRecordFailures.WithLabelValues(class).Inc()
			log.Error().
				Err(err).
				Str("external_id", raw.ExternalID).
				Str("home", raw.HomeTeam).
				Str("away", raw.AwayTeam).
				Msg("Failed to ingest record")
			summary.Failed = append(summary.Failed, RecordError{Record: raw, Error: err.Error()})
			continue
		}
		if inserted {
			summary.Inserted++
			metrics.GamesInserted.WithLabelValues("inserted").Inc()
		} else {
			summary.Updated++
			metrics.GamesInserted.WithLabelValues("updated").Inc()
		}
	}

	log.Info().
		Str("kind", kind).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("failed", len(summary.Failed)).
		Dur("duration", time.Since(start)).
		Msg("Ingestion run complete")

	return summary, nil
}

// ingestRecord converts and upserts one record, retrying transient store
// failures with exponential backoff. Malformed records are not retried.
func (p *Pipeline) ingestRecord(ctx context.Context, raw models.RawGame) (bool, error) {
	game, err := raw.ToGame()
	if err != nil {
		return false, &scraper.FatalError{Err: err}
	}

	var inserted bool
	operation := func() error {
		var err error
		inserted, err = p.games.Upsert(ctx, game)
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("dedup_key", game.DedupKey).Dur("backoff", wait).Msg("Upsert failed, retrying")
	}

	if err := backoff.RetryNotify(operation, p.newBackOff(ctx), notify); err != nil {
		return false, err
	}

	return inserted, nil
}

func (p *Pipeline) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	if p.cfg.RetryBase > 0 {
		bo.InitialInterval = p.cfg.RetryBase
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.MaxRetries)), ctx)
}

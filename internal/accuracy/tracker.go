package accuracy

import (
	"context"
	"fmt"
	"math"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"
	"afltips/automation/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PredictionStore supplies unresolved rows and resolved history
type PredictionStore interface {
	ListUnresolved(ctx context.Context) ([]repository.UnresolvedPrediction, error)
	ResolveCorrectness(ctx context.Context, predictionID int, correct bool) error
	ListResolved(ctx context.Context, since time.Time) ([]*models.Prediction, error)
}

// SnapshotStore persists one snapshot row per period
type SnapshotStore interface {
	Overwrite(ctx context.Context, snap *models.AccuracySnapshot) error
}

// SnapshotInvalidator drops cached snapshots after a recompute
type SnapshotInvalidator interface {
	InvalidateSnapshots(ctx context.Context) error
}

// Summary is the structured outcome of one accuracy update run
type Summary struct {
	Resolved  int      `json:"resolved"`
	Snapshots []string `json:"snapshots"`
}

// Tracker resolves prediction correctness and maintains accuracy snapshots
type Tracker struct {
	predictions PredictionStore
	snapshots   SnapshotStore
	cache       SnapshotInvalidator
}

// NewTracker creates a new accuracy tracker. cache may be nil.
func NewTracker(predictions PredictionStore, snapshots SnapshotStore, cache SnapshotInvalidator) *Tracker {
	return &Tracker{predictions: predictions, snapshots: snapshots, cache: cache}
}

// UpdateAccuracy resolves every prediction whose game has finished, then
// recomputes the daily, weekly and all-time snapshots. A snapshot failure
// does not undo resolutions already written.
func (t *Tracker) UpdateAccuracy(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	unresolved, err := t.predictions.ListUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unresolved predictions: %w", err)
	}

	for _, u := range unresolved {
		// A drawn game counts against the prediction.
		correct := u.ActualWinner != "" && u.ActualWinner == u.PredictedWinner
		if err := t.predictions.ResolveCorrectness(ctx, u.PredictionID, correct); err != nil {
			return summary, fmt.Errorf("resolving prediction %d: %w", u.PredictionID, err)
		}
		summary.Resolved++
		metrics.PredictionsResolved.Inc()
	}

	now := time.Now()
	periods := []struct {
		name  string
		since time.Time
	}{
		{models.PeriodDaily, now.Add(-24 * time.Hour)},
		{models.PeriodWeekly, now.AddDate(0, 0, -7)},
		{models.PeriodAllTime, time.Time{}},
	}

	for _, p := range periods {
		snap, err := t.computeSnapshot(ctx, p.name, p.since, now)
		if err != nil {
			return summary, fmt.Errorf("computing %s snapshot: %w", p.name, err)
		}
		if err := t.snapshots.Overwrite(ctx, snap); err != nil {
			return summary, fmt.Errorf("writing %s snapshot: %w", p.name, err)
		}
		summary.Snapshots = append(summary.Snapshots, p.name)
		metrics.SnapshotAccuracy.WithLabelValues(p.name).Set(snap.AccuracyPct)
	}

	if t.cache != nil {
		if err := t.cache.InvalidateSnapshots(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate snapshot cache")
		}
	}

	log.Info().
		Int("resolved", summary.Resolved).
		Strs("snapshots", summary.Snapshots).
		Dur("duration", time.Since(start)).
		Msg("Accuracy update complete")

	return summary, nil
}

func (t *Tracker) computeSnapshot(ctx context.Context, period string, since, computedAt time.Time) (*models.AccuracySnapshot, error) {
	resolved, err := t.predictions.ListResolved(ctx, since)
	if err != nil {
		return nil, err
	}
	return buildSnapshot(period, computedAt, resolved), nil
}

// buildSnapshot aggregates resolved predictions into a snapshot. Given the
// same rows it always produces the same snapshot.
func buildSnapshot(period string, computedAt time.Time, resolved []*models.Prediction) *models.AccuracySnapshot {
	snap := &models.AccuracySnapshot{
		Period:     period,
		ComputedAt: computedAt,
		Tiers:      map[string]models.TierStats{},
	}

	staked := decimal.Zero
	net := decimal.Zero
	one := decimal.NewFromInt(1)

	for _, pred := range resolved {
		correct := pred.IsCorrect.Valid && pred.IsCorrect.Bool

		snap.Total++
		if correct {
			snap.Correct++
		}

		tier := models.ConfidenceTier(pred.ConfidenceScore)
		stats := snap.Tiers[tier]
		stats.Total++
		if correct {
			stats.Correct++
		}
		snap.Tiers[tier] = stats

		if pred.RecommendedBet != models.BetNone {
			// Unit stake per bet: win pays even money, loss forfeits the stake.
			snap.BetsPlaced++
			staked = staked.Add(one)
			if correct {
				snap.BetsWon++
				net = net.Add(one)
			} else {
				net = net.Sub(one)
			}
		}
	}

	snap.AccuracyPct = roundPct(snap.Correct, snap.Total)
	for tier, stats := range snap.Tiers {
		stats.AccuracyPct = roundPct(stats.Correct, stats.Total)
		snap.Tiers[tier] = stats
	}
	if snap.BetsPlaced > 0 {
		roi, _ := net.Div(staked).Round(4).Float64()
		snap.BettingROI = roi
	}

	return snap
}

// roundPct returns correct/total as a percentage rounded to one decimal
func roundPct(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

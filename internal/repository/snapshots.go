package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"afltips/automation/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// SnapshotRepository handles accuracy snapshot database operations
type SnapshotRepository struct {
	db *Database
}

// Overwrite replaces the snapshot for the given period, inserting it when
// none exists. One row per period, always the latest computation.
func (r *SnapshotRepository) Overwrite(ctx context.Context, snap *models.AccuracySnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	tiers, err := json.Marshal(snap.Tiers)
	if err != nil {
		return fmt.Errorf("failed to marshal tier breakdown: %w", err)
	}

	query := `
		INSERT INTO accuracy_snapshots (
			period, computed_at, total, correct, accuracy_pct,
			tiers, bets_placed, bets_won, betting_roi
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (period) DO UPDATE SET
			computed_at = EXCLUDED.computed_at,
			total = EXCLUDED.total,
			correct = EXCLUDED.correct,
			accuracy_pct = EXCLUDED.accuracy_pct,
			tiers = EXCLUDED.tiers,
			bets_placed = EXCLUDED.bets_placed,
			bets_won = EXCLUDED.bets_won,
			betting_roi = EXCLUDED.betting_roi
		RETURNING id
	`

	err = r.db.Pool.QueryRow(ctx, query,
		snap.Period, snap.ComputedAt, snap.Total, snap.Correct, snap.AccuracyPct,
		tiers, snap.BetsPlaced, snap.BetsWon, snap.BettingROI,
	).Scan(&snap.ID)

	if err != nil {
		return fmt.Errorf("failed to overwrite snapshot: %w", err)
	}

	log.Debug().
		Str("period", snap.Period).
		Int("total", snap.Total).
		Float64("accuracy_pct", snap.AccuracyPct).
		Msg("Accuracy snapshot written")

	return nil
}

// GetByPeriod retrieves the latest snapshot for a period, or nil when the
// period has never been computed
func (r *SnapshotRepository) GetByPeriod(ctx context.Context, period string) (*models.AccuracySnapshot, error) {
	query := `
		SELECT id, period, computed_at, total, correct, accuracy_pct,
		       tiers, bets_placed, bets_won, betting_roi
		FROM accuracy_snapshots
		WHERE period = $1
	`

	snap := &models.AccuracySnapshot{}
	var tiers []byte
	err := r.db.Pool.QueryRow(ctx, query, period).Scan(
		&snap.ID, &snap.Period, &snap.ComputedAt, &snap.Total, &snap.Correct,
		&snap.AccuracyPct, &tiers, &snap.BetsPlaced, &snap.BetsWon, &snap.BettingROI,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &snap.Tiers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tier breakdown: %w", err)
		}
	}

	return snap, nil
}

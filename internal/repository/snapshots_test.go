package repository

import (
	"testing"
	"time"

	"afltips/automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRepository_OverwritePerPeriod(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	snap := &models.AccuracySnapshot{
		Period:      models.PeriodWeekly,
		ComputedAt:  time.Now(),
		Total:       3,
		Correct:     2,
		AccuracyPct: 66.7,
		Tiers: map[string]models.TierStats{
			models.TierHigh: {Total: 2, Correct: 2, AccuracyPct: 100},
			models.TierLow:  {Total: 1, Correct: 0, AccuracyPct: 0},
		},
		BetsPlaced: 2,
		BetsWon:    2,
		BettingROI: 1,
	}
	require.NoError(t, db.Snapshots.Overwrite(ctx, snap))
	firstID := snap.ID

	// Recomputation replaces the period's row instead of appending
	snap.Total = 5
	snap.Correct = 4
	snap.AccuracyPct = 80
	require.NoError(t, db.Snapshots.Overwrite(ctx, snap))
	assert.Equal(t, firstID, snap.ID, "Same row is reused per period")

	stored, err := db.Snapshots.GetByPeriod(ctx, models.PeriodWeekly)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 5, stored.Total)
	assert.Equal(t, 80.0, stored.AccuracyPct)
	assert.Equal(t, 2, stored.Tiers[models.TierHigh].Correct)

	// Other periods are untouched
	daily, err := db.Snapshots.GetByPeriod(ctx, models.PeriodDaily)
	require.NoError(t, err)
	assert.Nil(t, daily)
}

func TestSnapshotRepository_OverwriteNil(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	assert.Error(t, db.Snapshots.Overwrite(ctx, nil))
}

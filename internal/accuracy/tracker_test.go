package accuracy

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"afltips/automation/internal/models"
	"afltips/automation/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePredictionStore struct {
	unresolved []repository.UnresolvedPrediction
	resolved   []*models.Prediction
	outcomes   map[int]bool
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{outcomes: map[int]bool{}}
}

func (f *fakePredictionStore) ListUnresolved(ctx context.Context) ([]repository.UnresolvedPrediction, error) {
	return f.unresolved, nil
}

func (f *fakePredictionStore) ResolveCorrectness(ctx context.Context, predictionID int, correct bool) error {
	f.outcomes[predictionID] = correct
	return nil
}

func (f *fakePredictionStore) ListResolved(ctx context.Context, since time.Time) ([]*models.Prediction, error) {
	return f.resolved, nil
}

type fakeSnapshotStore struct {
	written map[string]*models.AccuracySnapshot
	err     error
}

func (f *fakeSnapshotStore) Overwrite(ctx context.Context, snap *models.AccuracySnapshot) error {
	if f.err != nil {
		return f.err
	}
	if f.written == nil {
		f.written = map[string]*models.AccuracySnapshot{}
	}
	f.written[snap.Period] = snap
	return nil
}

func resolvedPrediction(confidence float64, correct bool, bet string) *models.Prediction {
	return &models.Prediction{
		PredictedWinner: models.BetHome,
		ConfidenceScore: confidence,
		RecommendedBet:  bet,
		IsCorrect:       sql.NullBool{Bool: correct, Valid: true},
	}
}

func TestUpdateAccuracy_ResolvesFinishedGames(t *testing.T) {
	preds := newFakePredictionStore()
	preds.unresolved = []repository.UnresolvedPrediction{
		{PredictionID: 1, GameID: 10, PredictedWinner: models.BetHome, ActualWinner: models.BetHome},
		{PredictionID: 2, GameID: 11, PredictedWinner: models.BetAway, ActualWinner: models.BetHome},
		{PredictionID: 3, GameID: 12, PredictedWinner: models.BetHome, ActualWinner: ""}, // draw
	}
	snaps := &fakeSnapshotStore{}

	tracker := NewTracker(preds, snaps, nil)
	summary, err := tracker.UpdateAccuracy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Resolved)
	assert.True(t, preds.outcomes[1])
	assert.False(t, preds.outcomes[2])
	assert.False(t, preds.outcomes[3], "a draw counts against the prediction")
	assert.ElementsMatch(t, []string{models.PeriodDaily, models.PeriodWeekly, models.PeriodAllTime}, summary.Snapshots)
	assert.Len(t, snaps.written, 3)
}

func TestUpdateAccuracy_SnapshotFailureKeepsResolutions(t *testing.T) {
	preds := newFakePredictionStore()
	preds.unresolved = []repository.UnresolvedPrediction{
		{PredictionID: 1, GameID: 10, PredictedWinner: models.BetHome, ActualWinner: models.BetHome},
	}
	snaps := &fakeSnapshotStore{err: errors.New("disk full")}

	tracker := NewTracker(preds, snaps, nil)
	summary, err := tracker.UpdateAccuracy(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, summary.Resolved, "resolutions persist even when snapshots fail")
	assert.True(t, preds.outcomes[1])
}

func TestBuildSnapshot_TwoOfThree(t *testing.T) {
	resolved := []*models.Prediction{
		resolvedPrediction(0.9, true, models.BetHome),
		resolvedPrediction(0.85, true, models.BetHome),
		resolvedPrediction(0.65, false, models.BetNone),
	}

	snap := buildSnapshot(models.PeriodAllTime, time.Now(), resolved)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 2, snap.Correct)
	assert.Equal(t, 66.7, snap.AccuracyPct)

	high := snap.Tiers[models.TierHigh]
	assert.Equal(t, 2, high.Total)
	assert.Equal(t, 2, high.Correct)
	assert.Equal(t, 100.0, high.AccuracyPct)

	medium := snap.Tiers[models.TierMedium]
	assert.Equal(t, 1, medium.Total)
	assert.Equal(t, 0, medium.Correct)
}

func TestBuildSnapshot_BettingROI(t *testing.T) {
	resolved := []*models.Prediction{
		resolvedPrediction(0.9, true, models.BetHome),
		resolvedPrediction(0.8, true, models.BetAway),
		resolvedPrediction(0.75, false, models.BetHome),
		resolvedPrediction(0.5, false, models.BetNone),
	}

	snap := buildSnapshot(models.PeriodWeekly, time.Now(), resolved)
	assert.Equal(t, 3, snap.BetsPlaced)
	assert.Equal(t, 2, snap.BetsWon)
	// +1 +1 -1 over 3 unit stakes
	assert.InDelta(t, 0.3333, snap.BettingROI, 0.0001)
}

func TestBuildSnapshot_Empty(t *testing.T) {
	snap := buildSnapshot(models.PeriodDaily, time.Now(), nil)
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.AccuracyPct)
	assert.Equal(t, 0.0, snap.BettingROI)
}

func TestBuildSnapshot_Deterministic(t *testing.T) {
	resolved := []*models.Prediction{
		resolvedPrediction(0.9, true, models.BetHome),
		resolvedPrediction(0.6, false, models.BetNone),
	}
	at := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	first := buildSnapshot(models.PeriodAllTime, at, resolved)
	second := buildSnapshot(models.PeriodAllTime, at, resolved)
	assert.Equal(t, first, second)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"afltips/automation/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PredictionRepository handles prediction database operations
type PredictionRepository struct {
	db *Database
}

// Create inserts a prediction; a prediction already existing for the same
// (game_id, model_version) is left untouched. Returns true when a new row
// was created, which is what makes tip generation idempotent.
func (r *PredictionRepository) Create(ctx context.Context, pred *models.Prediction) (bool, error) {
	if pred == nil {
		return false, fmt.Errorf("prediction cannot be nil")
	}

	if err := validatePrediction(pred); err != nil {
		return false, fmt.Errorf("prediction validation failed: %w", err)
	}

	query := `
		INSERT INTO predictions (
			game_id, model_version, predicted_winner,
			predicted_home_score, predicted_away_score, confidence_score,
			recommended_bet, bet_confidence, reasoning, factors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id, model_version) DO NOTHING
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		pred.GameID, pred.ModelVersion, pred.PredictedWinner,
		pred.PredictedHomeScore, pred.PredictedAwayScore, pred.ConfidenceScore,
		pred.RecommendedBet, pred.BetConfidence, pred.Reasoning, pred.Factors,
	).Scan(&pred.ID, &pred.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict: prediction already exists for this game and model version
		return false, nil
	}
	if err != nil {
		log.Error().Err(err).Int("game_id", pred.GameID).Msg("Failed to insert prediction")
		return false, fmt.Errorf("failed to create prediction: %w", err)
	}

	log.Info().Int("id", pred.ID).Int("game_id", pred.GameID).Msg("Prediction created")
	return true, nil
}

// GetByGame retrieves the prediction for a game and model version
func (r *PredictionRepository) GetByGame(ctx context.Context, gameID int, modelVersion string) (*models.Prediction, error) {
	query := `
		SELECT id, game_id, model_version, predicted_winner,
		       predicted_home_score, predicted_away_score, confidence_score,
		       recommended_bet, bet_confidence, reasoning, factors,
		       is_correct, created_at
		FROM predictions
		WHERE game_id = $1 AND model_version = $2
	`

	pred := &models.Prediction{}
	err := r.db.Pool.QueryRow(ctx, query, gameID, modelVersion).Scan(
		&pred.ID, &pred.GameID, &pred.ModelVersion, &pred.PredictedWinner,
		&pred.PredictedHomeScore, &pred.PredictedAwayScore, &pred.ConfidenceScore,
		&pred.RecommendedBet, &pred.BetConfidence, &pred.Reasoning, &pred.Factors,
		&pred.IsCorrect, &pred.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return pred, nil
}

// ResolveCorrectness sets a prediction's is_correct flag
func (r *PredictionRepository) ResolveCorrectness(ctx context.Context, id int, correct bool) error {
	query := `UPDATE predictions SET is_correct = $1 WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, correct, id)
	if err != nil {
		return fmt.Errorf("failed to resolve prediction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction not found: id=%d", id)
	}

	return nil
}

// ListResolved retrieves predictions already scored against outcomes,
// created on or after since. A zero since returns the full history.
// Ordered by id so identical data always aggregates identically.
func (r *PredictionRepository) ListResolved(ctx context.Context, since time.Time) ([]*models.Prediction, error) {
	query := `
		SELECT id, game_id, model_version, predicted_winner,
		       predicted_home_score, predicted_away_score, confidence_score,
		       recommended_bet, bet_confidence, reasoning, factors,
		       is_correct, created_at
		FROM predictions
		WHERE is_correct IS NOT NULL AND ($1::timestamptz IS NULL OR created_at >= $1)
		ORDER BY id
	`

	var arg interface{}
	if !since.IsZero() {
		arg = since
	}

	rows, err := r.db.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved predictions: %w", err)
	}
	defer rows.Close()

	var preds []*models.Prediction
	for rows.Next() {
		pred := &models.Prediction{}
		err := rows.Scan(
			&pred.ID, &pred.GameID, &pred.ModelVersion, &pred.PredictedWinner,
			&pred.PredictedHomeScore, &pred.PredictedAwayScore, &pred.ConfidenceScore,
			&pred.RecommendedBet, &pred.BetConfidence, &pred.Reasoning, &pred.Factors,
			&pred.IsCorrect, &pred.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, pred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return preds, nil
}

// CountSince returns the number of predictions created on or after the
// given time. A zero time counts all predictions.
func (r *PredictionRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM predictions WHERE $1::timestamptz IS NULL OR created_at >= $1`

	var arg interface{}
	if !since.IsZero() {
		arg = since
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}

	return count, nil
}

// validatePrediction ensures prediction data is valid before insertion
func validatePrediction(pred *models.Prediction) error {
	if pred.GameID <= 0 {
		return fmt.Errorf("game_id must be positive")
	}
	if pred.ModelVersion == "" {
		return fmt.Errorf("model_version is required")
	}
	if pred.PredictedWinner != models.BetHome && pred.PredictedWinner != models.BetAway {
		return fmt.Errorf("predicted_winner must be home or away")
	}
	if pred.ConfidenceScore < 0 || pred.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score must be between 0 and 1")
	}
	switch pred.RecommendedBet {
	case models.BetHome, models.BetAway, models.BetNone:
	default:
		return fmt.Errorf("recommended_bet must be home, away or none")
	}
	return nil
}

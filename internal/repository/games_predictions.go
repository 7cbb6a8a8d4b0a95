package repository

import (
	"context"
	"fmt"
	"time"

	"afltips/automation/internal/models"
)

// Cross-entity queries joining games and predictions.

// UnresolvedPrediction pairs an unscored prediction with its game's outcome
type UnresolvedPrediction struct {
	PredictionID    int
	GameID          int
	PredictedWinner string
	ActualWinner    string // home|away, empty for a draw
}

// ListUnresolved retrieves predictions for finished games whose is_correct
// flag has not been set yet
func (r *PredictionRepository) ListUnresolved(ctx context.Context) ([]UnresolvedPrediction, error) {
	query := `
		SELECT p.id, p.game_id, p.predicted_winner, g.home_score, g.away_score
		FROM predictions p
		JOIN games g ON g.id = p.game_id
		WHERE g.finished = true
		  AND p.is_correct IS NULL
		  AND g.home_score IS NOT NULL
		  AND g.away_score IS NOT NULL
		ORDER BY p.id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved predictions: %w", err)
	}
	defer rows.Close()

	var unresolved []UnresolvedPrediction
	for rows.Next() {
		var up UnresolvedPrediction
		var homeScore, awayScore int32
		if err := rows.Scan(&up.PredictionID, &up.GameID, &up.PredictedWinner, &homeScore, &awayScore); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved prediction: %w", err)
		}
		switch {
		case homeScore > awayScore:
			up.ActualWinner = models.BetHome
		case awayScore > homeScore:
			up.ActualWinner = models.BetAway
		}
		unresolved = append(unresolved, up)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unresolved predictions: %w", err)
	}

	return unresolved, nil
}

// UnpredictedUpcoming retrieves unfinished games in the window (now, until]
// that have no prediction for the given model version
func (r *GameRepository) UnpredictedUpcoming(ctx context.Context, until time.Time, modelVersion string) ([]*models.Game, error) {
	query := `
		SELECT` + gameColumns + `
		FROM games
		WHERE finished = false
		  AND game_date > NOW()
		  AND game_date <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM predictions p
			WHERE p.game_id = games.id AND p.model_version = $2
		  )
		ORDER BY game_date
	`

	rows, err := r.db.Pool.Query(ctx, query, until, modelVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to get unpredicted games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

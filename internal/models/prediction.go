package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Bet recommendation sides
const (
	BetHome = "home"
	BetAway = "away"
	BetNone = "none"
)

// Prediction represents an AI prediction for a game.
// Unique per (game_id, model_version); is_correct stays null until the
// game finishes and the accuracy tracker resolves it.
type Prediction struct {
	ID           int    `db:"id"`
	GameID       int    `db:"game_id"`
	ModelVersion string `db:"model_version"`

	PredictedWinner    string  `db:"predicted_winner"` // home|away
	PredictedHomeScore int     `db:"predicted_home_score"`
	PredictedAwayScore int     `db:"predicted_away_score"`
	ConfidenceScore    float64 `db:"confidence_score"` // 0.0 to 1.0

	RecommendedBet string  `db:"recommended_bet"` // home|away|none
	BetConfidence  float64 `db:"bet_confidence"`

	Reasoning string          `db:"reasoning"`
	Factors   json.RawMessage `db:"factors"` // JSONB list of factors

	IsCorrect sql.NullBool `db:"is_correct"`
	CreatedAt time.Time    `db:"created_at"`
}

// PredictorResponse is the inference service's answer for one game
type PredictorResponse struct {
	HomeWinProb        float64  `json:"home_win_prob"`
	AwayWinProb        float64  `json:"away_win_prob"`
	DrawProb           float64  `json:"draw_prob,omitempty"`
	PredictedHomeScore int      `json:"predicted_home_score"`
	PredictedAwayScore int      `json:"predicted_away_score"`
	Reasoning          string   `json:"reasoning"`
	Factors            []string `json:"factors"`
}

// Validate checks the response is usable before it is turned into a row.
func (pr *PredictorResponse) Validate() error {
	probs := map[string]float64{
		"home_win_prob": pr.HomeWinProb,
		"away_win_prob": pr.AwayWinProb,
		"draw_prob":     pr.DrawProb,
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s %.3f outside [0,1]", name, p)
		}
	}
	if pr.PredictedHomeScore < 0 || pr.PredictedAwayScore < 0 {
		return fmt.Errorf("negative predicted score %d/%d", pr.PredictedHomeScore, pr.PredictedAwayScore)
	}
	return nil
}

// ToPrediction converts a validated response into a Prediction.
// Confidence is the highest outcome probability; a bet is recommended on the
// favored side only when confidence reaches betThreshold.
func (pr *PredictorResponse) ToPrediction(gameID int, modelVersion string, betThreshold float64) *Prediction {
	winner := BetHome
	if pr.AwayWinProb > pr.HomeWinProb {
		winner = BetAway
	}

	confidence := pr.HomeWinProb
	if pr.AwayWinProb > confidence {
		confidence = pr.AwayWinProb
	}
	if pr.DrawProb > confidence {
		confidence = pr.DrawProb
	}

	pred := &Prediction{
		GameID:             gameID,
		ModelVersion:       modelVersion,
		PredictedWinner:    winner,
		PredictedHomeScore: pr.PredictedHomeScore,
		PredictedAwayScore: pr.PredictedAwayScore,
		ConfidenceScore:    confidence,
		RecommendedBet:     BetNone,
	}

	if confidence >= betThreshold {
		pred.RecommendedBet = winner
		pred.BetConfidence = confidence
	}

	pred.Reasoning = pr.Reasoning
	if factors, err := json.Marshal(pr.Factors); err == nil {
		pred.Factors = factors
	}

	return pred
}

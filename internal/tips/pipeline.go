package tips

import (
	"context"
	"errors"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"
	"afltips/automation/internal/predictor"

	"github.com/rs/zerolog/log"
)

const (
	recentFormGames = 5
	headToHeadGames = 10
)

// GameStore provides game selection and history queries
type GameStore interface {
	UnpredictedUpcoming(ctx context.Context, until time.Time, modelVersion string) ([]*models.Game, error)
	RecentForm(ctx context.Context, team string, limit int) ([]*models.Game, error)
	HeadToHead(ctx context.Context, teamA, teamB string, limit int) ([]*models.Game, error)
}

// PredictionStore persists predictions keyed by (game_id, model_version)
type PredictionStore interface {
	Create(ctx context.Context, pred *models.Prediction) (bool, error)
}

// Predictor produces a prediction for one game
type Predictor interface {
	Predict(ctx context.Context, game *models.Game, gameCtx predictor.GameContext) (*models.PredictorResponse, error)
}

// Config holds tip generation tunables
type Config struct {
	WindowDays   int
	ModelVersion string
	BetThreshold float64
}

// GameError pairs a skipped game with the reason
type GameError struct {
	GameID   int    `json:"game_id"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	Error    string `json:"error"`
}

// Summary is the structured outcome of one tip generation run
type Summary struct {
	Generated int         `json:"generated"`
	Skipped   int         `json:"skipped"`
	Failed    []GameError `json:"failed,omitempty"`
}

// Pipeline generates predictions for upcoming games that have none yet
type Pipeline struct {
	games       GameStore
	predictions PredictionStore
	predictor   Predictor
	cfg         Config
}

// NewPipeline creates a new prediction pipeline
func NewPipeline(games GameStore, predictions PredictionStore, p Predictor, cfg Config) *Pipeline {
	return &Pipeline{games: games, predictions: predictions, predictor: p, cfg: cfg}
}

// GenerateWeeklyTips predicts every unpredicted game inside the upcoming
// window. Re-running without new games or a model version change writes
// zero rows. A predictor failure skips that game only.
func (p *Pipeline) GenerateWeeklyTips(ctx context.Context) (*Summary, error) {
	start := time.Now()
	until := time.Now().AddDate(0, 0, p.cfg.WindowDays)

	games, err := p.games.UnpredictedUpcoming(ctx, until, p.cfg.ModelVersion)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	if len(games) == 0 {
		log.Info().Msg("No upcoming games found for tip generation")
		return summary, nil
	}

	for _, game := range games {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		resp, err := p.predictGame(ctx, game)
		if err != nil {
			reason := "predictor_unavailable"
			if errors.Is(err, predictor.ErrMalformedResponse) {
				reason = "malformed_response"
			}
			metrics.PredictionsSkipped.WithLabelValues(reason).Inc()
			log.Warn().
				Err(err).
				Int("game_id", game.ID).
				Str("home", game.HomeTeam).
				Str("away", game.AwayTeam).
				Msg("Skipping game, prediction failed")
			summary.Failed = append(summary.Failed, GameError{
				GameID:   game.ID,
				HomeTeam: game.HomeTeam,
				AwayTeam: game.AwayTeam,
				Error:    err.Error(),
			})
			continue
		}

		pred := resp.ToPrediction(game.ID, p.cfg.ModelVersion, p.cfg.BetThreshold)
		created, err := p.predictions.Create(ctx, pred)
		if err != nil {
			summary.Failed = append(summary.Failed, GameError{
				GameID:   game.ID,
				HomeTeam: game.HomeTeam,
				AwayTeam: game.AwayTeam,
				Error:    err.Error(),
			})
			continue
		}
		if !created {
			// Lost a race with a concurrent run; the existing row wins.
			summary.Skipped++
			continue
		}

		summary.Generated++
		metrics.PredictionsGenerated.Inc()
	}

	log.Info().
		Int("games", len(games)).
		Int("generated", summary.Generated).
		Int("skipped", summary.Skipped).
		Int("failed", len(summary.Failed)).
		Dur("duration", time.Since(start)).
		Msg("Tip generation complete")

	return summary, nil
}

// predictGame assembles the historical context and calls the predictor
func (p *Pipeline) predictGame(ctx context.Context, game *models.Game) (*models.PredictorResponse, error) {
	gameCtx, err := p.buildContext(ctx, game)
	if err != nil {
		return nil, err
	}
	return p.predictor.Predict(ctx, game, gameCtx)
}

func (p *Pipeline) buildContext(ctx context.Context, game *models.Game) (predictor.GameContext, error) {
	var gameCtx predictor.GameContext

	homeForm, err := p.games.RecentForm(ctx, game.HomeTeam, recentFormGames)
	if err != nil {
		return gameCtx, err
	}
	awayForm, err := p.games.RecentForm(ctx, game.AwayTeam, recentFormGames)
	if err != nil {
		return gameCtx, err
	}
	h2h, err := p.games.HeadToHead(ctx, game.HomeTeam, game.AwayTeam, headToHeadGames)
	if err != nil {
		return gameCtx, err
	}

	gameCtx.HomeRecentForm = formLetters(homeForm, game.HomeTeam)
	gameCtx.AwayRecentForm = formLetters(awayForm, game.AwayTeam)

	for _, past := range h2h {
		switch past.Winner() {
		case models.BetHome:
			if past.HomeTeam == game.HomeTeam {
				gameCtx.HeadToHead.HomeWins++
			} else {
				gameCtx.HeadToHead.AwayWins++
			}
		case models.BetAway:
			if past.AwayTeam == game.HomeTeam {
				gameCtx.HeadToHead.HomeWins++
			} else {
				gameCtx.HeadToHead.AwayWins++
			}
		default:
			gameCtx.HeadToHead.Draws++
		}
	}

	return gameCtx, nil
}

// formLetters renders finished games as W/L/D from the team's perspective
func formLetters(games []*models.Game, team string) []string {
	letters := make([]string, 0, len(games))
	for _, g := range games {
		winner := g.Winner()
		switch {
		case winner == "":
			letters = append(letters, "D")
		case (winner == models.BetHome && g.HomeTeam == team) || (winner == models.BetAway && g.AwayTeam == team):
			letters = append(letters, "W")
		default:
			letters = append(letters, "L")
		}
	}
	return letters
}

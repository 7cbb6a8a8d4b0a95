package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when the inference service cannot be reached
// or answers with a server error. The game is skipped, never half-written.
var ErrUnavailable = errors.New("predictor unavailable")

// ErrMalformedResponse is returned when the inference service answers with
// a payload that fails validation.
var ErrMalformedResponse = errors.New("malformed predictor response")

// GameContext carries the historical data the model reasons over
type GameContext struct {
	HomeRecentForm []string `json:"home_recent_form"` // newest first, W/L/D
	AwayRecentForm []string `json:"away_recent_form"`
	HeadToHead     H2H      `json:"head_to_head"`
}

// H2H summarizes recent meetings between the two teams
type H2H struct {
	HomeWins int `json:"home_wins"`
	AwayWins int `json:"away_wins"`
	Draws    int `json:"draws"`
}

type predictRequest struct {
	Season   int         `json:"season"`
	Round    int         `json:"round"`
	HomeTeam string      `json:"home_team"`
	AwayTeam string      `json:"away_team"`
	Venue    string      `json:"venue,omitempty"`
	Date     string      `json:"date"`
	Context  GameContext `json:"context"`
}

// Client calls the AI inference service
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new predictor client. Calls are rate limited so a
// burst of games in one pipeline run does not flood the model service.
func NewClient(baseURL, apiKey string, timeout time.Duration, rps float64) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict requests a prediction for one game
func (c *Client) Predict(ctx context.Context, game *models.Game, gameCtx GameContext) (*models.PredictorResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	reqBody := predictRequest{
		Season:   game.Season,
		Round:    game.Round,
		HomeTeam: game.HomeTeam,
		AwayTeam: game.AwayTeam,
		Venue:    game.Venue.String,
		Date:     game.GameDate.Format(time.RFC3339),
		Context:  gameCtx,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	url := fmt.Sprintf("%s/predict", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PredictorCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PredictorCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	metrics.PredictorCallDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.PredictorCallsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrMalformedResponse, resp.StatusCode, string(body))
	}

	var pr models.PredictorResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		metrics.PredictorCallsTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := pr.Validate(); err != nil {
		metrics.PredictorCallsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	metrics.PredictorCallsTotal.WithLabelValues("200").Inc()
	log.Debug().
		Str("home", game.HomeTeam).
		Str("away", game.AwayTeam).
		Float64("home_win_prob", pr.HomeWinProb).
		Dur("duration", time.Since(start)).
		Msg("Prediction received")

	return &pr, nil
}

package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"

	"github.com/rs/zerolog/log"
)

// Client fetches AFL fixture and results data from the scraping service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new scraper client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FetchUpcoming fetches upcoming games for the next given days
func (c *Client) FetchUpcoming(ctx context.Context, days int) ([]models.RawGame, error) {
	return c.fetchGames(ctx, "fixtures/upcoming", map[string]string{
		"days": strconv.Itoa(days),
	})
}

// FetchResults fetches finished games since the given time
func (c *Client) FetchResults(ctx context.Context, since time.Time) ([]models.RawGame, error) {
	return c.fetchGames(ctx, "fixtures/results", map[string]string{
		"since": since.Format(time.RFC3339),
	})
}

// fetchGames performs a single GET attempt and classifies failures.
// Retry policy lives in the ingestion pipeline, not here, so per-record
// retry counts stay visible in its summary.
func (c *Client) fetchGames(ctx context.Context, path string, params map[string]string) ([]models.RawGame, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "afl-tips-automation/1.0")

	q := req.URL.Query()
	for key, value := range params {
		q.Add(key, value)
	}
	req.URL.RawQuery = q.Encode()

	log.Debug().Str("url", url).Msg("Fetching game data")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ScrapeCallsTotal.WithLabelValues(path, "error").Inc()
		// Timeouts and connection failures are worth retrying
		return nil, &TransientError{Err: fmt.Errorf("scrape request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ScrapeCallsTotal.WithLabelValues(path, "error").Inc()
		return nil, &TransientError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	metrics.ScrapeCallDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		metrics.ScrapeCallsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &TransientError{Err: fmt.Errorf("scrape returned status %d: %s", resp.StatusCode, string(body))}
	default:
		metrics.ScrapeCallsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &FatalError{Err: fmt.Errorf("scrape returned status %d: %s", resp.StatusCode, string(body))}
	}

	var games []models.RawGame
	if err := json.Unmarshal(body, &games); err != nil {
		metrics.ScrapeCallsTotal.WithLabelValues(path, "decode_error").Inc()
		return nil, &FatalError{Err: fmt.Errorf("failed to unmarshal games: %w", err)}
	}

	metrics.ScrapeCallsTotal.WithLabelValues(path, "200").Inc()
	log.Debug().
		Str("url", url).
		Int("count", len(games)).
		Dur("duration", time.Since(start)).
		Msg("Game data fetched")

	return games, nil
}

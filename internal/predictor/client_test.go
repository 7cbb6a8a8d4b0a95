package predictor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"afltips/automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGame() *models.Game {
	return &models.Game{
		ID:       1,
		Season:   2026,
		Round:    8,
		HomeTeam: "Richmond",
		AwayTeam: "Geelong",
		GameDate: time.Date(2026, 5, 2, 13, 45, 0, 0, time.UTC),
	}
}

func TestPredict(t *testing.T) {
	var gotReq predictRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(models.PredictorResponse{
			HomeWinProb:        0.7,
			AwayWinProb:        0.3,
			PredictedHomeScore: 95,
			PredictedAwayScore: 80,
			Reasoning:          "Home advantage",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", 5*time.Second, 100)
	gameCtx := GameContext{
		HomeRecentForm: []string{"W", "W", "L"},
		HeadToHead:     H2H{HomeWins: 3, AwayWins: 1, Draws: 1},
	}

	resp, err := client.Predict(context.Background(), testGame(), gameCtx)
	require.NoError(t, err)
	assert.Equal(t, 0.7, resp.HomeWinProb)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Richmond", gotReq.HomeTeam)
	assert.Equal(t, []string{"W", "W", "L"}, gotReq.Context.HomeRecentForm)
	assert.Equal(t, 3, gotReq.Context.HeadToHead.HomeWins)
}

func TestPredict_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, 100)
	_, err := client.Predict(context.Background(), testGame(), GameContext{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPredict_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"probability out of range", `{"home_win_prob":1.7,"away_win_prob":0.3}`},
		{"negative score", `{"home_win_prob":0.6,"away_win_prob":0.4,"predicted_home_score":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "", 5*time.Second, 100)
			_, err := client.Predict(context.Background(), testGame(), GameContext{})
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestPredict_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "", time.Second, 100)
	_, err := client.Predict(context.Background(), testGame(), GameContext{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

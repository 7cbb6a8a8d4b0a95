package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Game represents an AFL game
type Game struct {
	ID       int            `db:"id"`
	Season   int            `db:"season"`
	Round    int            `db:"round"`
	HomeTeam string         `db:"home_team"`
	AwayTeam string         `db:"away_team"`
	GameDate time.Time      `db:"game_date"`
	Venue    sql.NullString `db:"venue"`

	// Scores (for completed games)
	HomeScore sql.NullInt32 `db:"home_score"`
	AwayScore sql.NullInt32 `db:"away_score"`
	Finished  bool          `db:"finished"`

	// Natural key used for upserts: season|round|home|away|date.
	// NOTE: the exact field set is an assumption inferred from the fixture's
	// round/season grouping; confirm against real data before relying on it.
	DedupKey string `db:"dedup_key"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DedupKey derives the natural key for a game. Team names are normalized so
// the same fixture scraped twice always maps to the same key.
func DedupKey(season, round int, homeTeam, awayTeam string, date time.Time) string {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return fmt.Sprintf("%d|%d|%s|%s|%s",
		season, round, norm(homeTeam), norm(awayTeam), date.Format("2006-01-02"))
}

// Winner returns "home" or "away" for a finished game with scores,
// or "" for a draw or an unfinished game.
func (g *Game) Winner() string {
	if !g.Finished || !g.HomeScore.Valid || !g.AwayScore.Valid {
		return ""
	}
	switch {
	case g.HomeScore.Int32 > g.AwayScore.Int32:
		return "home"
	case g.AwayScore.Int32 > g.HomeScore.Int32:
		return "away"
	default:
		return ""
	}
}

// RawGame is a scraped game record as returned by the data source
type RawGame struct {
	ExternalID string `json:"external_id"`
	Season     int    `json:"season"`
	Round      int    `json:"round"`
	HomeTeam   string `json:"home_team"`
	AwayTeam   string `json:"away_team"`
	Date       string `json:"date"` // ISO 8601
	Venue      string `json:"venue"`
	HomeScore  *int   `json:"home_score,omitempty"`
	AwayScore  *int   `json:"away_score,omitempty"`
	Finished   bool   `json:"finished"`
}

// ToGame converts a RawGame to a Game model, deriving the dedup key.
// Returns an error when the record is structurally unusable.
func (rg *RawGame) ToGame() (*Game, error) {
	if rg.HomeTeam == "" || rg.AwayTeam == "" {
		return nil, fmt.Errorf("raw game %q missing team names", rg.ExternalID)
	}
	if rg.Season <= 0 || rg.Round <= 0 {
		return nil, fmt.Errorf("raw game %q has invalid season/round %d/%d", rg.ExternalID, rg.Season, rg.Round)
	}

	gameDate, err := time.Parse(time.RFC3339, rg.Date)
	if err != nil {
		return nil, fmt.Errorf("raw game %q has unparseable date %q: %w", rg.ExternalID, rg.Date, err)
	}

	game := &Game{
		Season:   rg.Season,
		Round:    rg.Round,
		HomeTeam: rg.HomeTeam,
		AwayTeam: rg.AwayTeam,
		GameDate: gameDate,
		Finished: rg.Finished,
		DedupKey: DedupKey(rg.Season, rg.Round, rg.HomeTeam, rg.AwayTeam, gameDate),
	}

	if rg.Venue != "" {
		game.Venue = sql.NullString{String: rg.Venue, Valid: true}
	}
	if rg.HomeScore != nil {
		game.HomeScore = sql.NullInt32{Int32: int32(*rg.HomeScore), Valid: true}
	}
	if rg.AwayScore != nil {
		game.AwayScore = sql.NullInt32{Int32: int32(*rg.AwayScore), Valid: true}
	}

	return game, nil
}

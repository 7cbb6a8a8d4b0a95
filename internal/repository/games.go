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

// ErrGameNotFound is returned when no game matches the lookup
var ErrGameNotFound = errors.New("game not found")

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

const gameColumns = `
	id, season, round, home_team, away_team, game_date, venue,
	home_score, away_score, finished, dedup_key, created_at, updated_at`

func scanGame(row pgx.Row) (*models.Game, error) {
	var game models.Game
	err := row.Scan(
		&game.ID, &game.Season, &game.Round, &game.HomeTeam, &game.AwayTeam,
		&game.GameDate, &game.Venue, &game.HomeScore, &game.AwayScore,
		&game.Finished, &game.DedupKey, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// Upsert inserts a game or, when its dedup key already exists, updates only
// the mutable fields (date, venue, scores, finished). Returns true when a
// new row was inserted.
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) (bool, error) {
	query := `
		INSERT INTO games (
			season, round, home_team, away_team, game_date, venue,
			home_score, away_score, finished, dedup_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dedup_key) DO UPDATE SET
			game_date = EXCLUDED.game_date,
			venue = COALESCE(EXCLUDED.venue, games.venue),
			home_score = COALESCE(EXCLUDED.home_score, games.home_score),
			away_score = COALESCE(EXCLUDED.away_score, games.away_score),
			finished = EXCLUDED.finished,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.Pool.QueryRow(
		ctx, query,
		game.Season, game.Round, game.HomeTeam, game.AwayTeam, game.GameDate,
		game.Venue, game.HomeScore, game.AwayScore, game.Finished, game.DedupKey,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt, &inserted)

	if err != nil {
		return false, fmt.Errorf("failed to upsert game: %w", err)
	}

	log.Debug().
		Int("id", game.ID).
		Str("home", game.HomeTeam).
		Str("away", game.AwayTeam).
		Bool("inserted", inserted).
		Msg("Game upserted")

	return inserted, nil
}

// GetByDedupKey retrieves a game by its natural key
func (r *GameRepository) GetByDedupKey(ctx context.Context, key string) (*models.Game, error) {
	query := `SELECT` + gameColumns + ` FROM games WHERE dedup_key = $1`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: dedup_key=%s", ErrGameNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// GetByID retrieves a game by its database ID
func (r *GameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `SELECT` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrGameNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// GetUpcoming retrieves unfinished games dated between now and until
func (r *GameRepository) GetUpcoming(ctx context.Context, until time.Time) ([]*models.Game, error) {
	query := `
		SELECT` + gameColumns + `
		FROM games
		WHERE finished = false AND game_date > NOW() AND game_date <= $1
		ORDER BY game_date
	`

	rows, err := r.db.Pool.Query(ctx, query, until)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming games: %w", err)
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

// RecentForm retrieves a team's most recent finished games, newest first
func (r *GameRepository) RecentForm(ctx context.Context, team string, limit int) ([]*models.Game, error) {
	query := `
		SELECT` + gameColumns + `
		FROM games
		WHERE finished = true AND (home_team = $1 OR away_team = $1)
		ORDER BY game_date DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, team, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent form: %w", err)
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

// HeadToHead retrieves the most recent finished meetings between two teams
func (r *GameRepository) HeadToHead(ctx context.Context, teamA, teamB string, limit int) ([]*models.Game, error) {
	query := `
		SELECT` + gameColumns + `
		FROM games
		WHERE finished = true
		  AND ((home_team = $1 AND away_team = $2) OR (home_team = $2 AND away_team = $1))
		ORDER BY game_date DESC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, teamA, teamB, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get head to head: %w", err)
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

// CountSince returns the number of games dated on or after the given time.
// A zero time counts all games.
func (r *GameRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM games WHERE $1::timestamptz IS NULL OR game_date >= $1`

	var arg interface{}
	if !since.IsZero() {
		arg = since
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}

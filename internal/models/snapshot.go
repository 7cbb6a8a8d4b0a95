package models

import "time"

// Snapshot periods
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodAllTime = "all_time"
)

// Confidence tiers
const (
	TierHigh   = "high"   // >= 0.8
	TierMedium = "medium" // 0.6 - 0.8
	TierLow    = "low"    // < 0.6
)

// ConfidenceTier buckets a confidence score
func ConfidenceTier(score float64) string {
	switch {
	case score >= 0.8:
		return TierHigh
	case score >= 0.6:
		return TierMedium
	default:
		return TierLow
	}
}

// TierStats is the accuracy breakdown for one confidence tier
type TierStats struct {
	Total       int     `json:"total"`
	Correct     int     `json:"correct"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

// AccuracySnapshot is the aggregate accuracy for one period. Recomputation
// overwrites the row for its period rather than appending.
type AccuracySnapshot struct {
	ID         int       `db:"id" json:"-"`
	Period     string    `db:"period" json:"period"`
	ComputedAt time.Time `db:"computed_at" json:"computed_at"`

	Total       int     `db:"total" json:"total"`
	Correct     int     `db:"correct" json:"correct"`
	AccuracyPct float64 `db:"accuracy_pct" json:"accuracy_pct"`

	// Per confidence tier breakdown (stored as JSONB)
	Tiers map[string]TierStats `db:"tiers" json:"tiers"`

	// Betting performance at unit stake on recommended bets
	BetsPlaced int     `db:"bets_placed" json:"bets_placed"`
	BetsWon    int     `db:"bets_won" json:"bets_won"`
	BettingROI float64 `db:"betting_roi" json:"betting_roi"`
}

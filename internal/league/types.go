package league

import (
	"database/sql"
	"sync"
)

// store handles all database operations for the league.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// User is a registered league member. Rating fields are only mutated by
// confirmed-match processing and the weekly maintenance jobs; rows are never
// hard-deleted.
type User struct {
	ID               int64   `json:"id"`
	ExternalID       string  `json:"external_id"`
	DisplayName      string  `json:"display_name"`
	Rating           int     `json:"rating"`
	RatingDeviation  int     `json:"rating_deviation"`
	RatingVolatility float64 `json:"rating_volatility"`
	Competing        bool    `json:"competing"`
	ChallengesUsed   int     `json:"challenges_used"`
	IdleWeeks        int     `json:"idle_weeks"`
	MatchesPlayed    int     `json:"matches_played"`
}

// Match is a head-to-head result. PlayerID is the submitter; Result is true
// when the submitter won. End ratings stay nil until the opponent confirms.
type Match struct {
	ID                  int64  `json:"id"`
	PlayerID            int64  `json:"player_id"`
	OpponentID          int64  `json:"opponent_id"`
	Result              bool   `json:"result"`
	Confirmed           bool   `json:"confirmed"`
	PlayerStartRating   int    `json:"player_start_rating"`
	OpponentStartRating int    `json:"opponent_start_rating"`
	PlayerEndRating     *int   `json:"player_end_rating"`
	OpponentEndRating   *int   `json:"opponent_end_rating"`
	CreatedAt           int64  `json:"created_at"`
}

// PendingMatch is the outstanding confirmation for an unconfirmed Match,
// keyed by the chat message that asked the opponent to respond. UserID is
// the only user allowed to confirm.
type PendingMatch struct {
	CorrelationID string `json:"correlation_id"`
	MatchID       int64  `json:"match_id"`
	UserID        int64  `json:"user_id"`
}

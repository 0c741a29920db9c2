package leaderboard

import (
	"database/sql"
	"sync"
)

// store handles the read-only ranking queries.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Entry is one row of a ranking view. Rank is dense: tied ratings share a
// rank and the next distinct rating gets the following ordinal.
type Entry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id"`
	ExternalID    string `json:"external_id"`
	DisplayName   string `json:"display_name"`
	Rating        int    `json:"rating"`
	Competing     bool   `json:"competing"`
	MatchesPlayed int    `json:"matches_played"`
}

// PlayerStats summarises a player's confirmed results.
type PlayerStats struct {
	UserID        int64   `json:"user_id"`
	DisplayName   string  `json:"display_name"`
	Rating        int     `json:"rating"`
	Rank          int     `json:"rank"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	MatchesPlayed int     `json:"matches_played"`
	WinPercentage float64 `json:"win_percentage"`
}

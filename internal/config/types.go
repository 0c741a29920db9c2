package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	Slack         SlackConfig
	Turso         TursoConfig
	League        LeagueConfig
	ProjectID     string
}

type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// LeagueConfig holds the tuning knobs for the ranking league.
type LeagueConfig struct {
	// StartingRating only applies while the users table is empty; after the
	// first registrant everyone starts at the stored default of 1500.
	StartingRating int
	KFactor        int
	BonusPoints    int
	// WeeklyChallengeCap is the number of results a player may submit per week.
	WeeklyChallengeCap int
	// ProvisionalMatches is the minimum number of confirmed matches before a
	// player appears in the rankings.
	ProvisionalMatches int
	DecayEnabled       bool
	DecayAmount        int
	AutoQuitEnabled    bool
	AutoQuitWeeks      int
	// AutoQuitResetRating pulls an auto-quit player's rating back to the
	// community average when it exceeds it.
	AutoQuitResetRating bool
	TopPlayersCount     int
	// ResetWeekday and ResetHour define the weekly maintenance boundary.
	ResetWeekday time.Weekday
	ResetHour    int
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	cfg := Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: "./migrations",
		Slack: SlackConfig{
			Token:         getEnv("SLACK_BOT_TOKEN"),
			ChannelID:     getEnv("SLACK_CHANNEL_ID"),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET"),
		},
		Port: getEnv("PORT"),
		Turso: TursoConfig{
			PrimaryURL: getEnv("TURSO_PRIMARY_URL"),
			AuthToken:  getEnv("TURSO_AUTH_TOKEN"),
		},
		League:    LoadLeague(),
		ProjectID: getEnv("GCP_PROJECT"),
	}
	return cfg
}

// LoadLeague reads the league tuning knobs. Every knob has a default, so a
// bare environment gets a playable configuration.
func LoadLeague() LeagueConfig {
	return LeagueConfig{
		StartingRating:      getEnvInt("LEAGUE_STARTING_RATING", 1500),
		KFactor:             getEnvInt("LEAGUE_K_FACTOR", 50),
		BonusPoints:         getEnvInt("LEAGUE_BONUS_POINTS", 5),
		WeeklyChallengeCap:  getEnvInt("LEAGUE_WEEKLY_CHALLENGE_CAP", 5),
		ProvisionalMatches:  getEnvInt("LEAGUE_PROVISIONAL_MATCHES", 5),
		DecayEnabled:        getEnvBool("LEAGUE_DECAY_ENABLED", true),
		DecayAmount:         getEnvInt("LEAGUE_DECAY_AMOUNT", 10),
		AutoQuitEnabled:     getEnvBool("LEAGUE_AUTO_QUIT_ENABLED", true),
		AutoQuitWeeks:       getEnvInt("LEAGUE_AUTO_QUIT_WEEKS", 4),
		AutoQuitResetRating: getEnvBool("LEAGUE_AUTO_QUIT_RESET_RATING", false),
		TopPlayersCount:     getEnvInt("LEAGUE_TOP_PLAYERS_COUNT", 10),
		ResetWeekday:        time.Weekday(getEnvInt("LEAGUE_RESET_WEEKDAY", int(time.Monday))),
		ResetHour:           getEnvInt("LEAGUE_RESET_HOUR", 0),
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Warn("Invalid integer env var, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn("Invalid boolean env var, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return parsed
}

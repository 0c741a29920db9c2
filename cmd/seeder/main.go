package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/michaelkrauty/PDL-sub000/internal/database"
	"github.com/michaelkrauty/PDL-sub000/internal/rating"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":        "league_seed.db",
		"MIGRATIONS_DIR": "migrations",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

type seedPlayer struct {
	id     int64
	name   string
	rating int
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	db, teardown, err := database.InitDB(cfg["DB_NAME"], "", "", cfg["MIGRATIONS_DIR"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()

	log.Info("Successfully connected to the database.", "db", cfg["DB_NAME"])

	names := []string{
		"Seeder Player A", "Seeder Player B", "Seeder Player C", "Seeder Player D",
		"Seeder Player E", "Seeder Player F", "Seeder Player G", "Seeder Player H",
	}
	players := make([]*seedPlayer, 0, len(names))
	for i, name := range names {
		externalID := fmt.Sprintf("seed-player-%d", i+1)
		_, err := db.Exec(
			"INSERT OR IGNORE INTO users (external_id, display_name, rating) VALUES (?, ?, 1500)",
			externalID, name,
		)
		if err != nil {
			log.Fatalf("Failed to insert dummy player %s: %s", name, err)
		}
		var id int64
		if err := db.QueryRow("SELECT id FROM users WHERE external_id = ?", externalID).Scan(&id); err != nil {
			log.Fatalf("Failed to resolve player id for %s: %s", name, err)
		}
		players = append(players, &seedPlayer{id: id, name: name, rating: 1500})
	}
	log.Info("Ensured dummy players exist.", "count", len(players))

	const batchSize = 100
	const numMatches = 2000

	log.Info("Preparing to insert dummy matches...", "total", numMatches, "batch_size", batchSize)
	startTime := time.Now()

	engine := rating.New(50, 5)

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %s", err)
	}

	valueStrings := make([]string, 0, batchSize)
	valueArgs := make([]interface{}, 0, batchSize*9)

	for i := 0; i < numMatches; i++ {
		player := players[rand.Intn(len(players))]
		opponent := players[rand.Intn(len(players))]
		for opponent.id == player.id {
			opponent = players[rand.Intn(len(players))]
		}

		playerWon := rand.Intn(2) == 0
		playerStart, opponentStart := player.rating, opponent.rating
		playerEnd, opponentEnd := engine.ComputeUpdate(playerStart, opponentStart, playerWon)
		player.rating, opponent.rating = playerEnd, opponentEnd

		matchTime := time.Now().Add(-time.Duration(rand.Intn(180*24)) * time.Hour)

		valueStrings = append(valueStrings, "(?, ?, ?, 1, ?, ?, ?, ?, ?)")
		valueArgs = append(valueArgs,
			player.id,
			opponent.id,
			playerWon,
			playerStart,
			opponentStart,
			playerEnd,
			opponentEnd,
			matchTime.Unix(),
		)

		if (i+1)%batchSize == 0 || (i+1) == numMatches {
			stmt := fmt.Sprintf(`
				INSERT INTO matches (player_id, opponent_id, result, confirmed,
					player_start_rating, opponent_start_rating, player_end_rating, opponent_end_rating, created_at)
				VALUES %s;`, strings.Join(valueStrings, ","))

			_, err := tx.Exec(stmt, valueArgs...)
			if err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute batch insert: %s", err)
			}

			// Reset for the next batch
			valueStrings = make([]string, 0, batchSize)
			valueArgs = make([]interface{}, 0, batchSize*9)
			log.Info("Inserted batch", "completed", i+1, "total", numMatches)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %s", err)
	}

	// Bring the stored ratings and counters in line with the seeded history.
	for _, p := range players {
		if _, err := db.Exec(
			"UPDATE users SET rating = ?, matches_played = (SELECT COUNT(*) FROM matches WHERE confirmed = 1 AND (player_id = ? OR opponent_id = ?)) WHERE id = ?",
			p.rating, p.id, p.id, p.id,
		); err != nil {
			log.Fatalf("Failed to update seeded rating for %s: %s", p.name, err)
		}
	}

	// Leave a couple of submissions waiting for confirmation.
	for i := 0; i < 2; i++ {
		player := players[i*2]
		opponent := players[i*2+1]
		res, err := db.Exec(`
			INSERT INTO matches (player_id, opponent_id, result, confirmed, player_start_rating, opponent_start_rating, created_at)
			VALUES (?, ?, 1, 0, ?, ?, ?)`,
			player.id, opponent.id, player.rating, opponent.rating, time.Now().Unix(),
		)
		if err != nil {
			log.Fatalf("Failed to insert pending match: %s", err)
		}
		matchID, err := res.LastInsertId()
		if err != nil {
			log.Fatalf("Failed to resolve pending match id: %s", err)
		}
		if _, err := db.Exec(
			"INSERT INTO pending_matches (correlation_id, match_id, user_id) VALUES (?, ?, ?)",
			uuid.NewString(), matchID, opponent.id,
		); err != nil {
			log.Fatalf("Failed to insert pending confirmation: %s", err)
		}
	}

	duration := time.Since(startTime)
	log.Info("Successfully seeded league data.", "matches", numMatches, "duration", duration)
}

package leaderboard

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
)

// NewStore creates a new leaderboard store.
func NewStore(db *sql.DB) LeaderboardService {
	return &store{
		db: db,
	}
}

// Rank returns the dense rank of a user's rating among all distinct rating
// values, descending. Tied ratings share a rank.
func (s *store) Rank(userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var target int
	err := s.db.QueryRow("SELECT rating FROM users WHERE id = ?", userID).Scan(&target)
	if err == sql.ErrNoRows {
		return 0, league.ErrNotRegistered
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	var rank int
	err = s.db.QueryRow("SELECT COUNT(DISTINCT rating) + 1 FROM users WHERE rating > ?", target).Scan(&rank)
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank for user %d: %w", userID, err)
	}
	return rank, nil
}

// The rank subquery counts distinct higher ratings globally, so entries keep
// their league-wide rank even when the outer query filters rows.
const selectEntry = `
	SELECT (SELECT COUNT(DISTINCT rating) + 1 FROM users u2 WHERE u2.rating > u.rating) AS rank,
	       u.id, u.external_id, u.display_name, u.rating, u.competing, u.matches_played
	FROM users u`

func scanEntry(scanner interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var name sql.NullString
	err := scanner.Scan(&e.Rank, &e.UserID, &e.ExternalID, &name, &e.Rating, &e.Competing, &e.MatchesPlayed)
	if err != nil {
		return nil, err
	}
	e.DisplayName = name.String
	return &e, nil
}

// TopPlayers returns the top n users by rating descending. activeOnly
// restricts to competing users; provisionalMin hides players with fewer
// confirmed matches than the provisional threshold.
func (s *store) TopPlayers(n int, activeOnly bool, provisionalMin int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectEntry + " WHERE matches_played >= ?"
	if activeOnly {
		query += " AND competing = 1"
	}
	query += " ORDER BY rating DESC, id LIMIT ?"

	rows, err := s.db.Query(query, provisionalMin, n)
	if err != nil {
		log.Error("Failed to query top players", "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

// NearbyPlayers returns the user plus up to n users immediately above and n
// immediately below in rating order. The three partitions (equal rating,
// strictly lower, strictly higher) are fetched separately and the merged
// result is reordered to a single rating-descending list.
func (s *store) NearbyPlayers(userID int64, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// The subject row is fetched on its own so a LIMIT on the tied partition
	// can never push them out of their own window.
	subject, err := scanEntry(s.db.QueryRow(selectEntry+" WHERE u.id = ?", userID))
	if err == sql.ErrNoRows {
		return nil, league.ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	target := subject.Rating

	partitions := []struct {
		where string
		order string
		args  []any
	}{
		{"rating = ? AND u.id != ?", "id", []any{target, userID}},
		{"rating < ?", "rating DESC, id", []any{target}},
		{"rating > ?", "rating ASC, id", []any{target}},
	}

	entries := []Entry{*subject}
	for _, p := range partitions {
		rows, err := s.db.Query(
			selectEntry+" WHERE "+p.where+" ORDER BY "+p.order+" LIMIT ?",
			append(p.args, n)...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query nearby players: %w", err)
		}
		part, err := collectEntries(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		entries = append(entries, part...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}

// Stats summarises a user's confirmed results plus their current rank.
func (s *store) Stats(userID int64) (*PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats PlayerStats
	var name sql.NullString
	err := s.db.QueryRow(`
		SELECT u.id, u.display_name, u.rating, u.matches_played,
		       (SELECT COUNT(*) FROM matches m
		        WHERE m.confirmed = 1
		          AND ((m.player_id = u.id AND m.result = 1) OR (m.opponent_id = u.id AND m.result = 0))),
		       (SELECT COUNT(*) FROM matches m
		        WHERE m.confirmed = 1
		          AND ((m.player_id = u.id AND m.result = 0) OR (m.opponent_id = u.id AND m.result = 1)))
		FROM users u WHERE u.id = ?
	`, userID).Scan(&stats.UserID, &name, &stats.Rating, &stats.MatchesPlayed, &stats.Wins, &stats.Losses)
	if err == sql.ErrNoRows {
		return nil, league.ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for user %d: %w", userID, err)
	}
	stats.DisplayName = name.String

	if decided := stats.Wins + stats.Losses; decided > 0 {
		stats.WinPercentage = (float64(stats.Wins) / float64(decided)) * 100
	}

	err = s.db.QueryRow(`
		SELECT COUNT(DISTINCT rating) + 1 FROM users WHERE rating > ?
	`, stats.Rating).Scan(&stats.Rank)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rank for user %d: %w", userID, err)
	}
	return &stats, nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			log.Error("Failed to scan leaderboard row", "error", err)
			continue
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

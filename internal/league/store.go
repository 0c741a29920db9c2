package league

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// defaultRating is the stored default for everyone after the first
// registrant; the configured starting rating only applies while the users
// table is empty.
const defaultRating = 1500

// New creates a new LeagueStore.
func New(db *sql.DB) LeagueStore {
	return &store{
		db: db,
	}
}

// CreateUser registers a player. Registration is idempotent: re-registering
// an existing external identity returns the existing row and created=false.
func (s *store) CreateUser(externalID, displayName string, firstUserRating int) (*User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	existing, err := scanUser(tx.QueryRow(selectUser+" WHERE external_id = ?", externalID))
	if err == nil {
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("failed to look up user %s: %w", externalID, err)
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return nil, false, fmt.Errorf("failed to count users: %w", err)
	}
	startRating := defaultRating
	if count == 0 {
		startRating = firstUserRating
	}

	res, err := tx.Exec(`
		INSERT INTO users (external_id, display_name, rating, competing)
		VALUES (?, ?, ?, 1)
	`, externalID, displayName, startRating)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert user %s: %w", externalID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit user %s: %w", externalID, err)
	}

	log.Info("Registered new player", "userID", id, "externalID", externalID, "rating", startRating)
	return &User{
		ID:               id,
		ExternalID:       externalID,
		DisplayName:      displayName,
		Rating:           startRating,
		RatingDeviation:  350,
		RatingVolatility: 0.06,
		Competing:        true,
	}, true, nil
}

const selectUser = `
	SELECT id, external_id, display_name, rating, rating_deviation, rating_volatility,
	       competing, challenges_used, idle_weeks, matches_played
	FROM users`

func scanUser(scanner interface{ Scan(...any) error }) (*User, error) {
	var u User
	var name sql.NullString
	err := scanner.Scan(
		&u.ID, &u.ExternalID, &name, &u.Rating, &u.RatingDeviation, &u.RatingVolatility,
		&u.Competing, &u.ChallengesUsed, &u.IdleWeeks, &u.MatchesPlayed,
	)
	if err != nil {
		return nil, err
	}
	u.DisplayName = name.String // handle NULL name from db
	return &u, nil
}

func (s *store) GetUser(id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := scanUser(s.db.QueryRow(selectUser+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return user, nil
}

func (s *store) GetUserByExternalID(externalID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := scanUser(s.db.QueryRow(selectUser+" WHERE external_id = ?", externalID))
	if err == sql.ErrNoRows {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", externalID, err)
	}
	return user, nil
}

// SetDisplayName syncs the display name from the platform.
func (s *store) SetDisplayName(id int64, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE users SET display_name = ? WHERE id = ?", displayName, id)
	return err
}

func (s *store) SetCompeting(id int64, competing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE users SET competing = ? WHERE id = ?", competing, id)
	if err != nil {
		return fmt.Errorf("failed to set competing for user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *store) GetAllUsers() ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(selectUser + " ORDER BY rating DESC, id")
	if err != nil {
		log.Error("Failed to query all users", "error", err)
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			log.Error("Failed to scan user row", "error", err)
			continue
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *store) CountUsers() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// SubmitMatch creates an unconfirmed match plus its pending confirmation as
// one transaction. The check for a live pending between the ordered pair and
// the weekly-cap check happen inside the same transaction, so two concurrent
// submissions cannot both slip through.
func (s *store) SubmitMatch(submitterID, opponentID int64, submitterWon bool, correlationID string, weeklyCap int) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	submitter, err := scanUser(tx.QueryRow(selectUser+" WHERE id = ?", submitterID))
	if err == sql.ErrNoRows {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submitter %d: %w", submitterID, err)
	}
	opponent, err := scanUser(tx.QueryRow(selectUser+" WHERE id = ?", opponentID))
	if err == sql.ErrNoRows {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load opponent %d: %w", opponentID, err)
	}

	if !submitter.Competing || !opponent.Competing {
		return nil, ErrNotCompeting
	}
	if submitter.ChallengesUsed >= weeklyCap {
		return nil, ErrLimitExceeded
	}

	// At most one live pending per ordered (submitter, opponent) pair.
	var live int
	err = tx.QueryRow(`
		SELECT COUNT(*)
		FROM pending_matches pm
		JOIN matches m ON m.id = pm.match_id
		WHERE m.player_id = ? AND m.opponent_id = ?
	`, submitterID, opponentID).Scan(&live)
	if err != nil {
		return nil, fmt.Errorf("failed to check for pending match: %w", err)
	}
	if live > 0 {
		return nil, ErrAlreadyPending
	}

	now := time.Now().Unix()
	res, err := tx.Exec(`
		INSERT INTO matches (player_id, opponent_id, result, confirmed, player_start_rating, opponent_start_rating, created_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)
	`, submitterID, opponentID, submitterWon, submitter.Rating, opponent.Rating, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO pending_matches (correlation_id, match_id, user_id)
		VALUES (?, ?, ?)
	`, correlationID, matchID, opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pending match: %w", err)
	}

	// The submission counts against the weekly cap and both players count as
	// active for the decay pass.
	_, err = tx.Exec("UPDATE users SET challenges_used = challenges_used + 1, idle_weeks = 0 WHERE id = ?", submitterID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump challenge count: %w", err)
	}
	_, err = tx.Exec("UPDATE users SET idle_weeks = 0 WHERE id = ?", opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to reset opponent idle weeks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match submission: %w", err)
	}

	log.Info("Match submitted", "matchID", matchID, "submitter", submitterID, "opponent", opponentID, "correlationID", correlationID)
	return &Match{
		ID:                  matchID,
		PlayerID:            submitterID,
		OpponentID:          opponentID,
		Result:              submitterWon,
		PlayerStartRating:   submitter.Rating,
		OpponentStartRating: opponent.Rating,
		CreatedAt:           now,
	}, nil
}

// ConfirmMatch resolves a pending confirmation. Deleting the pending row,
// writing the end ratings, flagging the match confirmed, and persisting both
// users' new ratings happen in a single transaction; a second confirmation
// of the same correlationID finds no pending row and fails with ErrNotFound.
// The ratings are recomputed from the snapshots taken at submission time,
// never from the current values.
func (s *store) ConfirmMatch(correlationID string, confirmerID int64, compute ComputeFunc) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var pending PendingMatch
	err = tx.QueryRow(`
		SELECT correlation_id, match_id, user_id FROM pending_matches WHERE correlation_id = ?
	`, correlationID).Scan(&pending.CorrelationID, &pending.MatchID, &pending.UserID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending match: %w", err)
	}
	if pending.UserID != confirmerID {
		return nil, ErrForbidden
	}

	match, err := scanMatch(tx.QueryRow(selectMatch+" WHERE id = ?", pending.MatchID))
	if err != nil {
		return nil, fmt.Errorf("failed to load match %d: %w", pending.MatchID, err)
	}

	playerEnd, opponentEnd := compute(match.PlayerStartRating, match.OpponentStartRating, match.Result)

	res, err := tx.Exec("DELETE FROM pending_matches WHERE correlation_id = ?", correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete pending match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	_, err = tx.Exec(`
		UPDATE matches SET confirmed = 1, player_end_rating = ?, opponent_end_rating = ? WHERE id = ?
	`, playerEnd, opponentEnd, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize match %d: %w", match.ID, err)
	}

	_, err = tx.Exec(`
		UPDATE users SET rating = ?, matches_played = matches_played + 1, idle_weeks = 0 WHERE id = ?
	`, playerEnd, match.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update submitter rating: %w", err)
	}
	_, err = tx.Exec(`
		UPDATE users SET rating = ?, matches_played = matches_played + 1, idle_weeks = 0 WHERE id = ?
	`, opponentEnd, match.OpponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update opponent rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}

	match.Confirmed = true
	match.PlayerEndRating = &playerEnd
	match.OpponentEndRating = &opponentEnd
	log.Info("Match confirmed", "matchID", match.ID, "playerEnd", playerEnd, "opponentEnd", opponentEnd)
	return match, nil
}

// NullifyMatch reverses a confirmed match's effect: both participants get
// the recorded delta subtracted from their current rating, the match drops
// back to unconfirmed, and the end snapshots are cleared.
func (s *store) NullifyMatch(matchID int64) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := scanMatch(tx.QueryRow(selectMatch+" WHERE id = ?", matchID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}
	if !match.Confirmed || match.PlayerEndRating == nil || match.OpponentEndRating == nil {
		return nil, ErrNotFound
	}

	playerDelta := *match.PlayerEndRating - match.PlayerStartRating
	opponentDelta := *match.OpponentEndRating - match.OpponentStartRating

	_, err = tx.Exec("UPDATE users SET rating = rating - ?, matches_played = matches_played - 1 WHERE id = ?", playerDelta, match.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reverse submitter rating: %w", err)
	}
	_, err = tx.Exec("UPDATE users SET rating = rating - ?, matches_played = matches_played - 1 WHERE id = ?", opponentDelta, match.OpponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to reverse opponent rating: %w", err)
	}
	_, err = tx.Exec("UPDATE matches SET confirmed = 0, player_end_rating = NULL, opponent_end_rating = NULL WHERE id = ?", matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to reset match %d: %w", matchID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit nullification: %w", err)
	}

	match.Confirmed = false
	match.PlayerEndRating = nil
	match.OpponentEndRating = nil
	log.Info("Match nullified", "matchID", matchID, "playerDelta", -playerDelta, "opponentDelta", -opponentDelta)
	return match, nil
}

const selectMatch = `
	SELECT id, player_id, opponent_id, result, confirmed,
	       player_start_rating, player_end_rating, opponent_start_rating, opponent_end_rating, created_at
	FROM matches`

func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var m Match
	var playerEnd, opponentEnd sql.NullInt64
	err := scanner.Scan(
		&m.ID, &m.PlayerID, &m.OpponentID, &m.Result, &m.Confirmed,
		&m.PlayerStartRating, &playerEnd, &m.OpponentStartRating, &opponentEnd, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if playerEnd.Valid {
		v := int(playerEnd.Int64)
		m.PlayerEndRating = &v
	}
	if opponentEnd.Valid {
		v := int(opponentEnd.Int64)
		m.OpponentEndRating = &v
	}
	return &m, nil
}

func (s *store) GetMatch(id int64) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match, err := scanMatch(s.db.QueryRow(selectMatch+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %d: %w", id, err)
	}
	return match, nil
}

// GetAllMatches retrieves all matches, newest first.
func (s *store) GetAllMatches() ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(selectMatch + " ORDER BY created_at DESC, id DESC")
	if err != nil {
		log.Error("Failed to query all matches", "error", err)
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			log.Error("Failed to scan match row", "error", err)
			continue
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (s *store) GetPendingByCorrelationID(correlationID string) (*PendingMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending PendingMatch
	err := s.db.QueryRow(`
		SELECT correlation_id, match_id, user_id FROM pending_matches WHERE correlation_id = ?
	`, correlationID).Scan(&pending.CorrelationID, &pending.MatchID, &pending.UserID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending match: %w", err)
	}
	return &pending, nil
}

func (s *store) DeletePendingByCorrelationID(correlationID string) (bool, error) {
	return s.deletePending("correlation_id = ?", correlationID)
}

func (s *store) DeletePendingByMatchID(matchID int64) (bool, error) {
	return s.deletePending("match_id = ?", matchID)
}

func (s *store) DeletePendingByUserID(userID int64) (bool, error) {
	return s.deletePending("user_id = ?", userID)
}

func (s *store) deletePending(where string, arg any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM pending_matches WHERE "+where, arg)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetChallengeCounts zeroes every competing user's weekly counter.
func (s *store) ResetChallengeCounts() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE users SET challenges_used = 0 WHERE competing = 1")
	if err != nil {
		return 0, fmt.Errorf("failed to reset challenge counts: %w", err)
	}
	return res.RowsAffected()
}

// ApplyDecay subtracts the decay amount from every competing user with no
// match activity since activeSince, and bumps their idle-week counter.
// Users who were active get their counter reset in the same transaction.
func (s *store) ApplyDecay(amount int, activeSince int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const activeUsers = `
		SELECT player_id FROM matches WHERE created_at >= ?
		UNION
		SELECT opponent_id FROM matches WHERE created_at >= ?`

	res, err := tx.Exec(`
		UPDATE users SET rating = rating - ?, idle_weeks = idle_weeks + 1
		WHERE competing = 1 AND id NOT IN (`+activeUsers+`)
	`, amount, activeSince, activeSince)
	if err != nil {
		return 0, fmt.Errorf("failed to apply decay: %w", err)
	}
	decayed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		UPDATE users SET idle_weeks = 0
		WHERE competing = 1 AND id IN (`+activeUsers+`)
	`, activeSince, activeSince)
	if err != nil {
		return 0, fmt.Errorf("failed to reset idle weeks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit decay: %w", err)
	}
	return decayed, nil
}

// AutoQuit retires every competing user whose idle-week counter has reached
// the threshold. With resetEnabled, ratings above resetRatingTo are pulled
// back to it.
func (s *store) AutoQuit(idleWeeks int, resetEnabled bool, resetRatingTo int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if resetEnabled {
		_, err = tx.Exec(`
			UPDATE users SET rating = ?
			WHERE competing = 1 AND idle_weeks >= ? AND rating > ?
		`, resetRatingTo, idleWeeks, resetRatingTo)
		if err != nil {
			return 0, fmt.Errorf("failed to reset auto-quit ratings: %w", err)
		}
	}

	res, err := tx.Exec("UPDATE users SET competing = 0 WHERE competing = 1 AND idle_weeks >= ?", idleWeeks)
	if err != nil {
		return 0, fmt.Errorf("failed to auto-quit users: %w", err)
	}
	quit, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit auto-quit: %w", err)
	}
	return quit, nil
}

func (s *store) AverageRating() (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var avg sql.NullFloat64
	err := s.db.QueryRow("SELECT AVG(rating) FROM users WHERE competing = 1").Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to compute average rating: %w", err)
	}
	return avg.Float64, nil
}

func (s *store) GetMeta(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, true, nil
}

func (s *store) SetMeta(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// begin starts a transaction, retrying briefly when the backend reports a
// transient failure before giving up with ErrStoreUnavailable.
func (s *store) begin() (*sql.Tx, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		tx, err := s.db.Begin()
		if err == nil {
			return tx, nil
		}
		lastErr = err
		log.Warn("Failed to begin transaction, retrying", "attempt", attempt+1, "error", err)
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
}

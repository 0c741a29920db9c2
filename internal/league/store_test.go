package league_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/michaelkrauty/PDL-sub000/internal/database"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (league.LeagueStore, *sql.DB, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	store := league.New(db)
	return store, db, dbTeardown
}

func registerCompeting(t *testing.T, store league.LeagueStore, externalID, name string) *league.User {
	t.Helper()
	user, created, err := store.CreateUser(externalID, name, 1500)
	require.NoError(t, err)
	require.True(t, created)
	return user
}

func TestCreateUser_Idempotent(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	first, created, err := store.CreateUser("U1", "Alice", 1200)
	require.NoError(t, err)
	assert.True(t, created)
	// Configured starting rating applies to the very first registrant only.
	assert.Equal(t, 1200, first.Rating)

	second, created, err := store.CreateUser("U2", "Bob", 1200)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1500, second.Rating, "later registrants start at the stored default")

	again, created, err := store.CreateUser("U1", "Alice", 1200)
	require.NoError(t, err)
	assert.False(t, created, "re-registering an existing external id is a no-op")
	assert.Equal(t, first.ID, again.ID)
}

func TestGetUserByExternalID_NotRegistered(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	_, err := store.GetUserByExternalID("nobody")
	assert.ErrorIs(t, err, league.ErrNotRegistered)
}

func TestSubmitMatch(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	match, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)
	assert.False(t, match.Confirmed)
	assert.Nil(t, match.PlayerEndRating)
	assert.Nil(t, match.OpponentEndRating)
	assert.Equal(t, alice.Rating, match.PlayerStartRating)
	assert.Equal(t, bob.Rating, match.OpponentStartRating)

	pending, err := store.GetPendingByCorrelationID("msg-1")
	require.NoError(t, err)
	assert.Equal(t, match.ID, pending.MatchID)
	assert.Equal(t, bob.ID, pending.UserID, "the opponent is the expected confirmer")

	submitter, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, submitter.ChallengesUsed)
}

func TestSubmitMatch_DuplicatePairFails(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	_, err = store.SubmitMatch(alice.ID, bob.ID, false, "msg-2", 5)
	assert.ErrorIs(t, err, league.ErrAlreadyPending)
}

func TestSubmitMatch_WeeklyCap(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")
	carol := registerCompeting(t, store, "U3", "Carol")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 1)
	require.NoError(t, err)

	_, err = store.SubmitMatch(alice.ID, carol.ID, true, "msg-2", 1)
	assert.ErrorIs(t, err, league.ErrLimitExceeded)
}

func TestSubmitMatch_NotCompeting(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")
	require.NoError(t, store.SetCompeting(bob.ID, false))

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	assert.ErrorIs(t, err, league.ErrNotCompeting)
}

func TestConfirmMatch(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	compute := func(playerStart, opponentStart int, playerWon bool) (int, int) {
		return playerStart + 30, opponentStart - 20
	}

	match, err := store.ConfirmMatch("msg-1", bob.ID, compute)
	require.NoError(t, err)
	assert.True(t, match.Confirmed)
	require.NotNil(t, match.PlayerEndRating)
	require.NotNil(t, match.OpponentEndRating)
	assert.Equal(t, 1530, *match.PlayerEndRating)
	assert.Equal(t, 1480, *match.OpponentEndRating)

	updatedAlice, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1530, updatedAlice.Rating)
	assert.Equal(t, 1, updatedAlice.MatchesPlayed)

	updatedBob, err := store.GetUser(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1480, updatedBob.Rating)

	_, err = store.GetPendingByCorrelationID("msg-1")
	assert.ErrorIs(t, err, league.ErrNotFound)
}

func TestConfirmMatch_Idempotent(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	compute := func(playerStart, opponentStart int, playerWon bool) (int, int) {
		return playerStart + 30, opponentStart - 20
	}

	_, err = store.ConfirmMatch("msg-1", bob.ID, compute)
	require.NoError(t, err)

	_, err = store.ConfirmMatch("msg-1", bob.ID, compute)
	assert.ErrorIs(t, err, league.ErrNotFound, "second confirmation must not double-apply")

	updatedAlice, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1530, updatedAlice.Rating, "rating changed exactly once")
}

func TestConfirmMatch_WrongConfirmer(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	compute := func(playerStart, opponentStart int, playerWon bool) (int, int) {
		return playerStart + 30, opponentStart - 20
	}

	// The submitter cannot self-confirm.
	_, err = store.ConfirmMatch("msg-1", alice.ID, compute)
	assert.ErrorIs(t, err, league.ErrForbidden)

	// No state change: the pending row survives and ratings are untouched.
	_, err = store.GetPendingByCorrelationID("msg-1")
	require.NoError(t, err)
	user, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, user.Rating)
}

func TestConfirmMatch_UsesSnapshots(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")
	carol := registerCompeting(t, store, "U3", "Carol")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	// An intervening match changes Alice's current rating before msg-1 is
	// confirmed.
	_, err = store.SubmitMatch(alice.ID, carol.ID, true, "msg-2", 5)
	require.NoError(t, err)
	_, err = store.ConfirmMatch("msg-2", carol.ID, func(p, o int, won bool) (int, int) {
		return p + 100, o - 100
	})
	require.NoError(t, err)

	var sawPlayerStart int
	_, err = store.ConfirmMatch("msg-1", bob.ID, func(p, o int, won bool) (int, int) {
		sawPlayerStart = p
		return p + 30, o - 20
	})
	require.NoError(t, err)
	assert.Equal(t, 1500, sawPlayerStart, "confirmation computes from the submission-time snapshot")
}

func TestNullifyMatch(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	submitted, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)
	_, err = store.ConfirmMatch("msg-1", bob.ID, func(p, o int, won bool) (int, int) {
		return p + 30, o - 20
	})
	require.NoError(t, err)

	match, err := store.NullifyMatch(submitted.ID)
	require.NoError(t, err)
	assert.False(t, match.Confirmed)
	assert.Nil(t, match.PlayerEndRating)

	restoredAlice, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, restoredAlice.Rating)
	restoredBob, err := store.GetUser(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, restoredBob.Rating)
}

func TestNullifyMatch_Unconfirmed(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	submitted, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	_, err = store.NullifyMatch(submitted.ID)
	assert.ErrorIs(t, err, league.ErrNotFound)
}

func TestDeletePending_AllThreeKeys(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	cases := []struct {
		name   string
		remove func(match *league.Match) (bool, error)
	}{
		{"by correlation id", func(m *league.Match) (bool, error) {
			return store.DeletePendingByCorrelationID("msg-x")
		}},
		{"by match id", func(m *league.Match) (bool, error) {
			return store.DeletePendingByMatchID(m.ID)
		}},
		{"by user id", func(m *league.Match) (bool, error) {
			return store.DeletePendingByUserID(bob.ID)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			match, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-x", 100)
			require.NoError(t, err)

			removed, err := tc.remove(match)
			require.NoError(t, err)
			assert.True(t, removed)

			_, err = store.GetPendingByCorrelationID("msg-x")
			assert.ErrorIs(t, err, league.ErrNotFound)
		})
	}
}

func TestResetChallengeCounts(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	_, err = store.ResetChallengeCounts()
	require.NoError(t, err)

	user, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, user.ChallengesUsed)
}

func TestApplyDecay(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")
	carol := registerCompeting(t, store, "U3", "Carol")

	// Alice and Bob played this week; Carol did not.
	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	weekAgo := time.Now().Add(-7 * 24 * time.Hour).Unix()
	decayed, err := store.ApplyDecay(10, weekAgo)
	require.NoError(t, err)
	assert.EqualValues(t, 1, decayed)

	idle, err := store.GetUser(carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 1490, idle.Rating)
	assert.Equal(t, 1, idle.IdleWeeks)

	active, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, active.Rating)
	assert.Equal(t, 0, active.IdleWeeks)
}

func TestAutoQuit(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()

	alice := registerCompeting(t, store, "U1", "Alice")
	bob := registerCompeting(t, store, "U2", "Bob")

	_, err := db.Exec("UPDATE users SET idle_weeks = 4, rating = 1700 WHERE id = ?", alice.ID)
	require.NoError(t, err)

	quit, err := store.AutoQuit(4, true, 1550)
	require.NoError(t, err)
	assert.EqualValues(t, 1, quit)

	retired, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.False(t, retired.Competing)
	assert.Equal(t, 1550, retired.Rating, "rating above the average is pulled back")

	still, err := store.GetUser(bob.ID)
	require.NoError(t, err)
	assert.True(t, still.Competing)
}

func TestMeta(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	_, ok, err := store.GetMeta("maintenance_boundary")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetMeta("maintenance_boundary", "2026-08-24"))
	value, ok, err := store.GetMeta("maintenance_boundary")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-08-24", value)

	require.NoError(t, store.SetMeta("maintenance_boundary", "2026-08-31"))
	value, _, err = store.GetMeta("maintenance_boundary")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", value)
}

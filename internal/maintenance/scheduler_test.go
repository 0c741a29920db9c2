package maintenance

import (
	"testing"
	"time"

	"github.com/michaelkrauty/PDL-sub000/internal/config"
	"github.com/michaelkrauty/PDL-sub000/internal/database"
	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/metrics"
	"github.com/michaelkrauty/PDL-sub000/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.LeagueConfig {
	return config.LeagueConfig{
		StartingRating:     1500,
		KFactor:            50,
		BonusPoints:        5,
		WeeklyChallengeCap: 5,
		DecayEnabled:       true,
		DecayAmount:        10,
		AutoQuitEnabled:    true,
		AutoQuitWeeks:      4,
		ResetWeekday:       time.Monday,
		ResetHour:          0,
	}
}

func setupRunner(t *testing.T, cfg config.LeagueConfig) (*Runner, league.LeagueStore, *metrics.Mock, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	store := league.New(db)
	metr := metrics.NewMock()
	runner := New(store, metr, cfg)
	return runner, store, metr, teardown
}

func seedCompeting(t *testing.T, store league.LeagueStore, externalID string) *league.User {
	t.Helper()
	user, _, err := store.CreateUser(externalID, externalID, 1500)
	require.NoError(t, err)
	return user
}

func TestRunWeekly_ResetsChallengeCounts(t *testing.T) {
	runner, store, _, teardown := setupRunner(t, testConfig())
	defer teardown()

	alice := seedCompeting(t, store, "U1")
	bob := seedCompeting(t, store, "U2")
	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	require.NoError(t, runner.RunWeekly(false))

	user, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, user.ChallengesUsed)
}

func TestRunWeekly_DecaysOnlyIdlePlayers(t *testing.T) {
	runner, store, _, teardown := setupRunner(t, testConfig())
	defer teardown()

	alice := seedCompeting(t, store, "U1")
	bob := seedCompeting(t, store, "U2")
	carol := seedCompeting(t, store, "U3")

	_, err := store.SubmitMatch(alice.ID, bob.ID, true, "msg-1", 5)
	require.NoError(t, err)

	require.NoError(t, runner.RunWeekly(false))

	idle, err := store.GetUser(carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 1490, idle.Rating, "idle player loses exactly the decay amount")

	active, err := store.GetUser(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, active.Rating)
}

func TestRunWeekly_IdempotentPerBoundary(t *testing.T) {
	runner, store, metr, teardown := setupRunner(t, testConfig())
	defer teardown()

	carol := seedCompeting(t, store, "U3")

	require.NoError(t, runner.RunWeekly(false))
	require.NoError(t, runner.RunWeekly(false))

	user, err := store.GetUser(carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 1490, user.Rating, "second run in the same week must not double-decay")
	assert.Equal(t, 1, metr.MaintenanceRuns())
}

func TestRunWeekly_ForceIgnoresBoundary(t *testing.T) {
	runner, store, _, teardown := setupRunner(t, testConfig())
	defer teardown()

	carol := seedCompeting(t, store, "U3")

	require.NoError(t, runner.RunWeekly(false))
	require.NoError(t, runner.RunWeekly(true))

	user, err := store.GetUser(carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 1480, user.Rating)
}

func TestRunWeekly_RunsAgainAfterBoundaryAdvance(t *testing.T) {
	runner, store, _, teardown := setupRunner(t, testConfig())
	defer teardown()

	carol := seedCompeting(t, store, "U3")

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) // a Tuesday
	runner.now = func() time.Time { return base }
	require.NoError(t, runner.RunWeekly(false))

	runner.now = func() time.Time { return base.AddDate(0, 0, 7) }
	require.NoError(t, runner.RunWeekly(false))

	user, err := store.GetUser(carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 1480, user.Rating, "a new boundary decays again")
	assert.Equal(t, 2, user.IdleWeeks)
}

func TestRunWeekly_PostsStandings(t *testing.T) {
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	cfg := testConfig()
	cfg.TopPlayersCount = 10
	store := league.New(db)
	mockNotifier := notifier.NewMock()
	runner := New(store, metrics.NewMock(), cfg).WithAnnouncer(mockNotifier, leaderboard.NewStore(db))

	seedCompeting(t, store, "U1")
	seedCompeting(t, store, "U2")

	require.NoError(t, runner.RunWeekly(false))

	require.Len(t, mockNotifier.SendLeaderboardCalls, 1)
	assert.Len(t, mockNotifier.SendLeaderboardCalls[0], 2)
}

func TestRunWeekly_AutoQuit(t *testing.T) {
	cfg := testConfig()
	cfg.AutoQuitWeeks = 2
	cfg.AutoQuitResetRating = true
	runner, store, _, teardown := setupRunner(t, cfg)
	defer teardown()

	carol := seedCompeting(t, store, "U3")

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	for week := 0; week < 2; week++ {
		offset := week
		runner.now = func() time.Time { return base.AddDate(0, 0, 7*offset) }
		require.NoError(t, runner.RunWeekly(false))
	}

	user, err := store.GetUser(carol.ID)
	require.NoError(t, err)
	assert.False(t, user.Competing, "player idle past the threshold retires")
}

func TestBoundary(t *testing.T) {
	runner := New(nil, metrics.NewMock(), testConfig())

	// Wednesday noon resolves to the preceding Monday midnight.
	runner.now = func() time.Time {
		return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	}
	b := runner.boundary()
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), b)

	// Monday before the reset hour still belongs to the previous week.
	cfg := testConfig()
	cfg.ResetHour = 6
	runner = New(nil, metrics.NewMock(), cfg)
	runner.now = func() time.Time {
		return time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC)
	}
	b = runner.boundary()
	assert.Equal(t, time.Date(2026, 8, 17, 6, 0, 0, 0, time.UTC), b)
}

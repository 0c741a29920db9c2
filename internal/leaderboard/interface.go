package leaderboard

// LeaderboardService defines the ranking queries. All operations are
// read-only; the lifecycle manager stays the sole writer of rating state.
type LeaderboardService interface {
	Rank(userID int64) (int, error)
	TopPlayers(n int, activeOnly bool, provisionalMin int) ([]Entry, error)
	NearbyPlayers(userID int64, n int) ([]Entry, error)
	Stats(userID int64) (*PlayerStats, error)
}

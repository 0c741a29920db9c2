package league

// ComputeFunc recomputes both participants' ratings from the snapshots taken
// at submission time. It runs inside the confirmation transaction so the
// whole confirm is one atomic unit.
type ComputeFunc func(playerStart, opponentStart int, playerWon bool) (playerEnd, opponentEnd int)

// LeagueStore defines the interface for interacting with the league's data.
type LeagueStore interface {
	// Users
	CreateUser(externalID, displayName string, firstUserRating int) (*User, bool, error)
	GetUser(id int64) (*User, error)
	GetUserByExternalID(externalID string) (*User, error)
	SetDisplayName(id int64, displayName string) error
	SetCompeting(id int64, competing bool) error
	GetAllUsers() ([]User, error)
	CountUsers() (int, error)

	// Matches
	SubmitMatch(submitterID, opponentID int64, submitterWon bool, correlationID string, weeklyCap int) (*Match, error)
	ConfirmMatch(correlationID string, confirmerID int64, compute ComputeFunc) (*Match, error)
	NullifyMatch(matchID int64) (*Match, error)
	GetMatch(id int64) (*Match, error)
	GetAllMatches() ([]Match, error)

	// Pending confirmations. The three delete variants cover every key a
	// cancellation can arrive with; callers compose them.
	GetPendingByCorrelationID(correlationID string) (*PendingMatch, error)
	DeletePendingByCorrelationID(correlationID string) (bool, error)
	DeletePendingByMatchID(matchID int64) (bool, error)
	DeletePendingByUserID(userID int64) (bool, error)

	// Maintenance
	ResetChallengeCounts() (int64, error)
	ApplyDecay(amount int, activeSince int64) (int64, error)
	AutoQuit(idleWeeks int, resetEnabled bool, resetRatingTo int) (int64, error)
	AverageRating() (float64, error)
	GetMeta(key string) (string, bool, error)
	SetMeta(key, value string) error
}

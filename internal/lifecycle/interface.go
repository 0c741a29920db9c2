package lifecycle

import "github.com/michaelkrauty/PDL-sub000/internal/league"

// Store defines the database operations required by the lifecycle manager.
type Store interface {
	CreateUser(externalID, displayName string, firstUserRating int) (*league.User, bool, error)
	GetUser(id int64) (*league.User, error)
	GetUserByExternalID(externalID string) (*league.User, error)
	SetDisplayName(id int64, displayName string) error
	SetCompeting(id int64, competing bool) error
	SubmitMatch(submitterID, opponentID int64, submitterWon bool, correlationID string, weeklyCap int) (*league.Match, error)
	ConfirmMatch(correlationID string, confirmerID int64, compute league.ComputeFunc) (*league.Match, error)
	NullifyMatch(matchID int64) (*league.Match, error)
	GetMatch(id int64) (*league.Match, error)
	GetPendingByCorrelationID(correlationID string) (*league.PendingMatch, error)
	DeletePendingByCorrelationID(correlationID string) (bool, error)
	DeletePendingByMatchID(matchID int64) (bool, error)
	DeletePendingByUserID(userID int64) (bool, error)
}

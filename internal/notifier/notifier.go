package notifier

import (
	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
)

// Notifier defines a high-level interface for sending notifications about league events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For submitted results awaiting the opponent's confirmation
	SendPendingMatchNotification(match *league.Match, submitter, opponent *league.User, correlationID string, dryRun bool) error
	// For confirmed results
	SendResultNotification(event *pubsub.MatchConfirmedEvent, dryRun bool) error
	// For the weekly standings post
	SendLeaderboard(entries []leaderboard.Entry, dryRun bool) error

	// For formatting responses to slash commands
	FormatLeaderboardResponse(entries []leaderboard.Entry) (any, error)
	FormatNearbyResponse(entries []leaderboard.Entry, userID int64) (any, error)
	FormatRankResponse(entry *leaderboard.Entry) (any, error)
	FormatPlayerStatsResponse(stats *leaderboard.PlayerStats) (any, error)
	FormatPlayerNotFoundResponse(query string) (any, error)
}

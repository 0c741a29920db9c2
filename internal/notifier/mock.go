package notifier

import (
	"sync"

	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Call records
	SendPendingMatchCalls []struct {
		Match         *league.Match
		CorrelationID string
	}
	SendResultNotificationCalls []*pubsub.MatchConfirmedEvent
	SendLeaderboardCalls        [][]leaderboard.Entry

	// Spies for format functions
	FormatLeaderboardResponseFunc    func(entries []leaderboard.Entry) (any, error)
	FormatNearbyResponseFunc         func(entries []leaderboard.Entry, userID int64) (any, error)
	FormatRankResponseFunc           func(entry *leaderboard.Entry) (any, error)
	FormatPlayerStatsResponseFunc    func(stats *leaderboard.PlayerStats) (any, error)
	FormatPlayerNotFoundResponseFunc func(query string) (any, error)

	// Call records for format functions
	LastLeaderboardResponse any
	LastStatsResponse       any
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendPendingMatchCalls = nil
	m.SendResultNotificationCalls = nil
	m.SendLeaderboardCalls = nil
	m.LastLeaderboardResponse = nil
	m.LastStatsResponse = nil
}

func (m *Mock) SendPendingMatchNotification(match *league.Match, submitter, opponent *league.User, correlationID string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendPendingMatchCalls = append(m.SendPendingMatchCalls, struct {
		Match         *league.Match
		CorrelationID string
	}{match, correlationID})
	return nil
}

func (m *Mock) SendResultNotification(event *pubsub.MatchConfirmedEvent, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendResultNotificationCalls = append(m.SendResultNotificationCalls, event)
	return nil
}

func (m *Mock) SendLeaderboard(entries []leaderboard.Entry, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, entries)
	return nil
}

func (m *Mock) FormatLeaderboardResponse(entries []leaderboard.Entry) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatLeaderboardResponseFunc != nil {
		resp, err := m.FormatLeaderboardResponseFunc(entries)
		m.LastLeaderboardResponse = resp
		return resp, err
	}
	return "formatted_leaderboard", nil
}

func (m *Mock) FormatNearbyResponse(entries []leaderboard.Entry, userID int64) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatNearbyResponseFunc != nil {
		return m.FormatNearbyResponseFunc(entries, userID)
	}
	return "formatted_nearby", nil
}

func (m *Mock) FormatRankResponse(entry *leaderboard.Entry) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatRankResponseFunc != nil {
		return m.FormatRankResponseFunc(entry)
	}
	return "formatted_rank", nil
}

func (m *Mock) FormatPlayerStatsResponse(stats *leaderboard.PlayerStats) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerStatsResponseFunc != nil {
		resp, err := m.FormatPlayerStatsResponseFunc(stats)
		m.LastStatsResponse = resp
		return resp, err
	}
	return "formatted_player_stats", nil
}

func (m *Mock) FormatPlayerNotFoundResponse(query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerNotFoundResponseFunc != nil {
		return m.FormatPlayerNotFoundResponseFunc(query)
	}
	return "formatted_player_not_found", nil
}

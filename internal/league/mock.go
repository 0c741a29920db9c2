package league

import "sync"

// MockStore is a mock implementation of the LeagueStore interface for
// testing. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	CreateUserFunc                   func(externalID, displayName string, firstUserRating int) (*User, bool, error)
	GetUserFunc                      func(id int64) (*User, error)
	GetUserByExternalIDFunc          func(externalID string) (*User, error)
	SetDisplayNameFunc               func(id int64, displayName string) error
	SetCompetingFunc                 func(id int64, competing bool) error
	GetAllUsersFunc                  func() ([]User, error)
	CountUsersFunc                   func() (int, error)
	SubmitMatchFunc                  func(submitterID, opponentID int64, submitterWon bool, correlationID string, weeklyCap int) (*Match, error)
	ConfirmMatchFunc                 func(correlationID string, confirmerID int64, compute ComputeFunc) (*Match, error)
	NullifyMatchFunc                 func(matchID int64) (*Match, error)
	GetMatchFunc                     func(id int64) (*Match, error)
	GetAllMatchesFunc                func() ([]Match, error)
	GetPendingByCorrelationIDFunc    func(correlationID string) (*PendingMatch, error)
	DeletePendingByCorrelationIDFunc func(correlationID string) (bool, error)
	DeletePendingByMatchIDFunc       func(matchID int64) (bool, error)
	DeletePendingByUserIDFunc        func(userID int64) (bool, error)
	ResetChallengeCountsFunc         func() (int64, error)
	ApplyDecayFunc                   func(amount int, activeSince int64) (int64, error)
	AutoQuitFunc                     func(idleWeeks int, resetEnabled bool, resetRatingTo int) (int64, error)
	AverageRatingFunc                func() (float64, error)
	GetMetaFunc                      func(key string) (string, bool, error)
	SetMetaFunc                      func(key, value string) error

	// Call records
	SubmitMatchCalls []struct {
		SubmitterID   int64
		OpponentID    int64
		SubmitterWon  bool
		CorrelationID string
	}
	ConfirmMatchCalls []struct {
		CorrelationID string
		ConfirmerID   int64
	}
	NullifyMatchCalls []int64
	SetCompetingCalls []struct {
		ID        int64
		Competing bool
	}
	DeletePendingCalls []string
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) CreateUser(externalID, displayName string, firstUserRating int) (*User, bool, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(externalID, displayName, firstUserRating)
	}
	return &User{ExternalID: externalID, DisplayName: displayName, Rating: firstUserRating, Competing: true}, true, nil
}

func (m *MockStore) GetUser(id int64) (*User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(id)
	}
	return nil, ErrNotRegistered
}

func (m *MockStore) GetUserByExternalID(externalID string) (*User, error) {
	if m.GetUserByExternalIDFunc != nil {
		return m.GetUserByExternalIDFunc(externalID)
	}
	return nil, ErrNotRegistered
}

func (m *MockStore) SetDisplayName(id int64, displayName string) error {
	if m.SetDisplayNameFunc != nil {
		return m.SetDisplayNameFunc(id, displayName)
	}
	return nil
}

func (m *MockStore) SetCompeting(id int64, competing bool) error {
	m.mu.Lock()
	m.SetCompetingCalls = append(m.SetCompetingCalls, struct {
		ID        int64
		Competing bool
	}{id, competing})
	m.mu.Unlock()
	if m.SetCompetingFunc != nil {
		return m.SetCompetingFunc(id, competing)
	}
	return nil
}

func (m *MockStore) GetAllUsers() ([]User, error) {
	if m.GetAllUsersFunc != nil {
		return m.GetAllUsersFunc()
	}
	return nil, nil
}

func (m *MockStore) CountUsers() (int, error) {
	if m.CountUsersFunc != nil {
		return m.CountUsersFunc()
	}
	return 0, nil
}

func (m *MockStore) SubmitMatch(submitterID, opponentID int64, submitterWon bool, correlationID string, weeklyCap int) (*Match, error) {
	m.mu.Lock()
	m.SubmitMatchCalls = append(m.SubmitMatchCalls, struct {
		SubmitterID   int64
		OpponentID    int64
		SubmitterWon  bool
		CorrelationID string
	}{submitterID, opponentID, submitterWon, correlationID})
	m.mu.Unlock()
	if m.SubmitMatchFunc != nil {
		return m.SubmitMatchFunc(submitterID, opponentID, submitterWon, correlationID, weeklyCap)
	}
	return &Match{PlayerID: submitterID, OpponentID: opponentID, Result: submitterWon}, nil
}

func (m *MockStore) ConfirmMatch(correlationID string, confirmerID int64, compute ComputeFunc) (*Match, error) {
	m.mu.Lock()
	m.ConfirmMatchCalls = append(m.ConfirmMatchCalls, struct {
		CorrelationID string
		ConfirmerID   int64
	}{correlationID, confirmerID})
	m.mu.Unlock()
	if m.ConfirmMatchFunc != nil {
		return m.ConfirmMatchFunc(correlationID, confirmerID, compute)
	}
	return nil, ErrNotFound
}

func (m *MockStore) NullifyMatch(matchID int64) (*Match, error) {
	m.mu.Lock()
	m.NullifyMatchCalls = append(m.NullifyMatchCalls, matchID)
	m.mu.Unlock()
	if m.NullifyMatchFunc != nil {
		return m.NullifyMatchFunc(matchID)
	}
	return nil, ErrNotFound
}

func (m *MockStore) GetMatch(id int64) (*Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) GetAllMatches() ([]Match, error) {
	if m.GetAllMatchesFunc != nil {
		return m.GetAllMatchesFunc()
	}
	return nil, nil
}

func (m *MockStore) GetPendingByCorrelationID(correlationID string) (*PendingMatch, error) {
	if m.GetPendingByCorrelationIDFunc != nil {
		return m.GetPendingByCorrelationIDFunc(correlationID)
	}
	return nil, ErrNotFound
}

func (m *MockStore) DeletePendingByCorrelationID(correlationID string) (bool, error) {
	m.mu.Lock()
	m.DeletePendingCalls = append(m.DeletePendingCalls, "correlation:"+correlationID)
	m.mu.Unlock()
	if m.DeletePendingByCorrelationIDFunc != nil {
		return m.DeletePendingByCorrelationIDFunc(correlationID)
	}
	return false, nil
}

func (m *MockStore) DeletePendingByMatchID(matchID int64) (bool, error) {
	if m.DeletePendingByMatchIDFunc != nil {
		return m.DeletePendingByMatchIDFunc(matchID)
	}
	return false, nil
}

func (m *MockStore) DeletePendingByUserID(userID int64) (bool, error) {
	if m.DeletePendingByUserIDFunc != nil {
		return m.DeletePendingByUserIDFunc(userID)
	}
	return false, nil
}

func (m *MockStore) ResetChallengeCounts() (int64, error) {
	if m.ResetChallengeCountsFunc != nil {
		return m.ResetChallengeCountsFunc()
	}
	return 0, nil
}

func (m *MockStore) ApplyDecay(amount int, activeSince int64) (int64, error) {
	if m.ApplyDecayFunc != nil {
		return m.ApplyDecayFunc(amount, activeSince)
	}
	return 0, nil
}

func (m *MockStore) AutoQuit(idleWeeks int, resetEnabled bool, resetRatingTo int) (int64, error) {
	if m.AutoQuitFunc != nil {
		return m.AutoQuitFunc(idleWeeks, resetEnabled, resetRatingTo)
	}
	return 0, nil
}

func (m *MockStore) AverageRating() (float64, error) {
	if m.AverageRatingFunc != nil {
		return m.AverageRatingFunc()
	}
	return 0, nil
}

func (m *MockStore) GetMeta(key string) (string, bool, error) {
	if m.GetMetaFunc != nil {
		return m.GetMetaFunc(key)
	}
	return "", false, nil
}

func (m *MockStore) SetMeta(key, value string) error {
	if m.SetMetaFunc != nil {
		return m.SetMetaFunc(key, value)
	}
	return nil
}

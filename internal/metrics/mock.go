package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu               sync.Mutex
	matchesSubmitted int
	matchesConfirmed int
	matchesDisputed  int
	matchesCancelled int
	maintenanceRuns  int
	commandDurations []float64
	slackNotifSent   int
	slackNotifFailed int
	startupTime      float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		commandDurations: make([]float64, 0),
	}
}

func (m *Mock) IncMatchesSubmitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesSubmitted++
}

func (m *Mock) IncMatchesConfirmed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesConfirmed++
}

func (m *Mock) IncMatchesDisputed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesDisputed++
}

func (m *Mock) IncMatchesCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCancelled++
}

func (m *Mock) IncMaintenanceRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maintenanceRuns++
}

func (m *Mock) ObserveCommandDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandDurations = append(m.commandDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesSubmitted returns the number of times IncMatchesSubmitted was called.
func (m *Mock) MatchesSubmitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesSubmitted
}

// MatchesConfirmed returns the number of times IncMatchesConfirmed was called.
func (m *Mock) MatchesConfirmed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesConfirmed
}

// MatchesDisputed returns the number of times IncMatchesDisputed was called.
func (m *Mock) MatchesDisputed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesDisputed
}

// MatchesCancelled returns the number of times IncMatchesCancelled was called.
func (m *Mock) MatchesCancelled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCancelled
}

// MaintenanceRuns returns the number of times IncMaintenanceRuns was called.
func (m *Mock) MaintenanceRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maintenanceRuns
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}

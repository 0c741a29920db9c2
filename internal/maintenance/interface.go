package maintenance

// Store defines the database operations required by the maintenance runner.
type Store interface {
	ResetChallengeCounts() (int64, error)
	ApplyDecay(amount int, activeSince int64) (int64, error)
	AutoQuit(idleWeeks int, resetEnabled bool, resetRatingTo int) (int64, error)
	AverageRating() (float64, error)
	GetMeta(key string) (string, bool, error)
	SetMeta(key, value string) error
}

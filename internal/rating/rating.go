package rating

import "math"

// Engine computes Elo rating updates. It is pure: no I/O, no state beyond
// the configured constants, so a single instance is shared everywhere.
type Engine struct {
	// K scales the rating exchange.
	K int
	// Bonus is awarded to both participants after the exchange, win or lose.
	Bonus int
}

// New creates a new Engine.
func New(kFactor, bonus int) *Engine {
	return &Engine{K: kFactor, Bonus: bonus}
}

// ComputeUpdate returns the new ratings for both participants of a match.
// The exchange is zero-sum before the participation bonus: the winner gains
// what the loser gives up, scaled by the standard logistic expectation.
func (e *Engine) ComputeUpdate(player, opponent int, playerWon bool) (newPlayer, newOpponent int) {
	expected := expectedScore(player, opponent)
	score := 0.0
	if playerWon {
		score = 1.0
	}
	delta := Round(float64(e.K) * (score - expected))
	newPlayer = player + delta + e.Bonus
	newOpponent = opponent - delta + e.Bonus
	return newPlayer, newOpponent
}

// Delta returns only the pre-bonus exchange for the player's side.
// Nullify uses it to reverse a confirmed result.
func (e *Engine) Delta(player, opponent int, playerWon bool) int {
	newPlayer, _ := e.ComputeUpdate(player, opponent, playerWon)
	return newPlayer - player - e.Bonus
}

// expectedScore is the standard logistic Elo expectation for the player
// against the opponent. Equal ratings yield exactly 0.5.
func expectedScore(player, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-player)/400.0))
}

// Round rounds half away from zero to an integer rating. Decay and the
// auto-quit community-average reset reuse the same rule.
func Round(v float64) int {
	if v < 0 {
		return -int(math.Floor(-v + 0.5))
	}
	return int(math.Floor(v + 0.5))
}

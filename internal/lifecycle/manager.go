package lifecycle

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/michaelkrauty/PDL-sub000/internal/config"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/metrics"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
	"github.com/michaelkrauty/PDL-sub000/internal/rating"
)

// New creates a new Manager.
func New(store Store, engine *rating.Engine, metrics metrics.Metrics, pubsub pubsub.PubSubClient, cfg config.LeagueConfig) *Manager {
	return &Manager{
		store:   store,
		engine:  engine,
		metrics: metrics,
		pubsub:  pubsub,
		cfg:     cfg,
	}
}

// Register creates a league user for the platform identity. Registration is
// idempotent: an existing identity gets its display name synced and
// league.ErrAlreadyRegistered back, with the existing user attached.
func (m *Manager) Register(externalID, displayName string) (*league.User, error) {
	user, created, err := m.store.CreateUser(externalID, displayName, m.cfg.StartingRating)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", externalID, err)
	}
	if !created {
		if user.DisplayName != displayName {
			if err := m.store.SetDisplayName(user.ID, displayName); err != nil {
				log.Error("Failed to sync display name", "error", err, "userID", user.ID)
			} else {
				user.DisplayName = displayName
			}
		}
		return user, league.ErrAlreadyRegistered
	}
	return user, nil
}

// SetCompeting toggles the competing flag for the platform identity.
func (m *Manager) SetCompeting(externalID string, competing bool) (*league.User, error) {
	user, err := m.store.GetUserByExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetCompeting(user.ID, competing); err != nil {
		return nil, err
	}
	user.Competing = competing
	return user, nil
}

// Submit records a head-to-head result and opens the confirmation window for
// the opponent. The store enforces the weekly cap, the competing flags, and
// the one-live-pending-per-pair rule inside a single transaction.
func (m *Manager) Submit(submitterExternalID, opponentExternalID string, submitterWon bool, correlationID string) (*league.Match, error) {
	if submitterExternalID == opponentExternalID {
		return nil, fmt.Errorf("%w: cannot submit a match against yourself", league.ErrForbidden)
	}

	submitter, err := m.store.GetUserByExternalID(submitterExternalID)
	if err != nil {
		return nil, err
	}
	opponent, err := m.store.GetUserByExternalID(opponentExternalID)
	if err != nil {
		return nil, err
	}

	match, err := m.store.SubmitMatch(submitter.ID, opponent.ID, submitterWon, correlationID, m.cfg.WeeklyChallengeCap)
	if err != nil {
		return nil, err
	}

	m.metrics.IncMatchesSubmitted()
	return match, nil
}

// Confirm resolves a pending match. Only the recorded opponent may confirm;
// the new ratings come from the snapshots taken at submission time, and the
// whole update is one atomic store operation. A second confirmation of the
// same correlationID fails with league.ErrNotFound.
func (m *Manager) Confirm(correlationID, confirmerExternalID string) (*league.Match, error) {
	confirmer, err := m.store.GetUserByExternalID(confirmerExternalID)
	if err != nil {
		return nil, err
	}

	match, err := m.store.ConfirmMatch(correlationID, confirmer.ID, m.engine.ComputeUpdate)
	if err != nil {
		return nil, err
	}

	m.metrics.IncMatchesConfirmed()
	m.publishConfirmed(match)
	return match, nil
}

func (m *Manager) publishConfirmed(match *league.Match) {
	player, err := m.store.GetUser(match.PlayerID)
	if err != nil {
		log.Error("Failed to load submitter for event", "error", err, "matchID", match.ID)
		return
	}
	opponent, err := m.store.GetUser(match.OpponentID)
	if err != nil {
		log.Error("Failed to load opponent for event", "error", err, "matchID", match.ID)
		return
	}

	event := pubsub.MatchConfirmedEvent{
		MatchID:          match.ID,
		PlayerExternalID: player.ExternalID,
		PlayerName:       player.DisplayName,
		PlayerRating:     player.Rating,
		PlayerWon:        match.Result,
		OpponentExternal: opponent.ExternalID,
		OpponentName:     opponent.DisplayName,
		OpponentRating:   opponent.Rating,
	}
	if err := m.pubsub.SendMessage(pubsub.TopicMatchConfirmed, event); err != nil {
		// The confirmation already committed; the notification is best-effort.
		log.Error("Failed to publish match-confirmed event", "error", err, "matchID", match.ID)
	}
}

// Dispute removes the pending confirmation without applying any rating
// change. The match row is kept unconfirmed for admin review. Either
// participant may dispute.
func (m *Manager) Dispute(correlationID, disputerExternalID string) (*league.Match, error) {
	disputer, err := m.store.GetUserByExternalID(disputerExternalID)
	if err != nil {
		return nil, err
	}

	pending, err := m.store.GetPendingByCorrelationID(correlationID)
	if err != nil {
		return nil, err
	}
	match, err := m.store.GetMatch(pending.MatchID)
	if err != nil {
		return nil, err
	}
	if disputer.ID != match.PlayerID && disputer.ID != match.OpponentID {
		return nil, league.ErrForbidden
	}

	removed, err := m.store.DeletePendingByCorrelationID(correlationID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, league.ErrNotFound
	}

	m.metrics.IncMatchesDisputed()
	log.Warn("Match disputed, flagged for admin resolution", "matchID", match.ID, "disputer", disputer.ID)
	return match, nil
}

// CancelKeys identifies the pending match to cancel. Any combination of the
// three keys may be set; every matching pending row is removed.
type CancelKeys struct {
	CorrelationID string
	MatchID       int64
	UserID        int64
}

// Cancel removes pending confirmations by message id, match id or user id.
// No ratings were applied, so there is nothing to roll back; the underlying
// match stays unconfirmed and void.
func (m *Manager) Cancel(keys CancelKeys) (bool, error) {
	removed := false

	if keys.CorrelationID != "" {
		ok, err := m.store.DeletePendingByCorrelationID(keys.CorrelationID)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}
	if keys.MatchID != 0 {
		ok, err := m.store.DeletePendingByMatchID(keys.MatchID)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}
	if keys.UserID != 0 {
		ok, err := m.store.DeletePendingByUserID(keys.UserID)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}

	if removed {
		m.metrics.IncMatchesCancelled()
		log.Info("Pending match cancelled", "correlationID", keys.CorrelationID, "matchID", keys.MatchID, "userID", keys.UserID)
	}
	return removed, nil
}

// Nullify reverses a confirmed match. Admin-only correction path.
func (m *Manager) Nullify(matchID int64) (*league.Match, error) {
	match, err := m.store.NullifyMatch(matchID)
	if err != nil {
		return nil, err
	}
	log.Warn("Match nullified by admin", "matchID", matchID)
	return match, nil
}

package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/lifecycle"
	slacknotifier "github.com/michaelkrauty/PDL-sub000/internal/notifier/slack"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
	"github.com/slack-go/slack"
)

const nearbyWindow = 2

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) ListMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.Store.GetAllUsers()
		if err != nil {
			http.Error(w, "Failed to get users", http.StatusInternalServerError)
			log.Error("Failed to get users from store", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(users); err != nil {
			log.Error("Failed to write response", "error", err)
		}
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := s.Store.GetAllMatches()
		if err != nil {
			http.Error(w, "Failed to get matches", http.StatusInternalServerError)
			log.Error("Failed to get matches from store", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(matches); err != nil {
			log.Error("Failed to encode matches to JSON", "error", err)
		}
	}
}

// WeeklyMaintenanceHandler triggers the weekly maintenance run. The boundary
// marker keeps it idempotent; pass force=true to run again within the same week.
func (s *Server) WeeklyMaintenanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force := r.URL.Query().Get("force") == "true"
		if err := s.Maintenance.RunWeekly(force); err != nil {
			log.Error("Weekly maintenance failed", "error", err)
			http.Error(w, "Maintenance failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Maintenance completed.")
	}
}

// NullifyMatchHandler reverses a confirmed match. Admin correction path.
func (s *Server) NullifyMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, err := strconv.ParseInt(r.URL.Query().Get("matchID"), 10, 64)
		if err != nil {
			http.Error(w, "matchID is required", http.StatusBadRequest)
			return
		}

		match, err := s.Lifecycle.Nullify(matchID)
		if err != nil {
			if errors.Is(err, league.ErrNotFound) {
				http.Error(w, "No confirmed match with that id", http.StatusNotFound)
				return
			}
			log.Error("Failed to nullify match", "matchID", matchID, "error", err)
			http.Error(w, "Failed to nullify match", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(match); err != nil {
			log.Error("Failed to encode match to JSON", "error", err)
		}
	}
}

// CancelMatchHandler removes pending confirmations by any combination of
// correlation id, match id and user id.
func (s *Server) CancelMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := lifecycle.CancelKeys{
			CorrelationID: r.URL.Query().Get("correlationID"),
		}
		if v := r.URL.Query().Get("matchID"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				http.Error(w, "Invalid matchID", http.StatusBadRequest)
				return
			}
			keys.MatchID = id
		}
		if v := r.URL.Query().Get("userID"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				http.Error(w, "Invalid userID", http.StatusBadRequest)
				return
			}
			keys.UserID = id
		}
		if keys.CorrelationID == "" && keys.MatchID == 0 && keys.UserID == 0 {
			http.Error(w, "correlationID, matchID or userID is required", http.StatusBadRequest)
			return
		}

		removed, err := s.Lifecycle.Cancel(keys)
		if err != nil {
			log.Error("Failed to cancel pending matches", "error", err)
			http.Error(w, "Failed to cancel pending matches", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		if removed {
			fmt.Fprintln(w, "Pending confirmations cancelled.")
		} else {
			fmt.Fprintln(w, "Nothing to cancel.")
		}
	}
}

// MatchConfirmedPushHandler receives the push delivery for a confirmed result
// and posts the channel-wide notification.
func (s *Server) MatchConfirmedPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received match confirmed message", "body", string(bodyBytes))
		// Define a small struct to decode the incoming JSON's `data` field
		var pubsubMsg struct {
			Subscription string `json:"subscription"`
			Message      struct {
				Data string `json:"data"` // base64-encoded message payload
			} `json:"message"`
		}

		if err := json.Unmarshal(bodyBytes, &pubsubMsg); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		// Decode base64 to raw MessagePack bytes
		rawData, err := base64.StdEncoding.DecodeString(pubsubMsg.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}
		isDryRun := isDryRunFromContext(r)
		event := pubsub.MatchConfirmedEvent{}
		if err := s.pubsub.ProcessMessage(rawData, &event); err != nil {
			log.Error("Failed to decode match confirmed event", "error", err)
			http.Error(w, "Invalid message payload", http.StatusBadRequest)
			return
		}
		if err := s.Notifier.SendResultNotification(&event, isDryRun); err != nil {
			log.Error("Failed to notify result", "error", err)
			http.Error(w, "Failed to notify result", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// InteractiveCallbackHandler routes the confirm, dispute and cancel buttons
// on a pending-match message. The button value carries the correlation id.
func (s *Server) InteractiveCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}

		var callback slack.InteractionCallback
		if err := json.Unmarshal([]byte(r.FormValue("payload")), &callback); err != nil {
			log.Error("Failed to unmarshal interaction payload", "error", err)
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		if len(callback.ActionCallback.BlockActions) == 0 {
			http.Error(w, "No action in payload", http.StatusBadRequest)
			return
		}

		action := callback.ActionCallback.BlockActions[0]
		correlationID := action.Value
		clickerID := callback.User.ID
		log.Info("Received interactive action", "action", action.ActionID, "correlationID", correlationID, "user", clickerID)

		var text string
		var err error
		switch action.ActionID {
		case slacknotifier.ActionConfirmResult:
			var match *league.Match
			match, err = s.Lifecycle.Confirm(correlationID, clickerID)
			if err == nil {
				text = fmt.Sprintf("Result confirmed. Ratings updated: %d and %d.", *match.PlayerEndRating, *match.OpponentEndRating)
			}
		case slacknotifier.ActionDisputeResult:
			_, err = s.Lifecycle.Dispute(correlationID, clickerID)
			if err == nil {
				text = "Result disputed. No ratings were changed; an admin can take it from here."
			}
		case slacknotifier.ActionCancelResult:
			err = s.cancelAsParticipant(correlationID, clickerID)
			if err == nil {
				text = "Submission cancelled. No ratings were changed."
			}
		default:
			http.Error(w, "Unknown action", http.StatusBadRequest)
			return
		}

		if err != nil {
			log.Warn("Interactive action rejected", "action", action.ActionID, "error", err)
			respondEphemeral(w, slashErrorText(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		msg := map[string]any{"replace_original": true, "text": text}
		if err := json.NewEncoder(w).Encode(msg); err != nil {
			log.Error("Failed to encode interaction response", "error", err)
		}
	}
}

// cancelAsParticipant verifies the clicker is one of the two players before
// removing the pending confirmation.
func (s *Server) cancelAsParticipant(correlationID, externalID string) error {
	pending, err := s.Store.GetPendingByCorrelationID(correlationID)
	if err != nil {
		return err
	}
	match, err := s.Store.GetMatch(pending.MatchID)
	if err != nil {
		return err
	}
	clicker, err := s.Store.GetUserByExternalID(externalID)
	if err != nil {
		return err
	}
	if clicker.ID != match.PlayerID && clicker.ID != match.OpponentID {
		return league.ErrForbidden
	}
	_, err = s.Lifecycle.Cancel(lifecycle.CancelKeys{CorrelationID: correlationID})
	return err
}

// RegisterCommandHandler returns a handler for the /register Slack command.
func (s *Server) RegisterCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing command", http.StatusBadRequest)
			return
		}

		user, err := s.Lifecycle.Register(cmd.UserID, cmd.UserName)
		if errors.Is(err, league.ErrAlreadyRegistered) {
			respondEphemeral(w, fmt.Sprintf("You're already registered, %s. Your rating is %d.", user.DisplayName, user.Rating))
			return
		}
		if err != nil {
			log.Error("Failed to register user", "user", cmd.UserID, "error", err)
			http.Error(w, "Failed to register", http.StatusInternalServerError)
			return
		}

		respondEphemeral(w, fmt.Sprintf("Welcome to the league, %s! You start at %d.", user.DisplayName, user.Rating))
	}
}

// CompeteCommandHandler returns a handler for the /compete and /retire Slack commands.
func (s *Server) CompeteCommandHandler(competing bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing command", http.StatusBadRequest)
			return
		}

		user, err := s.Lifecycle.SetCompeting(cmd.UserID, competing)
		if err != nil {
			log.Warn("Failed to set competing flag", "user", cmd.UserID, "competing", competing, "error", err)
			respondEphemeral(w, slashErrorText(err))
			return
		}

		if competing {
			respondEphemeral(w, fmt.Sprintf("You're back in the running, %s!", user.DisplayName))
		} else {
			respondEphemeral(w, fmt.Sprintf("You've retired from the league, %s. Your rating is kept.", user.DisplayName))
		}
	}
}

// SubmitCommandHandler returns a handler for the /submit Slack command.
// Usage: /submit @opponent won|lost
func (s *Server) SubmitCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing command", http.StatusBadRequest)
			return
		}

		opponentID, submitterWon, parseErr := parseSubmitText(cmd.Text)
		if parseErr != nil {
			respondEphemeral(w, "Usage: /submit @opponent won|lost")
			return
		}

		correlationID := uuid.NewString()
		match, err := s.Lifecycle.Submit(cmd.UserID, opponentID, submitterWon, correlationID)
		if err != nil {
			log.Warn("Match submission rejected", "submitter", cmd.UserID, "opponent", opponentID, "error", err)
			respondEphemeral(w, slashErrorText(err))
			return
		}

		submitter, err := s.Store.GetUser(match.PlayerID)
		if err == nil {
			var opponent *league.User
			opponent, err = s.Store.GetUser(match.OpponentID)
			if err == nil {
				err = s.Notifier.SendPendingMatchNotification(match, submitter, opponent, correlationID, isDryRunFromContext(r))
			}
		}
		if err != nil {
			log.Error("Failed to post pending match notification", "matchID", match.ID, "error", err)
		}

		respondEphemeral(w, "Result submitted. It counts once your opponent confirms.")
	}
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

// respondEphemeral writes a plain-text ephemeral response to a slash command.
func respondEphemeral(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	msg := slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: text}
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

// LeaderboardCommandHandler returns a handler for the /leaderboard Slack command.
func (s *Server) LeaderboardCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.Leaderboard.TopPlayers(s.Cfg.League.TopPlayersCount, true, s.Cfg.League.ProvisionalMatches)
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}

		msg, err := s.Notifier.FormatLeaderboardResponse(entries)
		if err != nil {
			http.Error(w, "Failed to format leaderboard", http.StatusInternalServerError)
			log.Error("Failed to format leaderboard", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}

		respondWithSlackMsg(w, slackMsg)
	}
}

// RankCommandHandler returns a handler for the /rank Slack command.
func (s *Server) RankCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing command", http.StatusBadRequest)
			return
		}

		user, err := s.Store.GetUserByExternalID(cmd.UserID)
		if err != nil {
			respondEphemeral(w, slashErrorText(err))
			return
		}
		rank, err := s.Leaderboard.Rank(user.ID)
		if err != nil {
			log.Error("Failed to get rank", "user", cmd.UserID, "error", err)
			http.Error(w, "Failed to get rank", http.StatusInternalServerError)
			return
		}

		entry := &leaderboard.Entry{
			Rank:          rank,
			UserID:        user.ID,
			ExternalID:    user.ExternalID,
			DisplayName:   user.DisplayName,
			Rating:        user.Rating,
			Competing:     user.Competing,
			MatchesPlayed: user.MatchesPlayed,
		}
		msg, err := s.Notifier.FormatRankResponse(entry)
		if err != nil {
			http.Error(w, "Failed to format rank", http.StatusInternalServerError)
			log.Error("Failed to format rank", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

// NearbyCommandHandler returns a handler for the /nearby Slack command.
func (s *Server) NearbyCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing command", http.StatusBadRequest)
			return
		}

		user, err := s.Store.GetUserByExternalID(cmd.UserID)
		if err != nil {
			respondEphemeral(w, slashErrorText(err))
			return
		}
		entries, err := s.Leaderboard.NearbyPlayers(user.ID, nearbyWindow)
		if err != nil {
			log.Error("Failed to get nearby players", "user", cmd.UserID, "error", err)
			http.Error(w, "Failed to get nearby players", http.StatusInternalServerError)
			return
		}

		msg, err := s.Notifier.FormatNearbyResponse(entries, user.ID)
		if err != nil {
			http.Error(w, "Failed to format nearby players", http.StatusInternalServerError)
			log.Error("Failed to format nearby players", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

// StatsCommandHandler returns a handler for the /stats Slack command.
// With no argument it shows the caller's stats; with a name it looks that player up.
func (s *Server) StatsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing command", http.StatusBadRequest)
			return
		}

		query := strings.TrimSpace(cmd.Text)
		var user *league.User
		if query == "" {
			user, err = s.Store.GetUserByExternalID(cmd.UserID)
			if err != nil {
				respondEphemeral(w, slashErrorText(err))
				return
			}
		} else {
			user, err = s.findUserByName(query)
		}

		var msg any
		if err != nil || user == nil {
			log.Warn("Could not find player stats", "query", query, "error", err)
			msg, err = s.Notifier.FormatPlayerNotFoundResponse(query)
		} else {
			var stats *leaderboard.PlayerStats
			stats, err = s.Leaderboard.Stats(user.ID)
			if err != nil {
				log.Error("Failed to get player stats", "user", user.ID, "error", err)
				http.Error(w, "Failed to get player stats", http.StatusInternalServerError)
				return
			}
			msg, err = s.Notifier.FormatPlayerStatsResponse(stats)
		}

		if err != nil {
			http.Error(w, "Failed to format player stats", http.StatusInternalServerError)
			log.Error("Failed to format player stats", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

// findUserByName does a case-insensitive display-name lookup.
func (s *Server) findUserByName(query string) (*league.User, error) {
	users, err := s.Store.GetAllUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].DisplayName, query) {
			return &users[i], nil
		}
	}
	return nil, league.ErrNotRegistered
}

// parseSubmitText extracts the opponent and outcome from slash command text
// like "<@U123|bob> won" or "@bob lost".
func parseSubmitText(text string) (string, bool, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", false, fmt.Errorf("expected opponent and outcome")
	}

	opponent := strings.TrimPrefix(fields[0], "<@")
	opponent = strings.TrimSuffix(opponent, ">")
	if idx := strings.Index(opponent, "|"); idx >= 0 {
		opponent = opponent[:idx]
	}
	opponent = strings.TrimPrefix(opponent, "@")
	if opponent == "" {
		return "", false, fmt.Errorf("missing opponent")
	}

	switch strings.ToLower(fields[1]) {
	case "won", "win", "w", "beat":
		return opponent, true, nil
	case "lost", "loss", "l":
		return opponent, false, nil
	default:
		return "", false, fmt.Errorf("unknown outcome %q", fields[1])
	}
}

// slashErrorText maps store errors to user-facing slash command responses.
func slashErrorText(err error) string {
	switch {
	case errors.Is(err, league.ErrNotRegistered):
		return "You're not registered yet. Use /register to join the league."
	case errors.Is(err, league.ErrNotCompeting):
		return "Both players need to be actively competing. Use /compete to opt back in."
	case errors.Is(err, league.ErrAlreadyPending):
		return "There's already a result with this opponent waiting for confirmation."
	case errors.Is(err, league.ErrLimitExceeded):
		return "You've used all your challenges for this week. The counter resets at the weekly boundary."
	case errors.Is(err, league.ErrNotFound):
		return "That submission is no longer pending."
	case errors.Is(err, league.ErrForbidden):
		return "You can't do that for this match."
	default:
		return "Something went wrong. Try again in a moment."
	}
}

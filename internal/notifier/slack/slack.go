package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/metrics"
	"github.com/michaelkrauty/PDL-sub000/internal/notifier"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
	"github.com/slack-go/slack"
)

// Action IDs for the buttons on a pending-match message. The interactive
// callback handler routes on these; the button value carries the
// correlation id of the pending match.
const (
	ActionConfirmResult = "confirm_result"
	ActionDisputeResult = "dispute_result"
	ActionCancelResult  = "cancel_result"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// SendPendingMatchNotification posts a submitted result with the buttons the
// opponent uses to confirm or dispute it, or either player to cancel it.
func (s *Notifier) SendPendingMatchNotification(match *league.Match, submitter, opponent *league.User, correlationID string, dryRun bool) error {
	msg := s.formatPendingMatch(match, submitter, opponent, correlationID)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// SendResultNotification posts a confirmed result with the new ratings.
func (s *Notifier) SendResultNotification(event *pubsub.MatchConfirmedEvent, dryRun bool) error {
	msg := s.formatResultNotification(event)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// SendLeaderboard posts the current standings to the channel.
func (s *Notifier) SendLeaderboard(entries []leaderboard.Entry, dryRun bool) error {
	msg := s.formatLeaderboard(entries)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(entries []leaderboard.Entry) (any, error) {
	return s.formatLeaderboard(entries), nil
}

// FormatNearbyResponse formats the players ranked around a member for a slash command response.
func (s *Notifier) FormatNearbyResponse(entries []leaderboard.Entry, userID int64) (any, error) {
	return s.formatNearby(entries, userID), nil
}

// FormatRankResponse formats a member's own rank for a slash command response.
func (s *Notifier) FormatRankResponse(entry *leaderboard.Entry) (any, error) {
	return s.formatRank(entry), nil
}

// FormatPlayerStatsResponse formats a player's stats for a slash command response.
func (s *Notifier) FormatPlayerStatsResponse(stats *leaderboard.PlayerStats) (any, error) {
	return s.formatPlayerStats(stats), nil
}

// FormatPlayerNotFoundResponse formats a player not found message for a slash command response.
func (s *Notifier) FormatPlayerNotFoundResponse(query string) (any, error) {
	return s.formatPlayerNotFound(query), nil
}

// formatPendingMatch creates the Slack message for a freshly submitted result using Block Kit.
func (s *Notifier) formatPendingMatch(match *league.Match, submitter, opponent *league.User, correlationID string) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "Match result submitted", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	outcome := "won against"
	if !match.Result {
		outcome = "lost to"
	}
	detailsText := fmt.Sprintf("%s (%d) reports they %s %s (%d).\n%s, please confirm or dispute.",
		submitter.DisplayName,
		submitter.Rating,
		outcome,
		opponent.DisplayName,
		opponent.Rating,
		opponent.DisplayName,
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, false, false), nil, nil))

	confirm := slack.NewButtonBlockElement(ActionConfirmResult, correlationID, slack.NewTextBlockObject("plain_text", "Confirm", false, false))
	confirm.Style = slack.StylePrimary
	dispute := slack.NewButtonBlockElement(ActionDisputeResult, correlationID, slack.NewTextBlockObject("plain_text", "Dispute", false, false))
	dispute.Style = slack.StyleDanger
	cancel := slack.NewButtonBlockElement(ActionCancelResult, correlationID, slack.NewTextBlockObject("plain_text", "Cancel", false, false))
	blocks = append(blocks, slack.NewActionBlock("pending_match_actions", confirm, dispute, cancel))

	return slack.NewBlockMessage(blocks...)
}

// formatResultNotification creates the Slack message for a confirmed result using Block Kit.
func (s *Notifier) formatResultNotification(event *pubsub.MatchConfirmedEvent) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "Match confirmed!", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	winner, loser := event.PlayerName, event.OpponentName
	if !event.PlayerWon {
		winner, loser = loser, winner
	}
	resultText := fmt.Sprintf("%s beat %s", winner, loser)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", resultText, false, false), nil, nil))

	ratingFields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*%s*: %d", event.PlayerName, event.PlayerRating), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*%s*: %d", event.OpponentName, event.OpponentRating), false, false),
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", "*New ratings:*", false, false), ratingFields, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message to display the standings.
func (s *Notifier) formatLeaderboard(entries []leaderboard.Entry) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "League standings", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(entries) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No players yet. Register and play some matches!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for _, entry := range entries {
		var medal string
		switch entry.Rank {
		case 1:
			medal = " :first_place_medal:"
		case 2:
			medal = " :second_place_medal:"
		case 3:
			medal = " :third_place_medal:"
		}

		playerText := fmt.Sprintf("%d.%s %s\n> *Rating*: %d | *Matches*: %d",
			entry.Rank,
			medal,
			entry.DisplayName,
			entry.Rating,
			entry.MatchesPlayed,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatNearby creates a Slack message showing the players ranked around a member.
func (s *Notifier) formatNearby(entries []leaderboard.Entry, userID int64) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "Players near you", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(entries) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No nearby players found.", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for _, entry := range entries {
		marker := ""
		if entry.UserID == userID {
			marker = " (you)"
		}
		playerText := fmt.Sprintf("%d. %s%s\n> *Rating*: %d",
			entry.Rank,
			entry.DisplayName,
			marker,
			entry.Rating,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatRank creates a Slack message for a member's own rank.
func (s *Notifier) formatRank(entry *leaderboard.Entry) slack.Message {
	text := fmt.Sprintf("You are ranked *#%d* with a rating of *%d* over %d matches.",
		entry.Rank,
		entry.Rating,
		entry.MatchesPlayed,
	)
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil),
	)
}

// formatPlayerStats creates a Slack message to display a single player's stats.
func (s *Notifier) formatPlayerStats(stats *leaderboard.PlayerStats) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := fmt.Sprintf("Stats for %s", stats.DisplayName)
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", headerText, true, false)))

	playerText := fmt.Sprintf("> *Rank*: #%d\n> *Rating*: %d\n> *Wins*: %d\n> *Losses*: %d\n> *Win %%*: %.2f%%",
		stats.Rank,
		stats.Rating,
		stats.Wins,
		stats.Losses,
		stats.WinPercentage,
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerNotFound creates a Slack message for when a player is not found.
func (s *Notifier) formatPlayerNotFound(query string) slack.Message {
	text := fmt.Sprintf("Sorry, I couldn't find a player matching *%s*. Try a different name.", query)
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil),
	)
}

package slack

import (
	"context"
	"errors"
	"testing"

	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/metrics"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func TestSendMessage_DryRun(t *testing.T) {
	metrics := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	notifier := NewNotifierWithAPI(nil, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message, true)
	require.NoError(t, err)
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, _, err := notifier.sendMessage(message, false)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 1, metrics.SlackNotifFailed())
}

func TestSendPendingMatchNotification_CallsSender(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	match := &league.Match{ID: 1, PlayerID: 1, OpponentID: 2, Result: true}
	alice := &league.User{ID: 1, DisplayName: "Alice", Rating: 1500}
	bob := &league.User{ID: 2, DisplayName: "Bob", Rating: 1500}

	err := notifier.SendPendingMatchNotification(match, alice, bob, "corr-1", false)
	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called via SendPendingMatchNotification")
}

func TestFormatPendingMatch(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	match := &league.Match{ID: 1, PlayerID: 1, OpponentID: 2, Result: true}
	alice := &league.User{ID: 1, DisplayName: "Alice", Rating: 1510}
	bob := &league.User{ID: 2, DisplayName: "Bob", Rating: 1490}

	msg := client.formatPendingMatch(match, alice, bob, "corr-1")
	require.Len(t, msg.Blocks.BlockSet, 3, "Expected header, details and actions")

	header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "Match result submitted", header.Text.Text)

	section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, "Alice (1510) reports they won against Bob (1490)")

	actions, ok := msg.Blocks.BlockSet[2].(*slackapi.ActionBlock)
	require.True(t, ok)
	require.Len(t, actions.Elements.ElementSet, 3)

	confirm, ok := actions.Elements.ElementSet[0].(*slackapi.ButtonBlockElement)
	require.True(t, ok)
	assert.Equal(t, ActionConfirmResult, confirm.ActionID)
	assert.Equal(t, "corr-1", confirm.Value)
}

func TestFormatPendingMatch_ReportedLoss(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	match := &league.Match{ID: 1, PlayerID: 1, OpponentID: 2, Result: false}
	alice := &league.User{ID: 1, DisplayName: "Alice", Rating: 1510}
	bob := &league.User{ID: 2, DisplayName: "Bob", Rating: 1490}

	msg := client.formatPendingMatch(match, alice, bob, "corr-1")
	section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, "lost to Bob")
}

func TestFormatResultNotification(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	event := &pubsub.MatchConfirmedEvent{
		MatchID:        1,
		PlayerName:     "Alice",
		PlayerRating:   1530,
		PlayerWon:      true,
		OpponentName:   "Bob",
		OpponentRating: 1480,
	}

	msg := client.formatResultNotification(event)
	require.Len(t, msg.Blocks.BlockSet, 3)

	section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "Alice beat Bob", section.Text.Text)
}

func TestFormatResultNotification_OpponentWon(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	event := &pubsub.MatchConfirmedEvent{
		PlayerName:   "Alice",
		PlayerWon:    false,
		OpponentName: "Bob",
	}

	msg := client.formatResultNotification(event)
	section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "Bob beat Alice", section.Text.Text)
}

func TestFormatLeaderboard(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	entries := []leaderboard.Entry{
		{Rank: 1, UserID: 1, DisplayName: "Alice", Rating: 1550, MatchesPlayed: 10},
		{Rank: 2, UserID: 2, DisplayName: "Bob", Rating: 1500, MatchesPlayed: 8},
	}

	msg := client.formatLeaderboard(entries)
	require.Len(t, msg.Blocks.BlockSet, 3, "Expected header plus one block per entry")

	first, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, first.Text.Text, "Alice")
	assert.Contains(t, first.Text.Text, "1550")
}

func TestFormatLeaderboard_Empty(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	msg := client.formatLeaderboard(nil)
	require.Len(t, msg.Blocks.BlockSet, 2)

	section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, "No players yet")
}

func TestFormatNearby_MarksRequester(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	entries := []leaderboard.Entry{
		{Rank: 4, UserID: 7, DisplayName: "Carol", Rating: 1520},
		{Rank: 5, UserID: 9, DisplayName: "Dave", Rating: 1510},
	}

	msg := client.formatNearby(entries, 9)
	require.Len(t, msg.Blocks.BlockSet, 3)

	self, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, self.Text.Text, "Dave (you)")
}

func TestFormatPlayerStats(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	stats := &leaderboard.PlayerStats{
		DisplayName:   "Alice",
		Rating:        1550,
		Rank:          1,
		Wins:          7,
		Losses:        3,
		MatchesPlayed: 10,
		WinPercentage: 70.0,
	}

	msg := client.formatPlayerStats(stats)
	require.Len(t, msg.Blocks.BlockSet, 2)

	section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, "*Wins*: 7")
	assert.Contains(t, section.Text.Text, "70.00%")
}

package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// Topics for league events.
const (
	TopicMatchConfirmed = "match-confirmed"
)

// MatchConfirmedEvent is published when an opponent confirms a result. The
// push subscription turns it into the channel-wide result notification.
type MatchConfirmedEvent struct {
	MatchID           int64  `msgpack:"match_id"`
	PlayerExternalID  string `msgpack:"player_external_id"`
	PlayerName        string `msgpack:"player_name"`
	PlayerRating      int    `msgpack:"player_rating"`
	PlayerWon         bool   `msgpack:"player_won"`
	OpponentExternal  string `msgpack:"opponent_external_id"`
	OpponentName      string `msgpack:"opponent_name"`
	OpponentRating    int    `msgpack:"opponent_rating"`
}

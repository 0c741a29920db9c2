package lifecycle

import (
	"github.com/michaelkrauty/PDL-sub000/internal/config"
	"github.com/michaelkrauty/PDL-sub000/internal/metrics"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
	"github.com/michaelkrauty/PDL-sub000/internal/rating"
)

// Manager drives every match from submitted to confirmed, disputed or
// cancelled. It is the only writer of match, pending-match and user-rating
// state; the chat surface calls it and renders whatever comes back.
type Manager struct {
	store   Store
	engine  *rating.Engine
	metrics metrics.Metrics
	pubsub  pubsub.PubSubClient
	cfg     config.LeagueConfig
}

package http

import (
	"net/http"

	"github.com/michaelkrauty/PDL-sub000/internal/config"
	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/league"
	"github.com/michaelkrauty/PDL-sub000/internal/lifecycle"
	"github.com/michaelkrauty/PDL-sub000/internal/maintenance"
	"github.com/michaelkrauty/PDL-sub000/internal/metrics"
	"github.com/michaelkrauty/PDL-sub000/internal/notifier"
	"github.com/michaelkrauty/PDL-sub000/internal/pubsub"
)

type Server struct {
	Store          league.LeagueStore
	Lifecycle      *lifecycle.Manager
	Leaderboard    leaderboard.LeaderboardService
	Maintenance    *maintenance.Runner
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Notifier       notifier.Notifier
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
}

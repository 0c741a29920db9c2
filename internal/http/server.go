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

func NewServer(store league.LeagueStore, lifecycle *lifecycle.Manager, leaderboard leaderboard.LeaderboardService, maintenance *maintenance.Runner, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, notifier notifier.Notifier, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		Store:          store,
		Lifecycle:      lifecycle,
		Leaderboard:    leaderboard,
		Maintenance:    maintenance,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Notifier:       notifier,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future, like an authentication middleware.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/members", Chain(s.ListMembersHandler(), paramsMiddleware))
	s.Router.Handle("/matches", Chain(s.ListMatchesHandler(), paramsMiddleware))
	s.Router.Handle("/maintenance/weekly", Chain(s.WeeklyMaintenanceHandler(), paramsMiddleware))
	s.Router.Handle("/admin/nullify", Chain(s.NullifyMatchHandler(), paramsMiddleware))
	s.Router.Handle("/admin/cancel", Chain(s.CancelMatchHandler(), paramsMiddleware))
	s.Router.Handle("/pubsub/match-confirmed", Chain(s.MatchConfirmedPushHandler(), paramsMiddleware))
	s.Router.Handle("/slack/interactive", Chain(s.InteractiveCallbackHandler(), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/register", Chain(s.RegisterCommandHandler(), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/compete", Chain(s.CompeteCommandHandler(true), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/retire", Chain(s.CompeteCommandHandler(false), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/submit", Chain(s.SubmitCommandHandler(), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/leaderboard", Chain(s.LeaderboardCommandHandler(), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/rank", Chain(s.RankCommandHandler(), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/nearby", Chain(s.NearbyCommandHandler(), paramsMiddleware, s.slackAuth, s.commandMetrics))
	s.Router.Handle("/slack/command/stats", Chain(s.StatsCommandHandler(), paramsMiddleware, s.slackAuth, s.commandMetrics))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

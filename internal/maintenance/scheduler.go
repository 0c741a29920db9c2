package maintenance

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/michaelkrauty/PDL-sub000/internal/config"
	"github.com/michaelkrauty/PDL-sub000/internal/leaderboard"
	"github.com/michaelkrauty/PDL-sub000/internal/metrics"
	"github.com/michaelkrauty/PDL-sub000/internal/notifier"
	"github.com/michaelkrauty/PDL-sub000/internal/rating"
)

const boundaryKey = "maintenance_boundary"

// Runner executes the weekly maintenance steps: challenge-count reset,
// inactivity decay and auto-quit, in that order. Each step commits
// independently so a failure in one does not block the others.
type Runner struct {
	store    Store
	metrics  metrics.Metrics
	cfg      config.LeagueConfig
	now      func() time.Time
	notifier notifier.Notifier
	boards   leaderboard.LeaderboardService
}

// New creates a new Runner.
func New(store Store, metrics metrics.Metrics, cfg config.LeagueConfig) *Runner {
	return &Runner{
		store:   store,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithAnnouncer makes the runner post the updated standings to the channel
// after each weekly run.
func (r *Runner) WithAnnouncer(n notifier.Notifier, boards leaderboard.LeaderboardService) *Runner {
	r.notifier = n
	r.boards = boards
	return r
}

// Start schedules the weekly run on the configured boundary and returns the
// scheduler so the caller can shut it down.
func (r *Runner) Start() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.WeeklyJob(
			1,
			gocron.NewWeekdays(r.cfg.ResetWeekday),
			gocron.NewAtTimes(gocron.NewAtTime(uint(r.cfg.ResetHour), 0, 0)),
		),
		gocron.NewTask(func() {
			if err := r.RunWeekly(false); err != nil {
				log.Error("Weekly maintenance failed", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule weekly maintenance: %w", err)
	}

	sched.Start()
	log.Info("Weekly maintenance scheduled", "weekday", r.cfg.ResetWeekday, "hour", r.cfg.ResetHour)
	return sched, nil
}

// RunWeekly runs the three maintenance steps for the current boundary.
// A boundary marker in the meta table keeps the run idempotent: a second
// invocation in the same week is a no-op unless forced.
func (r *Runner) RunWeekly(force bool) error {
	boundary := r.boundary()
	marker := boundary.Format("2006-01-02")

	last, ok, err := r.store.GetMeta(boundaryKey)
	if err != nil {
		return fmt.Errorf("failed to read maintenance boundary: %w", err)
	}
	if ok && last == marker && !force {
		log.Info("Maintenance already ran for this boundary, skipping", "boundary", marker)
		return nil
	}

	log.Info("Starting weekly maintenance", "boundary", marker)
	r.metrics.IncMaintenanceRuns()

	if reset, err := r.store.ResetChallengeCounts(); err != nil {
		log.Error("Challenge-count reset failed", "error", err)
	} else {
		log.Info("Challenge counts reset", "users", reset)
	}

	if r.cfg.DecayEnabled {
		activeSince := boundary.AddDate(0, 0, -7).Unix()
		if decayed, err := r.store.ApplyDecay(r.cfg.DecayAmount, activeSince); err != nil {
			log.Error("Inactivity decay failed", "error", err)
		} else {
			log.Info("Inactivity decay applied", "users", decayed, "amount", r.cfg.DecayAmount)
		}
	}

	if r.cfg.AutoQuitEnabled {
		average := 0
		if r.cfg.AutoQuitResetRating {
			avg, err := r.store.AverageRating()
			if err != nil {
				log.Error("Failed to compute community average", "error", err)
			} else {
				average = rating.Round(avg)
			}
		}
		if quit, err := r.store.AutoQuit(r.cfg.AutoQuitWeeks, r.cfg.AutoQuitResetRating && average > 0, average); err != nil {
			log.Error("Auto-quit failed", "error", err)
		} else if quit > 0 {
			log.Info("Inactive players auto-quit", "users", quit, "threshold_weeks", r.cfg.AutoQuitWeeks)
		}
	}

	if err := r.store.SetMeta(boundaryKey, marker); err != nil {
		return fmt.Errorf("failed to record maintenance boundary: %w", err)
	}

	if r.notifier != nil && r.boards != nil {
		entries, err := r.boards.TopPlayers(r.cfg.TopPlayersCount, true, r.cfg.ProvisionalMatches)
		if err != nil {
			log.Error("Failed to load standings for announcement", "error", err)
		} else if err := r.notifier.SendLeaderboard(entries, false); err != nil {
			log.Error("Failed to post standings", "error", err)
		}
	}

	log.Info("Weekly maintenance finished", "boundary", marker)
	return nil
}

// boundary returns the most recent configured weekday/hour at or before now.
func (r *Runner) boundary() time.Time {
	now := r.now()
	b := time.Date(now.Year(), now.Month(), now.Day(), r.cfg.ResetHour, 0, 0, 0, now.Location())
	for b.Weekday() != r.cfg.ResetWeekday || b.After(now) {
		b = b.AddDate(0, 0, -1)
	}
	return b
}

// Package scheduler runs periodic maintenance jobs, such as recomputing
// the cached leaderboard, on a cron schedule in UTC.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	cron "github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Second

// LeaderboardRefresher recomputes the leaderboard and refreshes its cache.
type LeaderboardRefresher interface {
	Refresh(ctx context.Context) ([]models.LeaderboardEntry, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger
	ctx    context.Context
}

func New(l logging.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: l.With("module", "scheduler"),
		ctx:    context.Background(),
	}
}

// AddLeaderboardRefresh schedules r on spec. Overlapping runs are skipped.
func (s *Scheduler) AddLeaderboardRefresh(spec string, r LeaderboardRefresher) error {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		entries, err := r.Refresh(ctx)
		if err != nil {
			s.logger.Error(ctx, "leaderboard refresh failed", "error", err)
			return
		}
		s.logger.Debug(ctx, "leaderboard refreshed", "entries", len(entries))
	}))

	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("schedule leaderboard refresh %q: %w", spec, err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled and running
// jobs have finished.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.logger.Info(ctx, "Starting scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()

	<-ctx.Done()

	s.logger.Info(ctx, "Stopping scheduler...")
	<-s.cron.Stop().Done()
}

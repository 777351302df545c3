package scheduler

import (
	"context"
	"fmt"

	"activation_backend/internal/activation/transport"
	"activation_backend/platform/config"
	"activation_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

const defaultFollowupSweepSpec = "*/15 * * * *"

// FollowupSweeper publishes FollowupDue for every pipeline whose follow-up has passed.
type FollowupSweeper interface {
	SweepFollowups(ctx context.Context) (*transport.FollowupSweepResponse, error)
}

// FollowupSweep runs the follow-up sweep on a cron schedule.
type FollowupSweep struct {
	cron    *cron.Cron
	sweeper FollowupSweeper
	log     *logger.Logger
}

func NewFollowupSweep(cfg config.CronConfig, sweeper FollowupSweeper, log *logger.Logger) (*FollowupSweep, error) {
	spec := cfg.GetFollowupSweepSpec()
	if spec == "" {
		spec = defaultFollowupSweepSpec
	}

	s := &FollowupSweep{
		cron:    cron.New(),
		sweeper: sweeper,
		log:     log,
	}

	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid followup sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce executes a single sweep and logs the outcome.
func (s *FollowupSweep) RunOnce(ctx context.Context) int {
	if s == nil || s.sweeper == nil {
		return 0
	}

	res, err := s.sweeper.SweepFollowups(ctx)
	if err != nil {
		s.log.Error("followup sweep failed", "error", err)
		return 0
	}
	if res.Published > 0 {
		s.log.Info("followup sweep published reminders", "count", res.Published)
	}
	return res.Published
}

// Run starts the cron scheduler and blocks until ctx is done. Running jobs
// finish before Run returns.
func (s *FollowupSweep) Run(ctx context.Context) {
	if s == nil {
		return
	}

	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

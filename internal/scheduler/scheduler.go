package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/santyhornia-creator/hibot-etl-script/internal/services"
	"github.com/santyhornia-creator/hibot-etl-script/pkg/logger"

	"github.com/mileusna/crontab"
	"go.uber.org/zap"
)

// jobTimeout caps a single scheduled run. A whole-month backfill at one
// request per day fits comfortably inside it.
const jobTimeout = 30 * time.Minute

// SyncRunner is the slice of SyncService the scheduler needs.
type SyncRunner interface {
	RunOnce(ctx context.Context) (services.RunSummary, error)
}

// Scheduler fires the sync pipeline on a fixed minute interval. The
// business-hours gate lives inside the run itself, so off-hours ticks are
// cheap no-ops.
type Scheduler struct {
	ctab            *crontab.Crontab
	runner          SyncRunner
	intervalMinutes int
	running         sync.Mutex
}

// New creates a scheduler that triggers runner every intervalMinutes.
func New(runner SyncRunner, intervalMinutes int) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("sync runner is required")
	}
	if intervalMinutes <= 0 || intervalMinutes > 59 {
		return nil, fmt.Errorf("interval must be between 1 and 59 minutes, got %d", intervalMinutes)
	}

	return &Scheduler{
		ctab:            crontab.New(),
		runner:          runner,
		intervalMinutes: intervalMinutes,
	}, nil
}

// Run syncs once immediately, then on every interval tick until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	// First sync on startup, without waiting for the next tick.
	s.runJob()

	expr := fmt.Sprintf("*/%d * * * *", s.intervalMinutes)
	if err := s.ctab.AddJob(expr, s.runJob); err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	logger.Info("Sync schedule started", zap.String("cron", expr))

	<-ctx.Done()
	s.ctab.Shutdown()
	logger.Info("Sync schedule stopped")
	return nil
}

// runJob executes one run unless the previous one is still going; ticks
// never overlap.
func (s *Scheduler) runJob() {
	if !s.running.TryLock() {
		logger.Warn("Previous sync run still in progress, skipping tick")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.runner.RunOnce(ctx); err != nil {
		logger.Error("Scheduled sync run failed", zap.Error(err))
	}
}

// Package scheduler runs the optional periodic janitor job.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a single unit of scheduled work. It receives a context that is
// cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler. The returned scheduler is not started.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
	}
}

// Every registers a job under the given cron spec (standard 5-field, or a
// descriptor such as "@every 30m"). name is used only for logging.
func (s *Scheduler) Every(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Debug("scheduled job ran", "job", name)
	})
	if err != nil {
		return fmt.Errorf("scheduling job %q: %w", name, err)
	}
	return nil
}

// Start begins running scheduled jobs. ctx is threaded into each job
// invocation; it is not itself watched for cancellation here, callers
// should call Stop on shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the cron runner and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

// Package janitor runs the optional worktree-pruning background job.
package janitor

import (
	"context"
	"log/slog"

	"github.com/taskmcp/taskmcp/internal/gitdriver"
)

// PruneJob periodically prunes stale git worktree registrations: entries
// left behind when a worktree directory was removed outside of
// cleanup_task, e.g. by a crashed worker or manual cleanup.
//
// It never touches task status; reconciling a task's recorded state after
// a worktree leak remains cleanup_task's job.
type PruneJob struct {
	git    *gitdriver.Driver
	logger *slog.Logger
}

// NewPruneJob creates a PruneJob.
func NewPruneJob(git *gitdriver.Driver, logger *slog.Logger) *PruneJob {
	return &PruneJob{git: git, logger: logger}
}

// Run executes one prune pass. Suitable as a scheduler.Job.
func (j *PruneJob) Run(ctx context.Context) error {
	j.logger.Debug("running worktree prune")
	if err := j.git.Prune(ctx); err != nil {
		return err
	}
	j.logger.Debug("worktree prune complete")
	return nil
}

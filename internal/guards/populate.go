package guards

import (
	"context"
	"fmt"

	"github.com/taskmcp/taskmcp/internal/dag"
	"github.com/taskmcp/taskmcp/internal/model"
)

// claimDataSource is the narrow slice of store operations PopulateClaimState
// needs, satisfied by both *store.Store and *store.Tx without importing
// store here (store has no reason to depend on guards, but keeping the
// dependency one-directional avoids ever having to care).
type claimDataSource interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	GetDependencies(ctx context.Context, taskID string) ([]*model.Task, error)
}

// ClaimConflict is the subset of store.OwnershipConflict PopulateClaimState reads.
type ClaimConflict struct {
	OtherTaskID string
}

// PopulateClaimState fills a Context with everything ClaimTaskGuards needs,
// read from src in a single pass so no guard queries storage directly. The
// caller runs this inside the same transaction it will use to perform the
// claim, so the guard decision and the write see consistent state.
func PopulateClaimState(ctx context.Context, src claimDataSource, conflicts []ClaimConflict, taskID string, force bool) (*Context, error) {
	gctx := &Context{TaskID: taskID, Force: force}

	task, err := src.GetTask(ctx, taskID)
	if err != nil {
		return gctx, nil // TaskExists stays false; TaskMustExist guard reports it
	}
	gctx.TaskExists = true
	gctx.TaskStatus = string(task.Status)
	gctx.AlreadyOwned = task.AssignedTo != ""

	deps, err := src.GetDependencies(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("loading dependencies: %w", err)
	}
	completed := map[string]bool{}
	for _, d := range deps {
		if d.Status == model.StatusCompleted {
			completed[d.ID] = true
		}
	}
	if !dag.CanStart(deps, completed) {
		for _, d := range deps {
			if d.Status != model.StatusCompleted {
				gctx.UnmetDeps = append(gctx.UnmetDeps, d.ID)
			}
		}
	}

	seen := map[string]bool{}
	for _, c := range conflicts {
		if !seen[c.OtherTaskID] {
			gctx.FileConflicts = append(gctx.FileConflicts, c.OtherTaskID)
			seen[c.OtherTaskID] = true
		}
	}

	return gctx, nil
}

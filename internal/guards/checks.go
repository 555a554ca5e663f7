package guards

import (
	"context"
	"fmt"
	"strings"
)

// --- claim_task Guards ---
// These run in order before a task is handed to a worker. Task existence and
// status are hard blocks; a file pattern identical to one declared by another
// in-progress task is a soft block, overridable with force=true when the caller knows
// the overlap is benign (e.g. both changes touch a shared config file).

// TaskMustExist ensures the requested task id resolves to a real task.
var TaskMustExist = NewGuardFunc("task_must_exist", func(_ context.Context, gctx *Context) Result {
	if gctx.TaskExists {
		return Pass("task_must_exist")
	}
	return Fail("task_must_exist", HardBlock,
		fmt.Sprintf("no task with id %q exists", gctx.TaskID),
		"Check the task id with list_tasks.",
	)
})

// TaskMustBeClaimable ensures the task is in a status that can transition to assigned.
var TaskMustBeClaimable = NewGuardFunc("task_must_be_claimable", func(_ context.Context, gctx *Context) Result {
	if !gctx.TaskExists {
		return Pass("task_must_be_claimable") // TaskMustExist already reports this
	}
	if gctx.TaskStatus != "pending" {
		return Fail("task_must_be_claimable", HardBlock,
			fmt.Sprintf("task is %s, not pending", gctx.TaskStatus),
			"Only pending tasks can be claimed.",
		)
	}
	if gctx.AlreadyOwned {
		return Fail("task_must_be_claimable", HardBlock,
			"task already has an assignee",
			"Wait for the current assignee to release the task, or use cleanup_task to reset it.",
		)
	}
	return Pass("task_must_be_claimable")
})

// DependenciesCompleted ensures every prerequisite task has reached completed.
var DependenciesCompleted = NewGuardFunc("dependencies_completed", func(_ context.Context, gctx *Context) Result {
	if len(gctx.UnmetDeps) == 0 {
		return Pass("dependencies_completed")
	}
	return Fail("dependencies_completed", HardBlock,
		"unmet dependencies: "+strings.Join(gctx.UnmetDeps, ", "),
		"Wait for the listed tasks to reach completed before claiming this one.",
	)
})

// NoActiveFileConflicts blocks the claim, unless force is set, when another
// in-progress task declares an identical file pattern. Soft,
// since the conflict may be benign.
var NoActiveFileConflicts = NewGuardFunc("no_active_file_conflicts", func(_ context.Context, gctx *Context) Result {
	if len(gctx.FileConflicts) == 0 {
		return Pass("no_active_file_conflicts")
	}
	return Fail("no_active_file_conflicts", SoftBlock,
		"overlapping file ownership with in-progress task(s): "+strings.Join(gctx.FileConflicts, ", "),
		"Coordinate with the other task's owner, or use force=true to claim anyway.",
	)
})

// ClaimTaskGuards returns the ordered precondition chain for claim_task.
func ClaimTaskGuards() []Guard {
	return []Guard{
		TaskMustExist,
		TaskMustBeClaimable,
		DependenciesCompleted,
		NoActiveFileConflicts,
	}
}

// Package taskservice implements the coordination engine's nine operations,
// the only surface the transport layer invokes. Each state-changing
// operation runs inside a single Store write transaction so concurrent
// callers on the same task linearize.
package taskservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/taskmcp/taskmcp/internal/dag"
	"github.com/taskmcp/taskmcp/internal/gitdriver"
	"github.com/taskmcp/taskmcp/internal/guards"
	"github.com/taskmcp/taskmcp/internal/model"
	"github.com/taskmcp/taskmcp/internal/ownership"
	"github.com/taskmcp/taskmcp/internal/store"
)

// Service orchestrates the Store, DAG engine, Ownership engine, and Git
// driver to implement the task state machine.
type Service struct {
	store  *store.Store
	git    *gitdriver.Driver
	trunk  string
	logger *slog.Logger
}

// New returns a Service. trunk is the branch name merge_task merges onto
// ("main" or "master", whichever the repository uses).
func New(st *store.Store, git *gitdriver.Driver, trunk string, logger *slog.Logger) *Service {
	return &Service{store: st, git: git, trunk: trunk, logger: logger}
}

// CreateTasks atomically constructs a new group and its tasks.
func (s *Service) CreateTasks(ctx context.Context, in CreateTasksInput) (*CreateTasksResult, error) {
	var result *CreateTasksResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		groupID := uuid.NewString()
		group, err := tx.CreateGroup(ctx, groupID, in.GroupTitle, in.GroupDescription)
		if err != nil {
			return storeFailure("creating group", err)
		}

		var warnings []string
		tasks := make([]*model.Task, len(in.Tasks))
		seqToID := make(map[int]string, len(in.Tasks))

		for i, ti := range in.Tasks {
			seq := i + 1
			task, err := tx.CreateTask(ctx, &model.Task{
				ID:          uuid.NewString(),
				GroupID:     groupID,
				Sequence:    seq,
				Title:       ti.Title,
				Description: ti.Description,
				Status:      model.StatusPending,
				Priority:    ti.Priority,
			})
			if err != nil {
				return storeFailure(fmt.Sprintf("creating task %q", ti.Title), err)
			}
			tasks[i] = task
			seqToID[seq] = task.ID
		}

		// Materialize dependencies, dropping references to unknown sequences.
		for i, ti := range in.Tasks {
			for _, depSeq := range ti.DependsOn {
				depID, ok := seqToID[depSeq]
				if !ok {
					warnings = append(warnings, fmt.Sprintf(
						"task %q references unknown sequence %d; dependency dropped", ti.Title, depSeq))
					continue
				}
				if err := tx.AddDependency(ctx, tasks[i].ID, depID); err != nil {
					return storeFailure("adding dependency", err)
				}
			}
		}

		// Materialize file patterns.
		for i, ti := range in.Tasks {
			for _, fp := range ti.FilePatterns {
				if err := tx.AddFileOwnership(ctx, model.TaskFileOwnership{
					TaskID: tasks[i].ID, FilePattern: fp.Pattern, OwnershipType: fp.OwnershipType,
				}); err != nil {
					return storeFailure("adding file ownership", err)
				}
			}
		}

		// Pairwise pattern-overlap check across the tasks just created.
		allOwnership := make([]model.TaskFileOwnership, 0)
		for i, ti := range in.Tasks {
			for _, fp := range ti.FilePatterns {
				allOwnership = append(allOwnership, model.TaskFileOwnership{
					TaskID: tasks[i].ID, FilePattern: fp.Pattern, OwnershipType: fp.OwnershipType,
				})
			}
		}
		titleByID := make(map[string]string, len(tasks))
		for _, t := range tasks {
			titleByID[t.ID] = t.Title
		}
		reported := map[string]bool{}
		for i := 0; i < len(allOwnership); i++ {
			for j := i + 1; j < len(allOwnership); j++ {
				a, b := allOwnership[i], allOwnership[j]
				if a.TaskID == b.TaskID {
					continue
				}
				if !ownership.PatternsOverlap(a.FilePattern, b.FilePattern) {
					continue
				}
				if a.OwnershipType == model.OwnershipShared && b.OwnershipType == model.OwnershipShared {
					continue
				}
				key := a.TaskID + "|" + b.TaskID + "|" + a.FilePattern + "|" + b.FilePattern
				if reported[key] {
					continue
				}
				reported[key] = true
				warnings = append(warnings, fmt.Sprintf(
					"tasks %q and %q both declare overlapping pattern %q",
					titleByID[a.TaskID], titleByID[b.TaskID], a.FilePattern))
			}
		}

		// Cycle validation: warn, don't reject (design note §9).
		edges, err := tx.GetAllDependencyEdges(ctx, groupID)
		if err != nil {
			return storeFailure("loading dependency edges", err)
		}
		if cycleErr := dag.ValidateNoCycles(edges); cycleErr != nil {
			warnings = append(warnings, cycleErr.Error())
		}

		// Tasks with at least one dependency start blocked.
		summaries := make([]TaskSummary, len(tasks))
		for i, t := range tasks {
			hasDeps := len(edges[t.ID]) > 0
			canStart := !hasDeps
			if hasDeps {
				updated, err := tx.UpdateTask(ctx, t.ID, model.TaskUpdate{Status: statusPtr(model.StatusBlocked)})
				if err != nil {
					return storeFailure("blocking task", err)
				}
				tasks[i] = updated
			}
			summaries[i] = TaskSummary{Task: tasks[i], CanStart: canStart}
		}

		result = &CreateTasksResult{Group: group, Tasks: summaries, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListTasks reads matching tasks with computed can_start and status counts.
func (s *Service) ListTasks(ctx context.Context, in ListTasksInput) (*ListTasksResult, error) {
	tasks, err := s.store.ListTasks(ctx, store.ListFilter{GroupID: in.GroupID, Status: in.Status})
	if err != nil {
		return nil, storeFailure("listing tasks", err)
	}

	result := &ListTasksResult{}
	for _, t := range tasks {
		result.Counts.Total++
		switch t.Status {
		case model.StatusPending:
			result.Counts.Pending++
		case model.StatusBlocked:
			result.Counts.Blocked++
		case model.StatusAssigned:
			result.Counts.Assigned++
		case model.StatusInProgress:
			result.Counts.InProgress++
		case model.StatusInReview:
			result.Counts.InReview++
		case model.StatusCompleted:
			result.Counts.Completed++
		case model.StatusFailed:
			result.Counts.Failed++
		}

		entry := ListTasksSummary{Task: t}
		if t.Status == model.StatusPending {
			deps, err := s.store.GetDependencies(ctx, t.ID)
			if err != nil {
				return nil, storeFailure("loading dependencies", err)
			}
			completed := map[string]bool{}
			for _, d := range deps {
				if d.Status == model.StatusCompleted {
					completed[d.ID] = true
				}
			}
			canStart := dag.CanStart(deps, completed)
			entry.CanStart = &canStart
		}
		result.Tasks = append(result.Tasks, entry)
	}
	return result, nil
}

// GetTask returns a task plus its dependency projection, ownership, and progress log.
func (s *Service) GetTask(ctx context.Context, id string) (*GetTaskResult, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, hardPrecondition("no task with id %q exists", id)
	}

	// The three detail queries are independent reads; fan them out.
	var deps []*model.Task
	var ownerships []model.TaskFileOwnership
	var progress []*model.ProgressLog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.store.GetDependencies(gctx, id)
		if err != nil {
			return storeFailure("loading dependencies", err)
		}
		deps = d
		return nil
	})
	g.Go(func() error {
		o, err := s.store.GetFileOwnership(gctx, id)
		if err != nil {
			return storeFailure("loading file ownership", err)
		}
		ownerships = o
		return nil
	})
	g.Go(func() error {
		p, err := s.store.ListProgress(gctx, id)
		if err != nil {
			return storeFailure("loading progress log", err)
		}
		progress = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	projections := make([]DependencyProjection, len(deps))
	for i, d := range deps {
		projections[i] = DependencyProjection{TaskID: d.ID, Sequence: d.Sequence, Title: d.Title, Status: d.Status}
	}

	return &GetTaskResult{Task: task, Dependencies: projections, Ownership: ownerships, Progress: progress}, nil
}

// ClaimTask runs the ordered precondition chain and, on success, transitions
// pending -> assigned. Soft precondition failures are reported in the
// result, never as a Go error.
func (s *Service) ClaimTask(ctx context.Context, taskID, agentID string, force bool) (*ClaimTaskResult, error) {
	var result *ClaimTaskResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		storeConflicts, err := tx.FindOwnershipConflicts(ctx, taskID)
		if err != nil {
			return storeFailure("loading ownership conflicts", err)
		}
		conflicts := make([]guards.ClaimConflict, len(storeConflicts))
		for i, c := range storeConflicts {
			conflicts[i] = guards.ClaimConflict{OtherTaskID: c.OtherTaskID}
		}

		gctx, err := guards.PopulateClaimState(ctx, tx, conflicts, taskID, force)
		if err != nil {
			return storeFailure("populating claim guard state", err)
		}

		outcome := guards.NewRunner().Run(ctx, gctx, guards.ClaimTaskGuards())
		if outcome.Blocked {
			result = &ClaimTaskResult{Success: false, Error: outcome.FormatBlockMessage()}
			return nil
		}

		token := agentID
		if token == "" {
			t, err := GenerateAgentToken()
			if err != nil {
				return storeFailure("generating agent token", err)
			}
			token = t
		}

		updated, err := tx.UpdateTask(ctx, taskID, model.TaskUpdate{
			Status:     statusPtr(model.StatusAssigned),
			AssignedTo: strPtr(token),
		})
		if err != nil {
			return storeFailure("assigning task", err)
		}
		if _, err := tx.AppendProgress(ctx, taskID, model.EventClaimed, fmt.Sprintf("claimed by %s", token), nil); err != nil {
			return storeFailure("appending progress", err)
		}

		result = &ClaimTaskResult{Success: true, Task: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StartTask transitions assigned -> in_progress, creating the task's
// worktree and branch.
func (s *Service) StartTask(ctx context.Context, taskID string) (*StartTaskResult, error) {
	var result *StartTaskResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return hardPrecondition("no task with id %q exists", taskID)
		}
		if task.Status != model.StatusAssigned {
			return hardPrecondition("task %s is %s, not assigned", taskID, task.Status)
		}

		branch := BranchName(task.Sequence, task.Title)
		worktreeDir := WorktreeDirName(task.Sequence, task.Title)
		worktreePath, err := s.git.CreateWorktree(ctx, branch, s.trunk, worktreeDir)
		if err != nil {
			return externalProcess("creating worktree", err)
		}

		updated, err := tx.UpdateTask(ctx, taskID, model.TaskUpdate{
			Status:       statusPtr(model.StatusInProgress),
			BranchName:   strPtr(branch),
			WorktreePath: strPtr(worktreePath),
			StartedAt:    strPtr(nowISO()),
		})
		if err != nil {
			return storeFailure("starting task", err)
		}
		if _, err := tx.AppendProgress(ctx, taskID, model.EventStarted, "worktree created", map[string]string{
			"branch_name":   branch,
			"worktree_path": worktreePath,
		}); err != nil {
			return storeFailure("appending progress", err)
		}

		ownerships, err := tx.GetFileOwnership(ctx, taskID)
		if err != nil {
			return storeFailure("loading file ownership", err)
		}

		deps, err := tx.GetDependencies(ctx, taskID)
		if err != nil {
			return storeFailure("loading dependencies", err)
		}
		var prereqs []PrereqRef
		for _, d := range deps {
			if d.Status == model.StatusCompleted {
				prereqs = append(prereqs, PrereqRef{Title: d.Title, BranchName: d.BranchName})
			}
		}

		result = &StartTaskResult{
			Task:             updated,
			Description:      updated.Description,
			FilePatterns:     ownerships,
			CompletedPrereqs: prereqs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateProgress writes progress/note, checks for file conflicts, and
// surfaces a best-effort rebase recommendation. Never transitions status.
func (s *Service) UpdateProgress(ctx context.Context, in UpdateProgressInput) (*UpdateProgressResult, error) {
	var result *UpdateProgressResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(ctx, in.TaskID)
		if err != nil {
			return hardPrecondition("no task with id %q exists", in.TaskID)
		}

		updated, err := tx.UpdateTask(ctx, in.TaskID, model.TaskUpdate{
			Progress:     intPtr(in.Progress),
			ProgressNote: strPtr(in.Note),
		})
		if err != nil {
			return storeFailure("updating progress", err)
		}

		var conflictWarnings []string
		if len(in.FilesChanged) > 0 {
			inProgress, err := tx.ListTasks(ctx, store.ListFilter{GroupID: task.GroupID, Status: []model.TaskStatus{model.StatusInProgress}})
			if err != nil {
				return storeFailure("listing in-progress tasks", err)
			}
			var others []ownership.OtherTaskPatterns
			for _, ot := range inProgress {
				if ot.ID == task.ID {
					continue
				}
				patterns, err := tx.GetFileOwnership(ctx, ot.ID)
				if err != nil {
					return storeFailure("loading file ownership", err)
				}
				others = append(others, ownership.OtherTaskPatterns{TaskID: ot.ID, Patterns: patterns})
			}
			titleByID := map[string]string{}
			for _, ot := range inProgress {
				titleByID[ot.ID] = ot.Title
			}
			for _, c := range ownership.CheckFileConflicts(in.FilesChanged, others) {
				conflictWarnings = append(conflictWarnings, fmt.Sprintf(
					"%s matches exclusive pattern %q held by task %q", c.File, c.Pattern, titleByID[c.OtherTaskID]))
			}
		}

		rebaseRecommended := false
		if updated.BranchName != "" {
			// Best-effort: git errors here are swallowed per spec.
			if ahead, err := s.git.TrunkAheadOf(ctx, updated.BranchName, s.trunk); err == nil {
				rebaseRecommended = ahead
			}
		}

		if _, err := tx.AppendProgress(ctx, in.TaskID, model.EventProgressUpdate, in.Note, map[string]any{
			"progress":      in.Progress,
			"files_changed": in.FilesChanged,
		}); err != nil {
			return storeFailure("appending progress", err)
		}

		result = &UpdateProgressResult{Task: updated, RebaseRecommended: rebaseRecommended, ConflictWarnings: conflictWarnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteTask transitions in_progress -> in_review and pending-izes any
// newly unlocked downstream tasks.
func (s *Service) CompleteTask(ctx context.Context, in CompleteTaskInput) (*CompleteTaskResult, error) {
	var result *CompleteTaskResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(ctx, in.TaskID)
		if err != nil {
			return hardPrecondition("no task with id %q exists", in.TaskID)
		}
		if task.Status != model.StatusInProgress {
			return hardPrecondition("task %s is %s, not in_progress", in.TaskID, task.Status)
		}

		updated, err := tx.UpdateTask(ctx, in.TaskID, model.TaskUpdate{
			Status:       statusPtr(model.StatusInReview),
			CompletedAt:  strPtr(nowISO()),
			Progress:     intPtr(100),
			ProgressNote: strPtr(in.Summary),
		})
		if err != nil {
			return storeFailure("completing task", err)
		}

		unlocked, err := s.unlockDependents(ctx, tx, task.GroupID, []string{task.ID}, []model.TaskStatus{model.StatusCompleted, model.StatusInReview})
		if err != nil {
			return err
		}

		unlockedIDs := make([]string, len(unlocked))
		for i, u := range unlocked {
			unlockedIDs[i] = u.Task.ID
		}
		if _, err := tx.AppendProgress(ctx, in.TaskID, model.EventCompleted, in.Summary, map[string]any{
			"files_changed": in.FilesChanged,
			"unlocked":      unlockedIDs,
		}); err != nil {
			return storeFailure("appending progress", err)
		}

		result = &CompleteTaskResult{Task: updated, Unlocked: unlocked}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MergeTask transitions in_review -> completed on a clean merge, or reports
// conflicts while leaving the task in_review.
func (s *Service) MergeTask(ctx context.Context, taskID string, strategy gitdriver.MergeStrategy) (*MergeTaskResult, error) {
	onTrunk, err := s.git.OnTrunk(ctx, s.git.RepoRoot(), s.trunk)
	if err != nil {
		return nil, externalProcess("checking current branch", err)
	}
	if !onTrunk {
		return nil, hardPrecondition("repository must be on %s to merge", s.trunk)
	}

	var result *MergeTaskResult
	err = s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return hardPrecondition("no task with id %q exists", taskID)
		}
		if task.Status != model.StatusInReview || task.BranchName == "" {
			return hardPrecondition("task %s is %s, not in_review with a branch", taskID, task.Status)
		}

		mergeResult, err := s.git.Merge(ctx, task.BranchName, s.trunk, strategy)
		if err != nil {
			return externalProcess("merging branch", err)
		}

		if !mergeResult.Success {
			details := make([]ConflictDetail, len(mergeResult.Conflicts))
			for i, p := range mergeResult.Conflicts {
				details[i] = ConflictDetail{
					Path:        p,
					Description: "merge left this path unmerged",
					Suggestion:  "resolve manually or abort the merge before retrying",
				}
			}
			if _, err := tx.AppendProgress(ctx, taskID, model.EventConflictDetected, "merge conflict", map[string]any{
				"conflicts": mergeResult.Conflicts,
			}); err != nil {
				return storeFailure("appending progress", err)
			}
			result = &MergeTaskResult{MergeResult: "conflict", Task: task, Conflicts: details}
			return nil
		}

		cleanupErrs := []string{}
		worktreeRemoved := task.WorktreePath == ""
		if task.WorktreePath != "" {
			if err := s.git.RemoveWorktree(ctx, task.WorktreePath); err != nil {
				s.logger.Warn("worktree removal failed", "task_id", taskID, "error", err)
				cleanupErrs = append(cleanupErrs, err.Error())
			} else {
				worktreeRemoved = true
			}
		}
		branchDeleted := task.BranchName == ""
		if task.BranchName != "" {
			if err := s.git.DeleteBranch(ctx, task.BranchName); err != nil {
				s.logger.Warn("branch deletion failed", "task_id", taskID, "error", err)
				cleanupErrs = append(cleanupErrs, err.Error())
			} else {
				branchDeleted = true
			}
		}

		// Only clear the fields that were actually reclaimed; a failed
		// removal/deletion must keep pointing at the still-live worktree or
		// branch so it isn't orphaned with no record once the task is terminal.
		update := model.TaskUpdate{
			Status:   statusPtr(model.StatusCompleted),
			MergedAt: strPtr(nowISO()),
		}
		if worktreeRemoved {
			update.WorktreePath = strPtr("")
		}
		if branchDeleted {
			update.BranchName = strPtr("")
		}
		updated, err := tx.UpdateTask(ctx, taskID, update)
		if err != nil {
			return storeFailure("completing merge", err)
		}

		unlocked, err := s.unlockDependents(ctx, tx, task.GroupID, []string{task.ID}, []model.TaskStatus{model.StatusCompleted})
		if err != nil {
			return err
		}

		if _, err := tx.AppendProgress(ctx, taskID, model.EventMerged, "merged to "+s.trunk, map[string]any{
			"cleanup_errors": cleanupErrs,
		}); err != nil {
			return storeFailure("appending progress", err)
		}

		result = &MergeTaskResult{MergeResult: "clean", Task: updated, Unlocked: unlocked}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CleanupTask force-transitions a task to failed from any state, best-effort
// removing its worktree and branch.
func (s *Service) CleanupTask(ctx context.Context, taskID, reason string) (*CleanupTaskResult, error) {
	var result *CleanupTaskResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return hardPrecondition("no task with id %q exists", taskID)
		}

		worktreeRemoved := task.WorktreePath == ""
		if task.WorktreePath != "" {
			if err := s.git.RemoveWorktree(ctx, task.WorktreePath); err != nil {
				s.logger.Warn("worktree removal failed during cleanup", "task_id", taskID, "error", err)
			} else {
				worktreeRemoved = true
			}
		}
		branchDeleted := task.BranchName == ""
		if task.BranchName != "" {
			if err := s.git.DeleteBranch(ctx, task.BranchName); err != nil {
				s.logger.Warn("branch deletion failed during cleanup", "task_id", taskID, "error", err)
			} else {
				branchDeleted = true
			}
		}

		update := model.TaskUpdate{Status: statusPtr(model.StatusFailed)}
		if worktreeRemoved {
			update.WorktreePath = strPtr("")
		}
		if branchDeleted {
			update.BranchName = strPtr("")
		}
		updated, err := tx.UpdateTask(ctx, taskID, update)
		if err != nil {
			return storeFailure("failing task", err)
		}

		if _, err := tx.AppendProgress(ctx, taskID, model.EventFailed, reason, map[string]any{
			"worktree_removed": worktreeRemoved,
			"branch_deleted":   branchDeleted,
		}); err != nil {
			return storeFailure("appending progress", err)
		}

		result = &CleanupTaskResult{Task: updated, WorktreeRemoved: worktreeRemoved, BranchDeleted: branchDeleted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// unlockDependents finds every blocked/pending task in groupID whose
// dependencies are fully satisfied by satisfiedIDs plus every task currently
// in one of satisfiedStatuses, and transitions the blocked ones to pending.
func (s *Service) unlockDependents(ctx context.Context, tx *store.Tx, groupID string, satisfiedIDs []string, satisfiedStatuses []model.TaskStatus) ([]TaskSummary, error) {
	all, err := tx.ListTasks(ctx, store.ListFilter{GroupID: groupID})
	if err != nil {
		return nil, storeFailure("listing group tasks", err)
	}

	completedSet := map[string]bool{}
	for _, id := range satisfiedIDs {
		completedSet[id] = true
	}
	for _, t := range all {
		for _, st := range satisfiedStatuses {
			if t.Status == st {
				completedSet[t.ID] = true
			}
		}
	}

	edges, err := tx.GetAllDependencyEdges(ctx, groupID)
	if err != nil {
		return nil, storeFailure("loading dependency edges", err)
	}
	taskByID := make(map[string]*model.Task, len(all))
	for _, t := range all {
		taskByID[t.ID] = t
	}
	depsOf := func(taskID string) []*model.Task {
		var deps []*model.Task
		for _, depID := range edges[taskID] {
			if d, ok := taskByID[depID]; ok {
				deps = append(deps, d)
			}
		}
		return deps
	}

	candidates := dag.UnlockedBy(all, completedSet, depsOf)

	var summaries []TaskSummary
	for _, c := range candidates {
		if c.Status != model.StatusBlocked {
			continue
		}
		updated, err := tx.UpdateTask(ctx, c.ID, model.TaskUpdate{Status: statusPtr(model.StatusPending)})
		if err != nil {
			return nil, storeFailure("unblocking task", err)
		}
		summaries = append(summaries, TaskSummary{Task: updated, CanStart: true})
	}
	return summaries, nil
}

func statusPtr(s model.TaskStatus) *model.TaskStatus { return &s }
func strPtr(s string) *string                        { return &s }
func intPtr(i int) *int                               { return &i }

package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type cleanupTaskParams struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason,omitempty"`
}

// CleanupTask implements cleanup_task: abandons a task from any non-terminal
// state, best-effort removing its worktree and branch and marking it failed.
type CleanupTask struct {
	svc *taskservice.Service
}

func NewCleanupTask(svc *taskservice.Service) *CleanupTask {
	return &CleanupTask{svc: svc}
}

func (t *CleanupTask) Name() string { return "cleanup_task" }
func (t *CleanupTask) Description() string {
	return "Abandon a task: best-effort removes its worktree and deletes its branch, then marks it failed. Callable from any non-terminal state; also reconciles worktree/branch leaks left by a crashed worker."
}
func (t *CleanupTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string"},
    "reason": {"type": "string", "description": "Why the task is being abandoned, recorded in its progress log"}
  },
  "required": ["task_id"]
}`)
}

func (t *CleanupTask) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p cleanupTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.TaskID == "" {
		return fmtErrorResult("task_id is required")
	}

	res, err := t.svc.CleanupTask(ctx, p.TaskID, p.Reason)
	if err != nil {
		return serviceErrorResult(err)
	}

	return mcp.JSONResult(map[string]any{
		"task":             viewTask(res.Task, nil),
		"worktree_removed": res.WorktreeRemoved,
		"branch_deleted":   res.BranchDeleted,
	})
}

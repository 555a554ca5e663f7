package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/gitdriver"
	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type mergeTaskParams struct {
	TaskID   string `json:"task_id"`
	Strategy string `json:"strategy,omitempty"`
}

// MergeTask implements merge_task: folds an in-review task's branch into
// trunk. On conflict, the repository is left exactly as git left it; the
// caller decides whether to abort.
type MergeTask struct {
	svc *taskservice.Service
}

func NewMergeTask(svc *taskservice.Service) *MergeTask {
	return &MergeTask{svc: svc}
}

func (t *MergeTask) Name() string { return "merge_task" }
func (t *MergeTask) Description() string {
	return "Merge an in-review task's branch into trunk (merge or squash). On success, removes the worktree and branch, marks the task completed, and reports newly-unblocked dependents. On conflict, reports the conflicted paths without changing task status or aborting the merge."
}
func (t *MergeTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string"},
    "strategy": {"type": "string", "enum": ["merge", "squash"], "description": "Defaults to merge"}
  },
  "required": ["task_id"]
}`)
}

func (t *MergeTask) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p mergeTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.TaskID == "" {
		return fmtErrorResult("task_id is required")
	}

	strategy := gitdriver.MergeStrategyMerge
	if p.Strategy != "" {
		strategy = gitdriver.MergeStrategy(p.Strategy)
	}

	res, err := t.svc.MergeTask(ctx, p.TaskID, strategy)
	if err != nil {
		return serviceErrorResult(err)
	}

	conflicts := make([]map[string]any, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		conflicts = append(conflicts, map[string]any{
			"path":            c.Path,
			"description":     c.Description,
			"suggestion":      c.Suggestion,
			"auto_resolvable": c.AutoResolvable,
		})
	}

	return mcp.JSONResult(map[string]any{
		"merge_result": res.MergeResult,
		"task":         viewTask(res.Task, nil),
		"conflicts":    conflicts,
		"unlocked":     viewSummaries(res.Unlocked),
	})
}

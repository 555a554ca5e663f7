package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type startTaskParams struct {
	TaskID string `json:"task_id"`
}

// StartTask implements start_task: materializes the task's git worktree and
// branch and hands the worker its working context.
type StartTask struct {
	svc *taskservice.Service
}

func NewStartTask(svc *taskservice.Service) *StartTask {
	return &StartTask{svc: svc}
}

func (t *StartTask) Name() string { return "start_task" }
func (t *StartTask) Description() string {
	return "Start an assigned task: creates its git worktree and branch off trunk, transitions it to in_progress, and returns the worker's context (description, file patterns, completed prerequisites)."
}
func (t *StartTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "ID of the assigned task to start"}
  },
  "required": ["task_id"]
}`)
}

func (t *StartTask) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p startTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.TaskID == "" {
		return fmtErrorResult("task_id is required")
	}

	res, err := t.svc.StartTask(ctx, p.TaskID)
	if err != nil {
		return serviceErrorResult(err)
	}

	patterns := make([]map[string]any, 0, len(res.FilePatterns))
	for _, fp := range res.FilePatterns {
		patterns = append(patterns, map[string]any{
			"file_pattern":   fp.FilePattern,
			"ownership_type": string(fp.OwnershipType),
		})
	}

	prereqs := make([]map[string]any, 0, len(res.CompletedPrereqs))
	for _, pr := range res.CompletedPrereqs {
		prereqs = append(prereqs, map[string]any{
			"title":       pr.Title,
			"branch_name": pr.BranchName,
		})
	}

	return mcp.JSONResult(map[string]any{
		"task":                viewTask(res.Task, nil),
		"description":         res.Description,
		"file_patterns":       patterns,
		"completed_prereqs":   prereqs,
	})
}

package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type completeTaskParams struct {
	TaskID       string   `json:"task_id"`
	Summary      string   `json:"summary,omitempty"`
	FilesChanged []string `json:"files_changed,omitempty"`
}

// CompleteTask implements complete_task: moves a task to in_review and
// reports which blocked dependents this unblocks.
type CompleteTask struct {
	svc *taskservice.Service
}

func NewCompleteTask(svc *taskservice.Service) *CompleteTask {
	return &CompleteTask{svc: svc}
}

func (t *CompleteTask) Name() string { return "complete_task" }
func (t *CompleteTask) Description() string {
	return "Mark an in-progress task's work done and send it to in_review. Dependents whose remaining dependencies are now satisfied move from blocked to pending."
}
func (t *CompleteTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string"},
    "summary": {"type": "string", "description": "What was done, recorded as the task's final progress note"},
    "files_changed": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["task_id"]
}`)
}

func (t *CompleteTask) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p completeTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.TaskID == "" {
		return fmtErrorResult("task_id is required")
	}

	res, err := t.svc.CompleteTask(ctx, taskservice.CompleteTaskInput{
		TaskID:       p.TaskID,
		Summary:      p.Summary,
		FilesChanged: p.FilesChanged,
	})
	if err != nil {
		return serviceErrorResult(err)
	}

	return mcp.JSONResult(map[string]any{
		"task":     viewTask(res.Task, nil),
		"unlocked": viewSummaries(res.Unlocked),
	})
}

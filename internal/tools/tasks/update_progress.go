package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type updateProgressParams struct {
	TaskID       string   `json:"task_id"`
	Progress     int      `json:"progress"`
	Note         string   `json:"note,omitempty"`
	FilesChanged []string `json:"files_changed,omitempty"`
}

// UpdateProgress implements update_progress: an in-progress worker's
// heartbeat, optionally flagging overlapping in-progress file claims and
// whether trunk has moved ahead since the task's branch point.
type UpdateProgress struct {
	svc *taskservice.Service
}

func NewUpdateProgress(svc *taskservice.Service) *UpdateProgress {
	return &UpdateProgress{svc: svc}
}

func (t *UpdateProgress) Name() string { return "update_progress" }
func (t *UpdateProgress) Description() string {
	return "Record progress on an in-progress task. Optionally reports files changed so far, which is checked against other in-progress tasks' exclusive file claims; warns if trunk has advanced since the task branched."
}
func (t *UpdateProgress) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string"},
    "progress": {"type": "integer", "minimum": 0, "maximum": 100},
    "note": {"type": "string"},
    "files_changed": {"type": "array", "items": {"type": "string"}, "description": "File paths touched so far, checked for conflicts with other in-progress tasks"}
  },
  "required": ["task_id", "progress"]
}`)
}

func (t *UpdateProgress) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p updateProgressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.TaskID == "" {
		return fmtErrorResult("task_id is required")
	}

	res, err := t.svc.UpdateProgress(ctx, taskservice.UpdateProgressInput{
		TaskID:       p.TaskID,
		Progress:     p.Progress,
		Note:         p.Note,
		FilesChanged: p.FilesChanged,
	})
	if err != nil {
		return serviceErrorResult(err)
	}

	return mcp.JSONResult(map[string]any{
		"task":               viewTask(res.Task, nil),
		"rebase_recommended": res.RebaseRecommended,
		"conflict_warnings":  res.ConflictWarnings,
	})
}

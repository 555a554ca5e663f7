package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type getTaskParams struct {
	TaskID string `json:"task_id"`
}

// GetTask implements get_task: full detail for one task, including its
// dependency projection, file ownership, and progress log.
type GetTask struct {
	svc *taskservice.Service
}

func NewGetTask(svc *taskservice.Service) *GetTask {
	return &GetTask{svc: svc}
}

func (t *GetTask) Name() string { return "get_task" }
func (t *GetTask) Description() string {
	return "Get full detail for one task: its fields, resolved dependencies, declared file ownership, and progress log."
}
func (t *GetTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "ID of the task to fetch"}
  },
  "required": ["task_id"]
}`)
}

func (t *GetTask) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.TaskID == "" {
		return fmtErrorResult("task_id is required")
	}

	res, err := t.svc.GetTask(ctx, p.TaskID)
	if err != nil {
		return serviceErrorResult(err)
	}

	deps := make([]map[string]any, 0, len(res.Dependencies))
	for _, d := range res.Dependencies {
		deps = append(deps, map[string]any{
			"task_id":  d.TaskID,
			"sequence": d.Sequence,
			"title":    d.Title,
			"status":   string(d.Status),
		})
	}

	ownership := make([]map[string]any, 0, len(res.Ownership))
	for _, o := range res.Ownership {
		ownership = append(ownership, map[string]any{
			"file_pattern":   o.FilePattern,
			"ownership_type": string(o.OwnershipType),
		})
	}

	progress := make([]map[string]any, 0, len(res.Progress))
	for _, p := range res.Progress {
		entry := map[string]any{
			"timestamp": p.Timestamp,
			"event":     string(p.Event),
			"message":   p.Message,
		}
		if len(p.Metadata) > 0 {
			entry["metadata"] = json.RawMessage(p.Metadata)
		}
		progress = append(progress, entry)
	}

	return mcp.JSONResult(map[string]any{
		"task":         viewTask(res.Task, nil),
		"dependencies": deps,
		"ownership":    ownership,
		"progress":     progress,
	})
}

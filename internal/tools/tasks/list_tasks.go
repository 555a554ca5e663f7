package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/model"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type listTasksParams struct {
	GroupID string   `json:"group_id"`
	Status  []string `json:"status,omitempty"`
}

// ListTasks implements list_tasks: tasks in a group, optionally filtered by
// status, with per-status counts and can_start for pending tasks.
type ListTasks struct {
	svc *taskservice.Service
}

func NewListTasks(svc *taskservice.Service) *ListTasks {
	return &ListTasks{svc: svc}
}

func (t *ListTasks) Name() string { return "list_tasks" }
func (t *ListTasks) Description() string {
	return "List tasks in a group, optionally filtered by status, with status tallies and can_start for pending tasks."
}
func (t *ListTasks) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "group_id": {"type": "string", "description": "ID of the task group to list"},
    "status": {
      "type": "array",
      "items": {"type": "string", "enum": ["pending", "blocked", "assigned", "in_progress", "in_review", "completed", "failed"]},
      "description": "Optional status filter; omit to list all tasks in the group"
    }
  },
  "required": ["group_id"]
}`)
}

func (t *ListTasks) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p listTasksParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.GroupID == "" {
		return fmtErrorResult("group_id is required")
	}

	in := taskservice.ListTasksInput{GroupID: p.GroupID}
	for _, s := range p.Status {
		in.Status = append(in.Status, model.TaskStatus(s))
	}

	res, err := t.svc.ListTasks(ctx, in)
	if err != nil {
		return serviceErrorResult(err)
	}

	views := make([]taskView, 0, len(res.Tasks))
	for _, ts := range res.Tasks {
		views = append(views, viewTask(ts.Task, ts.CanStart))
	}

	return mcp.JSONResult(map[string]any{
		"tasks": views,
		"counts": map[string]int{
			"total":       res.Counts.Total,
			"pending":     res.Counts.Pending,
			"blocked":     res.Counts.Blocked,
			"assigned":    res.Counts.Assigned,
			"in_progress": res.Counts.InProgress,
			"in_review":   res.Counts.InReview,
			"completed":   res.Counts.Completed,
			"failed":      res.Counts.Failed,
		},
	})
}

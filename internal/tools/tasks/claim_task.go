package tasks

import (
	"context"
	"encoding/json"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type claimTaskParams struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id,omitempty"`
	Force   bool   `json:"force,omitempty"`
}

// ClaimTask implements claim_task: the only operation whose precondition
// failures are reported as {success:false, error} rather than a fatal error.
type ClaimTask struct {
	svc *taskservice.Service
}

func NewClaimTask(svc *taskservice.Service) *ClaimTask {
	return &ClaimTask{svc: svc}
}

func (t *ClaimTask) Name() string { return "claim_task" }
func (t *ClaimTask) Description() string {
	return "Claim a pending task for an agent. Fails softly (success:false) if the task doesn't exist, isn't pending, has unmet dependencies, or conflicts with another task's in-progress file claims (override with force)."
}
func (t *ClaimTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "ID of the task to claim"},
    "agent_id": {"type": "string", "description": "Caller-supplied agent identifier; a token is generated if omitted"},
    "force": {"type": "boolean", "description": "Override the soft file-conflict precondition"}
  },
  "required": ["task_id"]
}`)
}

func (t *ClaimTask) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p claimTaskParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.TaskID == "" {
		return fmtErrorResult("task_id is required")
	}

	res, err := t.svc.ClaimTask(ctx, p.TaskID, p.AgentID, p.Force)
	if err != nil {
		return serviceErrorResult(err)
	}

	out := map[string]any{"success": res.Success}
	if res.Success {
		out["task"] = viewTask(res.Task, nil)
	} else {
		out["error"] = res.Error
	}
	return mcp.JSONResult(out)
}

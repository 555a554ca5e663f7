// Package tasks implements the taskmcp tool surface: create_tasks,
// list_tasks, get_task, claim_task, start_task, update_progress,
// complete_task, merge_task, cleanup_task. Each tool wraps one
// taskservice.Service operation, translating wire JSON to the service's
// input structs and its result back to a JSON tool response.
package tasks

import (
	"errors"
	"fmt"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/model"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

// serviceErrorResult converts a *taskservice.Error into a tool-level error
// result so the client sees the precondition message as ordinary tool
// output rather than a JSON-RPC protocol error. Any other error is passed
// through unconverted so the transport reports it as a real failure.
func serviceErrorResult(err error) (*mcp.ToolsCallResult, error) {
	var svcErr *taskservice.Error
	if errors.As(err, &svcErr) {
		return mcp.ErrorResult(svcErr.Error()), nil
	}
	return nil, err
}

// taskView is the wire projection of model.Task shared by every tool that
// returns one, with can_start appended where the caller computed it.
type taskView struct {
	ID           string `json:"id"`
	GroupID      string `json:"group_id"`
	Sequence     int    `json:"sequence"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	AssignedTo   string `json:"assigned_to,omitempty"`
	BranchName   string `json:"branch_name,omitempty"`
	WorktreePath string `json:"worktree_path,omitempty"`
	Progress     int    `json:"progress"`
	ProgressNote string `json:"progress_note,omitempty"`
	CreatedAt    string `json:"created_at"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
	MergedAt     string `json:"merged_at,omitempty"`
	CanStart     *bool  `json:"can_start,omitempty"`
}

func viewTask(t *model.Task, canStart *bool) taskView {
	return taskView{
		ID:           t.ID,
		GroupID:      t.GroupID,
		Sequence:     t.Sequence,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		AssignedTo:   t.AssignedTo,
		BranchName:   t.BranchName,
		WorktreePath: t.WorktreePath,
		Progress:     t.Progress,
		ProgressNote: t.ProgressNote,
		CreatedAt:    t.CreatedAt,
		StartedAt:    t.StartedAt,
		CompletedAt:  t.CompletedAt,
		MergedAt:     t.MergedAt,
		CanStart:     canStart,
	}
}

func viewSummary(ts taskservice.TaskSummary) taskView {
	cs := ts.CanStart
	return viewTask(ts.Task, &cs)
}

func viewSummaries(in []taskservice.TaskSummary) []taskView {
	out := make([]taskView, 0, len(in))
	for _, ts := range in {
		out = append(out, viewSummary(ts))
	}
	return out
}

func fmtErrorResult(format string, args ...any) (*mcp.ToolsCallResult, error) {
	return mcp.ErrorResult(fmt.Sprintf(format, args...)), nil
}

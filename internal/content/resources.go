package content

import "github.com/taskmcp/taskmcp/internal/mcp"

// --- taskmcp://state-machine resource ---

// StateMachineResource renders the task status transition table as text.
type StateMachineResource struct{}

func (r *StateMachineResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "taskmcp://state-machine",
		Name:        "Task state machine",
		Description: "The task status transition table: which tool call moves a task from one status to the next, and what guards it",
		MimeType:    "text/markdown",
	}
}

func (r *StateMachineResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{
				URI:      "taskmcp://state-machine",
				MimeType: "text/markdown",
				Text:     stateMachineContent,
			},
		},
	}, nil
}

const stateMachineContent = `# Task status transitions

pending -> blocked       automatic, when create_tasks registers an unmet dependency
blocked -> pending       automatic, when complete_task/merge_task satisfies the last blocking dependency
pending -> assigned      claim_task (requires all dependencies completed, no active file conflicts unless force)
assigned -> in_progress  start_task (creates the worktree and branch)
in_progress -> in_review complete_task
in_review -> completed   merge_task (on a clean merge)
any non-terminal -> failed  cleanup_task (reason recorded in the progress log)

completed and failed are terminal. A task can only be claimed, started,
progressed, completed, merged, or cleaned up from the status each of
those operations requires; calling one out of order is a hard
precondition failure, except claim_task's preconditions, which are soft
and return {success: false, error} instead of failing the call.
`

// --- taskmcp://tool-reference resource ---

// ToolReferenceResource is a quick-reference card for the nine task tools.
type ToolReferenceResource struct{}

func (r *ToolReferenceResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "taskmcp://tool-reference",
		Name:        "Task tool reference",
		Description: "One-line summary of each of the nine task coordination tools",
		MimeType:    "text/markdown",
	}
}

func (r *ToolReferenceResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{
				URI:      "taskmcp://tool-reference",
				MimeType: "text/markdown",
				Text:     toolReferenceContent,
			},
		},
	}, nil
}

const toolReferenceContent = `# Tools

- create_tasks: partition a unit of work into a dependency graph of tasks with file ownership patterns
- list_tasks: list tasks in a group, optionally filtered by status
- get_task: full detail for one task, including dependencies, ownership, and progress log
- claim_task: assign a pending task to an agent
- start_task: create the task's git worktree and branch, moving it to in_progress
- update_progress: record a progress heartbeat, optionally checking files touched so far for conflicts
- complete_task: send a task to in_review and unblock dependents whose dependencies are now satisfied
- merge_task: merge or squash an in-review task's branch into trunk
- cleanup_task: abandon a task from any non-terminal state, removing its worktree and branch
`

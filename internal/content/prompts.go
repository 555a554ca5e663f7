// Package content provides MCP prompts and resources for the taskmcp server.
package content

import "github.com/taskmcp/taskmcp/internal/mcp"

// --- workflow prompt ---

// WorkflowPrompt walks a client through the full task lifecycle: partition,
// claim, work, and merge.
type WorkflowPrompt struct{}

func (p *WorkflowPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "workflow",
		Description: "Guide for partitioning a unit of work into tasks and driving one through claim, start, progress, complete, and merge",
		Arguments:   []mcp.PromptArgument{},
	}
}

func (p *WorkflowPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	return &mcp.PromptsGetResult{
		Description: "Task coordination workflow",
		Messages: []mcp.PromptMessage{
			{
				Role:    "user",
				Content: mcp.TextContent(workflowGuide),
			},
		},
	}, nil
}

const workflowGuide = `# Coordinating parallel work with taskmcp

## 1. Partition the work

Call create_tasks once with a group title and the full list of tasks.
Give each task a title, description, priority, the 1-based indices of
the other tasks in the same call it depends on, and the file patterns
it expects to touch with their ownership type (exclusive or shared).
Tasks whose dependencies are unmet start life blocked; the rest start
pending.

Two tasks claiming overlapping exclusive file patterns produce a
warning in the response, not a rejection — review it before handing
tasks out to concurrent workers.

## 2. Claim and work a task

- claim_task reserves a pending task for an agent. It fails softly
  (success: false) if the task isn't pending, a dependency isn't
  completed, or another in-progress task declares the very same file
  pattern. Pass force: true to claim despite that last conflict; the
  other checks cannot be overridden.
- start_task creates the task's git worktree and branch.
- update_progress records a heartbeat; pass files_changed so far to
  get a warning if another in-progress task has since claimed an
  overlapping exclusive pattern, and to learn if trunk has moved ahead
  of the task's branch point.
- complete_task sends the task to in_review and reports any dependent
  tasks this unblocks.

## 3. Merge

merge_task folds the branch into trunk (merge or squash). On success
the worktree and branch are removed and the task is marked completed.
On a merge conflict, the repository is left exactly as git left it;
the task's status does not change until you resolve the conflict and
call merge_task again, or call cleanup_task to abandon the task.

## 4. Abandoning a task

cleanup_task can be called from any non-terminal status. It best-effort
removes the worktree and branch and marks the task failed with a
reason. It is also the way to reconcile a worktree/branch left behind
by a worker that crashed mid-task.
`

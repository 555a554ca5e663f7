package taskservice

import "github.com/taskmcp/taskmcp/internal/model"

// FilePatternInput is a proposed file-ownership declaration on task creation.
type FilePatternInput struct {
	Pattern       string
	OwnershipType model.OwnershipType
}

// TaskInput describes one task within a create_tasks call. DependsOn holds
// 1-based sequence numbers referencing other entries in the same call.
type TaskInput struct {
	Title        string
	Description  string
	Priority     model.Priority
	DependsOn    []int
	FilePatterns []FilePatternInput
}

// CreateTasksInput is create_tasks's parameters.
type CreateTasksInput struct {
	GroupTitle       string
	GroupDescription string
	Tasks            []TaskInput
}

// TaskSummary pairs a task with its computed can_start flag.
type TaskSummary struct {
	Task     *model.Task
	CanStart bool
}

// CreateTasksResult is create_tasks's return value.
type CreateTasksResult struct {
	Group    *model.TaskGroup
	Tasks    []TaskSummary
	Warnings []string
}

// ListTasksInput is list_tasks's parameters.
type ListTasksInput struct {
	GroupID string
	Status  []model.TaskStatus
}

// ListTasksSummary is one task entry in list_tasks's result; CanStart is
// non-nil only for tasks currently pending.
type ListTasksSummary struct {
	Task     *model.Task
	CanStart *bool
}

// StatusCounts tallies tasks by status, plus the total, for list_tasks.
type StatusCounts struct {
	Total      int
	Pending    int
	Blocked    int
	Assigned   int
	InProgress int
	InReview   int
	Completed  int
	Failed     int
}

// ListTasksResult is list_tasks's return value.
type ListTasksResult struct {
	Tasks  []ListTasksSummary
	Counts StatusCounts
}

// DependencyProjection is the sequence/title/status view of a dependency
// returned by get_task.
type DependencyProjection struct {
	TaskID   string
	Sequence int
	Title    string
	Status   model.TaskStatus
}

// GetTaskResult is get_task's return value.
type GetTaskResult struct {
	Task         *model.Task
	Dependencies []DependencyProjection
	Ownership    []model.TaskFileOwnership
	Progress     []*model.ProgressLog
}

// ClaimTaskResult is claim_task's return value. A soft precondition failure
// is reported as Success=false with Error set, never as a Go error.
type ClaimTaskResult struct {
	Success bool
	Error   string
	Task    *model.Task
}

// StartTaskResult is start_task's return value: worker-facing task context.
type StartTaskResult struct {
	Task               *model.Task
	Description        string
	FilePatterns       []model.TaskFileOwnership
	CompletedPrereqs   []PrereqRef
}

// PrereqRef is a completed prerequisite's title+branch, for code-reference hints.
type PrereqRef struct {
	Title      string
	BranchName string
}

// UpdateProgressInput is update_progress's parameters.
type UpdateProgressInput struct {
	TaskID       string
	Progress     int
	Note         string
	FilesChanged []string
}

// UpdateProgressResult is update_progress's return value.
type UpdateProgressResult struct {
	Task              *model.Task
	RebaseRecommended bool
	ConflictWarnings  []string
}

// CompleteTaskInput is complete_task's parameters.
type CompleteTaskInput struct {
	TaskID       string
	Summary      string
	FilesChanged []string
}

// CompleteTaskResult is complete_task's return value.
type CompleteTaskResult struct {
	Task     *model.Task
	Unlocked []TaskSummary
}

// MergeTaskResult is merge_task's return value.
type MergeTaskResult struct {
	MergeResult string // "clean" or "conflict"
	Task        *model.Task
	Conflicts   []ConflictDetail
	Unlocked    []TaskSummary
}

// ConflictDetail describes one conflicted path from a failed merge.
type ConflictDetail struct {
	Path           string
	Description    string
	Suggestion     string
	AutoResolvable bool
}

// CleanupTaskResult is cleanup_task's return value.
type CleanupTaskResult struct {
	Task            *model.Task
	WorktreeRemoved bool
	BranchDeleted   bool
}

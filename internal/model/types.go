// Package model defines the coordination engine's entity types: TaskGroup,
// Task, TaskDependency, TaskFileOwnership, and ProgressLog, as described by
// the data model the Store and Task service operate on.
package model

import "encoding/json"

// GroupStatus is the lifecycle state of a TaskGroup.
type GroupStatus string

const (
	GroupActive    GroupStatus = "active"
	GroupCompleted GroupStatus = "completed"
	GroupArchived  GroupStatus = "archived"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusBlocked    TaskStatus = "blocked"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in_progress"
	StatusInReview   TaskStatus = "in_review"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Priority is a task's relative urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// OwnershipType indicates whether a file-pattern claim excludes other tasks.
type OwnershipType string

const (
	OwnershipExclusive OwnershipType = "exclusive"
	OwnershipShared    OwnershipType = "shared"
)

// ProgressEvent names the kind of a ProgressLog entry.
type ProgressEvent string

const (
	EventClaimed         ProgressEvent = "claimed"
	EventStarted         ProgressEvent = "started"
	EventProgressUpdate  ProgressEvent = "progress_update"
	EventRebased         ProgressEvent = "rebased"
	EventCompleted       ProgressEvent = "completed"
	EventFailed          ProgressEvent = "failed"
	EventMerged          ProgressEvent = "merged"
	EventConflictDetected ProgressEvent = "conflict_detected"
)

// TaskGroup is a cohesive batch of tasks originating from one high-level requirement.
type TaskGroup struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      GroupStatus `json:"status"`
	CreatedAt   string      `json:"created_at"`
}

// Task is one unit of work assignable to one worker.
type Task struct {
	ID           string     `json:"id"`
	GroupID      string     `json:"group_id"`
	Sequence     int        `json:"sequence"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	BranchName   string     `json:"branch_name,omitempty"`
	WorktreePath string     `json:"worktree_path,omitempty"`
	Progress     int        `json:"progress"`
	ProgressNote string     `json:"progress_note,omitempty"`
	CreatedAt    string     `json:"created_at"`
	StartedAt    string     `json:"started_at,omitempty"`
	CompletedAt  string     `json:"completed_at,omitempty"`
	MergedAt     string     `json:"merged_at,omitempty"`
}

// TaskDependency is a directed edge from a dependent task to a prerequisite.
type TaskDependency struct {
	TaskID    string `json:"task_id"`
	DependsOn string `json:"depends_on"`
}

// TaskFileOwnership is a worker's declared interest in a file region.
type TaskFileOwnership struct {
	TaskID        string        `json:"task_id"`
	FilePattern   string        `json:"file_pattern"`
	OwnershipType OwnershipType `json:"ownership_type"`
}

// ProgressLog is an append-only audit record for a task.
type ProgressLog struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	Timestamp string          `json:"timestamp"`
	Event     ProgressEvent   `json:"event"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// TaskUpdate is a sparse field set for Store.UpdateTask; nil fields are left unchanged.
type TaskUpdate struct {
	Status       *TaskStatus
	AssignedTo   *string
	BranchName   *string
	WorktreePath *string
	Progress     *int
	ProgressNote *string
	StartedAt    *string
	CompletedAt  *string
	MergedAt     *string
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

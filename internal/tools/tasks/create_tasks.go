package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskmcp/taskmcp/internal/mcp"
	"github.com/taskmcp/taskmcp/internal/model"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

type createTasksParams struct {
	GroupTitle       string              `json:"group_title"`
	GroupDescription string              `json:"group_description,omitempty"`
	Tasks            []createTaskEntry   `json:"tasks"`
}

type createTaskEntry struct {
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	Priority     string               `json:"priority,omitempty"`
	DependsOn    []int                `json:"depends_on,omitempty"`
	FilePatterns []createFilePattern  `json:"file_patterns,omitempty"`
}

type createFilePattern struct {
	Pattern       string `json:"pattern"`
	OwnershipType string `json:"ownership_type,omitempty"`
}

// CreateTasks implements create_tasks: partitions a requirement into a
// dependency-graphed batch of tasks within one new task group.
type CreateTasks struct {
	svc *taskservice.Service
}

func NewCreateTasks(svc *taskservice.Service) *CreateTasks {
	return &CreateTasks{svc: svc}
}

func (t *CreateTasks) Name() string { return "create_tasks" }
func (t *CreateTasks) Description() string {
	return "Create a task group and its tasks, with dependency edges (by 1-based position in this call) and file-pattern ownership declarations. Dependent tasks start blocked."
}
func (t *CreateTasks) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "group_title": {"type": "string", "description": "Title for the new task group"},
    "group_description": {"type": "string", "description": "Optional longer description of the requirement being partitioned"},
    "tasks": {
      "type": "array",
      "description": "Tasks to create, in order. depends_on entries reference other tasks by 1-based position in this array.",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "priority": {"type": "string", "enum": ["high", "medium", "low"]},
          "depends_on": {"type": "array", "items": {"type": "integer"}, "description": "1-based indices into this tasks array"},
          "file_patterns": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "pattern": {"type": "string", "description": "Directory or file prefix this task will touch"},
                "ownership_type": {"type": "string", "enum": ["exclusive", "shared"]}
              },
              "required": ["pattern"]
            }
          }
        },
        "required": ["title"]
      }
    }
  },
  "required": ["group_title", "tasks"]
}`)
}

func (t *CreateTasks) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p createTasksParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmtErrorResult("invalid parameters: %v", err)
	}
	if p.GroupTitle == "" {
		return fmtErrorResult("group_title is required")
	}
	if len(p.Tasks) == 0 {
		return fmtErrorResult("at least one task is required")
	}

	in := taskservice.CreateTasksInput{
		GroupTitle:       p.GroupTitle,
		GroupDescription: p.GroupDescription,
	}
	for _, te := range p.Tasks {
		priority := model.PriorityMedium
		if te.Priority != "" {
			priority = model.Priority(te.Priority)
		}
		ti := taskservice.TaskInput{
			Title:       te.Title,
			Description: te.Description,
			Priority:    priority,
			DependsOn:   te.DependsOn,
		}
		for _, fp := range te.FilePatterns {
			ot := model.OwnershipExclusive
			if fp.OwnershipType != "" {
				ot = model.OwnershipType(fp.OwnershipType)
			}
			ti.FilePatterns = append(ti.FilePatterns, taskservice.FilePatternInput{
				Pattern:       fp.Pattern,
				OwnershipType: ot,
			})
		}
		in.Tasks = append(in.Tasks, ti)
	}

	res, err := t.svc.CreateTasks(ctx, in)
	if err != nil {
		return serviceErrorResult(err)
	}

	return mcp.JSONResult(map[string]any{
		"group": map[string]any{
			"id":          res.Group.ID,
			"title":       res.Group.Title,
			"description": res.Group.Description,
			"status":      string(res.Group.Status),
			"created_at":  res.Group.CreatedAt,
		},
		"tasks":    viewSummaries(res.Tasks),
		"warnings": res.Warnings,
		"message":  fmt.Sprintf("created %d task(s) in group %q", len(res.Tasks), res.Group.Title),
	})
}

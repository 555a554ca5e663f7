package tasks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmcp/taskmcp/internal/gitdriver"
	"github.com/taskmcp/taskmcp/internal/store"
	"github.com/taskmcp/taskmcp/internal/taskservice"
)

// newTestService builds a Service backed by an in-memory store and a throwaway
// git repository, skipping if git isn't available on PATH.
func newTestService(t *testing.T) *taskservice.Service {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	st, err := store.NewInMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.CommandContext(context.Background(), "git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	run("add", "README.md")
	run("commit", "-m", "initial commit")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return taskservice.New(st, gitdriver.New(dir), "main", logger)
}

func decodeResult(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCreateTasks_Execute_MissingGroupTitle(t *testing.T) {
	tool := NewCreateTasks(newTestService(t))
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"tasks":[{"title":"a"}]}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "group_title")
}

func TestCreateTasks_Execute_NoTasks(t *testing.T) {
	tool := NewCreateTasks(newTestService(t))
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"group_title":"g","tasks":[]}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCreateTasks_Execute_Success(t *testing.T) {
	tool := NewCreateTasks(newTestService(t))
	res, err := tool.Execute(context.Background(), json.RawMessage(`{
		"group_title": "refactor auth",
		"tasks": [
			{"title": "extract interface"},
			{"title": "wire it up", "depends_on": [1]}
		]
	}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decodeResult(t, json.RawMessage(res.Content[0].Text))
	group := out["group"].(map[string]any)
	assert.Equal(t, "refactor auth", group["title"])

	taskList := out["tasks"].([]any)
	require.Len(t, taskList, 2)
	first := taskList[0].(map[string]any)
	assert.Equal(t, "pending", first["status"])
	second := taskList[1].(map[string]any)
	assert.Equal(t, "blocked", second["status"])
}

func TestClaimTask_Execute_MissingTaskID(t *testing.T) {
	tool := NewClaimTask(newTestService(t))
	res, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestClaimTask_Execute_SoftFailureIsNotAnError(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTasks(ctx, taskservice.CreateTasksInput{
		GroupTitle: "g",
		Tasks: []taskservice.TaskInput{
			{Title: "first"},
			{Title: "second", DependsOn: []int{1}},
		},
	})
	require.NoError(t, err)

	listed, err := svc.ListTasks(ctx, taskservice.ListTasksInput{})
	require.NoError(t, err)
	var secondID string
	for _, ts := range listed.Tasks {
		if ts.Task.Title == "second" {
			secondID = ts.Task.ID
		}
	}
	require.NotEmpty(t, secondID)

	tool := NewClaimTask(svc)
	params, err := json.Marshal(map[string]any{"task_id": secondID})
	require.NoError(t, err)

	res, err := tool.Execute(ctx, params)
	require.NoError(t, err) // a soft precondition is never a transport error
	require.False(t, res.IsError)

	out := decodeResult(t, json.RawMessage(res.Content[0].Text))
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "HARD_BLOCK")
}

func TestGetTask_Execute_UnknownTaskIsServiceError(t *testing.T) {
	tool := NewGetTask(newTestService(t))
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"task_id":"missing"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "no task with id")
}

func TestListTasks_Execute_MissingGroupID(t *testing.T) {
	tool := NewListTasks(newTestService(t))
	res, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListTasks_Execute_SingleTaskGroup(t *testing.T) {
	svc := newTestService(t)
	created, err := svc.CreateTasks(context.Background(), taskservice.CreateTasksInput{
		GroupTitle: "g",
		Tasks:      []taskservice.TaskInput{{Title: "only"}},
	})
	require.NoError(t, err)

	tool := NewListTasks(svc)
	params, err := json.Marshal(map[string]any{"group_id": created.Group.ID})
	require.NoError(t, err)

	res, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decodeResult(t, json.RawMessage(res.Content[0].Text))
	counts := out["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["total"])
}

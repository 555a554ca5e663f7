package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmcp/taskmcp/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, "g1", "Refactor auth", "break up the monolith")
	require.NoError(t, err)
	assert.Equal(t, model.GroupActive, g.Status)
	assert.NotEmpty(t, g.CreatedAt)
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateGroup(ctx, "g1", "Refactor auth", "")
	require.NoError(t, err)

	task := &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "Extract interface"}
	created, err := s.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, model.PriorityMedium, created.Priority)

	got, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Extract interface", got.Title)

	byGroupSeq, err := s.GetTaskByGroupSequence(ctx, "g1", 1)
	require.NoError(t, err)
	assert.Equal(t, "t1", byGroupSeq.ID)
}

func TestGetTask_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTask_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))

	task := &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "first"}
	_, err := s.CreateTask(ctx, task)
	require.NoError(t, err)

	_, err = s.CreateTask(ctx, task)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestListTasks_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))
	require.NoError(t, mustCreateGroup(ctx, s, "g2"))

	_, err := s.CreateTask(ctx, &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "a"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, &model.Task{ID: "t2", GroupID: "g1", Sequence: 2, Title: "b"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, &model.Task{ID: "t3", GroupID: "g2", Sequence: 1, Title: "c"})
	require.NoError(t, err)

	pending := model.StatusPending
	_, err = s.UpdateTask(ctx, "t2", model.TaskUpdate{Status: statusPtr(model.StatusAssigned)})
	require.NoError(t, err)

	byGroup, err := s.ListTasks(ctx, ListFilter{GroupID: "g1"})
	require.NoError(t, err)
	require.Len(t, byGroup, 2)
	assert.Equal(t, "t1", byGroup[0].ID)
	assert.Equal(t, "t2", byGroup[1].ID)

	byStatus, err := s.ListTasks(ctx, ListFilter{Status: []model.TaskStatus{pending}})
	require.NoError(t, err)
	require.Len(t, byStatus, 2)
}

func TestUpdateTask_SparseFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))
	_, err := s.CreateTask(ctx, &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "a"})
	require.NoError(t, err)

	branch := "task/task-1-abcd"
	updated, err := s.UpdateTask(ctx, "t1", model.TaskUpdate{BranchName: &branch})
	require.NoError(t, err)
	assert.Equal(t, branch, updated.BranchName)
	assert.Equal(t, model.StatusPending, updated.Status) // unchanged

	noop, err := s.UpdateTask(ctx, "t1", model.TaskUpdate{})
	require.NoError(t, err)
	assert.Equal(t, updated.BranchName, noop.BranchName)
}

func TestDependencyEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))
	_, err := s.CreateTask(ctx, &model.Task{ID: "a", GroupID: "g1", Sequence: 1, Title: "a"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, &model.Task{ID: "b", GroupID: "g1", Sequence: 2, Title: "b"})
	require.NoError(t, err)

	require.NoError(t, s.AddDependency(ctx, "b", "a"))
	require.NoError(t, s.AddDependency(ctx, "b", "a")) // idempotent

	deps, err := s.GetDependencies(ctx, "b")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "a", deps[0].ID)

	dependents, err := s.GetDependents(ctx, "a")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "b", dependents[0].ID)

	edges, err := s.GetAllDependencyEdges(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, edges["b"])
}

func TestFileOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))
	_, err := s.CreateTask(ctx, &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "a"})
	require.NoError(t, err)

	require.NoError(t, s.AddFileOwnership(ctx, model.TaskFileOwnership{TaskID: "t1", FilePattern: "internal/store/", OwnershipType: model.OwnershipExclusive}))
	require.NoError(t, s.AddFileOwnership(ctx, model.TaskFileOwnership{TaskID: "t1", FilePattern: "internal/store/", OwnershipType: model.OwnershipShared}))

	owned, err := s.GetFileOwnership(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, model.OwnershipShared, owned[0].OwnershipType) // upsert replaced the type
}

func TestFindOwnershipConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))
	_, err := s.CreateTask(ctx, &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "a"})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, &model.Task{ID: "t2", GroupID: "g1", Sequence: 2, Title: "b"})
	require.NoError(t, err)

	require.NoError(t, s.AddFileOwnership(ctx, model.TaskFileOwnership{TaskID: "t1", FilePattern: "internal/store/store.go", OwnershipType: model.OwnershipExclusive}))
	require.NoError(t, s.AddFileOwnership(ctx, model.TaskFileOwnership{TaskID: "t2", FilePattern: "internal/store/store.go", OwnershipType: model.OwnershipExclusive}))

	_, err = s.UpdateTask(ctx, "t2", model.TaskUpdate{Status: statusPtr(model.StatusInProgress)})
	require.NoError(t, err)

	conflicts, err := s.FindOwnershipConflicts(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "t2", conflicts[0].OtherTaskID)
}

func TestProgressLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))
	_, err := s.CreateTask(ctx, &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "a"})
	require.NoError(t, err)

	_, err = s.AppendProgress(ctx, "t1", model.EventClaimed, "claimed by worker-1", nil)
	require.NoError(t, err)
	_, err = s.AppendProgress(ctx, "t1", model.EventProgressUpdate, "50% done", map[string]any{"files_changed": 3})
	require.NoError(t, err)

	logs, err := s.ListProgress(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.EventClaimed, logs[0].Event)
	assert.NotNil(t, logs[1].Metadata)
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, mustCreateGroup(ctx, s, "g1"))

	wantErr := assert.AnError
	err := s.RunInTransaction(ctx, func(tx *Tx) error {
		if _, err := tx.CreateTask(ctx, &model.Task{ID: "t1", GroupID: "g1", Sequence: 1, Title: "a"}); err != nil {
			return err
		}
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, err = s.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func mustCreateGroup(ctx context.Context, s *Store, id string) error {
	_, err := s.CreateGroup(ctx, id, "group "+id, "")
	return err
}

func statusPtr(st model.TaskStatus) *model.TaskStatus { return &st }

package guards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmcp/taskmcp/internal/model"
)

type fakeSource struct {
	tasks map[string]*model.Task
	deps  map[string][]*model.Task
}

func (f *fakeSource) GetTask(_ context.Context, id string) (*model.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, assert.AnError
	}
	return t, nil
}

func (f *fakeSource) GetDependencies(_ context.Context, taskID string) ([]*model.Task, error) {
	return f.deps[taskID], nil
}

func TestPopulateClaimState_MissingTask(t *testing.T) {
	src := &fakeSource{tasks: map[string]*model.Task{}}
	gctx, err := PopulateClaimState(context.Background(), src, nil, "missing", false)
	require.NoError(t, err)
	assert.False(t, gctx.TaskExists)
}

func TestPopulateClaimState_UnmetDependencies(t *testing.T) {
	src := &fakeSource{
		tasks: map[string]*model.Task{
			"t1": {ID: "t1", Status: model.StatusPending},
		},
		deps: map[string][]*model.Task{
			"t1": {
				{ID: "a", Status: model.StatusInProgress},
				{ID: "b", Status: model.StatusCompleted},
			},
		},
	}
	gctx, err := PopulateClaimState(context.Background(), src, nil, "t1", false)
	require.NoError(t, err)
	assert.True(t, gctx.TaskExists)
	assert.Equal(t, []string{"a"}, gctx.UnmetDeps)
}

func TestPopulateClaimState_AllDependenciesCompleted(t *testing.T) {
	src := &fakeSource{
		tasks: map[string]*model.Task{
			"t1": {ID: "t1", Status: model.StatusPending},
		},
		deps: map[string][]*model.Task{
			"t1": {{ID: "a", Status: model.StatusCompleted}},
		},
	}
	gctx, err := PopulateClaimState(context.Background(), src, nil, "t1", false)
	require.NoError(t, err)
	assert.Empty(t, gctx.UnmetDeps)
}

func TestPopulateClaimState_AlreadyOwned(t *testing.T) {
	src := &fakeSource{
		tasks: map[string]*model.Task{
			"t1": {ID: "t1", Status: model.StatusAssigned, AssignedTo: "worker-1"},
		},
	}
	gctx, err := PopulateClaimState(context.Background(), src, nil, "t1", false)
	require.NoError(t, err)
	assert.True(t, gctx.AlreadyOwned)
}

func TestPopulateClaimState_DedupesFileConflicts(t *testing.T) {
	src := &fakeSource{
		tasks: map[string]*model.Task{
			"t1": {ID: "t1", Status: model.StatusPending},
		},
	}
	conflicts := []ClaimConflict{{OtherTaskID: "t2"}, {OtherTaskID: "t2"}, {OtherTaskID: "t3"}}
	gctx, err := PopulateClaimState(context.Background(), src, conflicts, "t1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t2", "t3"}, gctx.FileConflicts)
}

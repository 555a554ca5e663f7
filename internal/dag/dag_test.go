package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmcp/taskmcp/internal/model"
)

func TestValidateNoCycles_Acyclic(t *testing.T) {
	edges := map[string][]string{
		"b": {"a"},
		"c": {"b"},
	}
	assert.NoError(t, ValidateNoCycles(edges))
}

func TestValidateNoCycles_DetectsCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	err := ValidateNoCycles(edges)
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.GreaterOrEqual(t, len(cycleErr.Path), 3)
}

func TestValidateNoCycles_SelfLoop(t *testing.T) {
	edges := map[string][]string{
		"a": {"a"},
	}
	assert.Error(t, ValidateNoCycles(edges))
}

func TestTopologicalSort_OrdersDependenciesFirst(t *testing.T) {
	edges := map[string][]string{
		"b": {"a"},
		"c": {"b"},
	}
	order, err := TopologicalSort(edges)
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestTopologicalSort_RejectsCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	_, err := TopologicalSort(edges)
	assert.Error(t, err)
}

func TestCanStart(t *testing.T) {
	deps := []*model.Task{{ID: "a"}, {ID: "b"}}

	assert.True(t, CanStart(nil, nil))
	assert.False(t, CanStart(deps, map[string]bool{"a": true}))
	assert.True(t, CanStart(deps, map[string]bool{"a": true, "b": true}))
}

func TestUnlockedBy(t *testing.T) {
	dependents := []*model.Task{
		{ID: "d1", Status: model.StatusBlocked},
		{ID: "d2", Status: model.StatusBlocked},
		{ID: "d3", Status: model.StatusInProgress}, // already moved on, ignored
	}
	depsOf := func(taskID string) []*model.Task {
		switch taskID {
		case "d1":
			return []*model.Task{{ID: "a"}}
		case "d2":
			return []*model.Task{{ID: "a"}, {ID: "b"}}
		default:
			return nil
		}
	}

	unlocked := UnlockedBy(dependents, map[string]bool{"a": true}, depsOf)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "d1", unlocked[0].ID)
}

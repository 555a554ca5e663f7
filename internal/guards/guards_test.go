package guards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskMustExist(t *testing.T) {
	ctx := context.Background()

	passed := TaskMustExist.Check(ctx, &Context{TaskExists: true})
	assert.True(t, passed.Passed)

	failed := TaskMustExist.Check(ctx, &Context{TaskExists: false, TaskID: "t1"})
	assert.False(t, failed.Passed)
	assert.Equal(t, HardBlock, failed.Severity)
}

func TestTaskMustBeClaimable(t *testing.T) {
	ctx := context.Background()

	t.Run("not pending", func(t *testing.T) {
		r := TaskMustBeClaimable.Check(ctx, &Context{TaskExists: true, TaskStatus: "in_progress"})
		assert.False(t, r.Passed)
		assert.Equal(t, HardBlock, r.Severity)
	})

	t.Run("already owned", func(t *testing.T) {
		r := TaskMustBeClaimable.Check(ctx, &Context{TaskExists: true, TaskStatus: "pending", AlreadyOwned: true})
		assert.False(t, r.Passed)
	})

	t.Run("claimable", func(t *testing.T) {
		r := TaskMustBeClaimable.Check(ctx, &Context{TaskExists: true, TaskStatus: "pending"})
		assert.True(t, r.Passed)
	})
}

func TestDependenciesCompleted(t *testing.T) {
	ctx := context.Background()

	ok := DependenciesCompleted.Check(ctx, &Context{})
	assert.True(t, ok.Passed)

	blocked := DependenciesCompleted.Check(ctx, &Context{UnmetDeps: []string{"a", "b"}})
	assert.False(t, blocked.Passed)
	assert.Equal(t, HardBlock, blocked.Severity)
}

func TestNoActiveFileConflicts(t *testing.T) {
	ctx := context.Background()

	ok := NoActiveFileConflicts.Check(ctx, &Context{})
	assert.True(t, ok.Passed)

	soft := NoActiveFileConflicts.Check(ctx, &Context{FileConflicts: []string{"t2"}})
	assert.False(t, soft.Passed)
	assert.Equal(t, SoftBlock, soft.Severity)
}

func TestRunner_HardBlockAlwaysBlocks(t *testing.T) {
	runner := NewRunner()
	gctx := &Context{TaskID: "t1", TaskExists: false}
	outcome := runner.Run(context.Background(), gctx, ClaimTaskGuards())

	assert.True(t, outcome.Blocked)
	require.Len(t, outcome.HardBlocks(), 1)
}

func TestRunner_SoftBlockOverriddenByForce(t *testing.T) {
	runner := NewRunner()
	gctx := &Context{
		TaskID:        "t1",
		TaskExists:    true,
		TaskStatus:    "pending",
		FileConflicts: []string{"t2"},
		Force:         true,
	}
	outcome := runner.Run(context.Background(), gctx, ClaimTaskGuards())

	assert.False(t, outcome.Blocked)
	require.Len(t, outcome.SoftBlocks(), 1)
}

func TestRunner_SoftBlockWithoutForceBlocks(t *testing.T) {
	runner := NewRunner()
	gctx := &Context{
		TaskID:        "t1",
		TaskExists:    true,
		TaskStatus:    "pending",
		FileConflicts: []string{"t2"},
		Force:         false,
	}
	outcome := runner.Run(context.Background(), gctx, ClaimTaskGuards())

	assert.True(t, outcome.Blocked)
}

func TestRunner_AllPass(t *testing.T) {
	runner := NewRunner()
	gctx := &Context{TaskID: "t1", TaskExists: true, TaskStatus: "pending"}
	outcome := runner.Run(context.Background(), gctx, ClaimTaskGuards())

	assert.False(t, outcome.Blocked)
	assert.Empty(t, outcome.Warnings())
	assert.Empty(t, outcome.HardBlocks())
}

func TestOutcome_FormatBlockMessage(t *testing.T) {
	outcome := &Outcome{
		Blocked: true,
		Results: []Result{
			Fail("task_must_exist", HardBlock, "no task with id \"t1\" exists", "check the id"),
		},
	}
	msg := outcome.FormatBlockMessage()
	assert.Contains(t, msg, "HARD_BLOCK")
	assert.Contains(t, msg, "task_must_exist")
}

func TestOutcome_FormatBlockMessage_Unblocked(t *testing.T) {
	outcome := &Outcome{Blocked: false}
	assert.Empty(t, outcome.FormatBlockMessage())
}

func TestOutcome_FormatAdvisoryMessage(t *testing.T) {
	outcome := &Outcome{
		Results: []Result{
			Fail("no_active_file_conflicts", Warning, "overlap with t2", "coordinate"),
		},
	}
	msg := outcome.FormatAdvisoryMessage()
	assert.Contains(t, msg, "Warnings:")
	assert.Contains(t, msg, "no_active_file_conflicts")
}

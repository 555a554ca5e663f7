package gitdriver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a throwaway git repository with one commit on trunk
// and returns a Driver rooted at it. Skips the test if git isn't on PATH.
func initTestRepo(t *testing.T, trunk string) (*Driver, context.Context) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	ctx := context.Background()

	run := func(args ...string) {
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init", "-b", trunk)
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	run("add", "README.md")
	run("commit", "-m", "initial commit")

	return New(dir), ctx
}

func TestCreateAndRemoveWorktree(t *testing.T) {
	d, ctx := initTestRepo(t, "main")

	path, err := d.CreateWorktree(ctx, "task/task-1-abcd", "main", "task-1-abcd")
	require.NoError(t, err)
	assert.DirExists(t, path)
	// The worktree directory is flat (seq+slug), independent of the
	// branch's "task/" prefix — not nested under it.
	assert.Equal(t, filepath.Join(d.RepoRoot(), ".worktrees", "task-1-abcd"), path)

	exists, err := d.WorktreeExists(ctx, path)
	require.NoError(t, err)
	assert.True(t, exists)

	branch, err := d.CurrentBranch(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "task/task-1-abcd", branch)

	require.NoError(t, d.RemoveWorktree(ctx, path))
	exists, err = d.WorktreeExists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, d.DeleteBranch(ctx, "task/task-1-abcd"))
}

func TestOnTrunk(t *testing.T) {
	d, ctx := initTestRepo(t, "main")

	onTrunk, err := d.OnTrunk(ctx, d.RepoRoot(), "main")
	require.NoError(t, err)
	assert.True(t, onTrunk)

	path, err := d.CreateWorktree(ctx, "task/task-2-wxyz", "main", "task-2-wxyz")
	require.NoError(t, err)

	onTrunk, err = d.OnTrunk(ctx, path, "main")
	require.NoError(t, err)
	assert.False(t, onTrunk)
}

func TestMerge_CleanMerge(t *testing.T) {
	d, ctx := initTestRepo(t, "main")

	path, err := d.CreateWorktree(ctx, "task/task-3-clean", "main", "task-3-clean")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "feature.txt"), []byte("new feature\n"), 0o644))
	runIn(t, ctx, path, "add", "feature.txt")
	runIn(t, ctx, path, "commit", "-m", "add feature")

	result, err := d.Merge(ctx, "task/task-3-clean", "main", MergeStrategyMerge)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Conflicts)
	assert.FileExists(t, filepath.Join(d.RepoRoot(), "feature.txt"))
}

func TestMerge_SquashMerge(t *testing.T) {
	d, ctx := initTestRepo(t, "main")

	path, err := d.CreateWorktree(ctx, "task/task-4-squash", "main", "task-4-squash")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "squash.txt"), []byte("squashed\n"), 0o644))
	runIn(t, ctx, path, "add", "squash.txt")
	runIn(t, ctx, path, "commit", "-m", "add squash file")

	result, err := d.Merge(ctx, "task/task-4-squash", "main", MergeStrategySquash)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.FileExists(t, filepath.Join(d.RepoRoot(), "squash.txt"))
}

func TestMerge_Conflict(t *testing.T) {
	d, ctx := initTestRepo(t, "main")

	path, err := d.CreateWorktree(ctx, "task/task-5-conflict", "main", "task-5-conflict")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "README.md"), []byte("branch change\n"), 0o644))
	runIn(t, ctx, path, "add", "README.md")
	runIn(t, ctx, path, "commit", "-m", "branch edits README")

	require.NoError(t, os.WriteFile(filepath.Join(d.RepoRoot(), "README.md"), []byte("trunk change\n"), 0o644))
	runIn(t, ctx, d.RepoRoot(), "add", "README.md")
	runIn(t, ctx, d.RepoRoot(), "commit", "-m", "trunk edits README")

	result, err := d.Merge(ctx, "task/task-5-conflict", "main", MergeStrategyMerge)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Conflicts, "README.md")

	// Merge does not auto-abort; the caller decides.
	require.NoError(t, d.AbortMerge(ctx))
}

func TestTrunkAheadOf(t *testing.T) {
	d, ctx := initTestRepo(t, "main")

	path, err := d.CreateWorktree(ctx, "task/task-6-behind", "main", "task-6-behind")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(d.RepoRoot(), "trunk-only.txt"), []byte("x\n"), 0o644))
	runIn(t, ctx, d.RepoRoot(), "add", "trunk-only.txt")
	runIn(t, ctx, d.RepoRoot(), "commit", "-m", "trunk moves ahead")

	ahead, err := d.TrunkAheadOf(ctx, "task/task-6-behind", "main")
	require.NoError(t, err)
	assert.True(t, ahead)

	_ = path
}

func TestPrune(t *testing.T) {
	d, ctx := initTestRepo(t, "main")
	assert.NoError(t, d.Prune(ctx))
}

func runIn(t *testing.T, ctx context.Context, dir string, args ...string) {
	t.Helper()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

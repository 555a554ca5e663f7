// Package gitdriver wraps the git CLI via os/exec for worktree and branch
// lifecycle management: creating an isolated worktree per task, merging a
// task's branch back to trunk, and cleaning up afterward.
package gitdriver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// MergeStrategy selects how a task branch is folded into trunk.
type MergeStrategy string

const (
	MergeStrategyMerge  MergeStrategy = "merge"
	MergeStrategySquash MergeStrategy = "squash"
)

// Driver runs git commands rooted at a single repository checkout.
type Driver struct {
	repoRoot string
}

// New returns a Driver rooted at repoRoot, which must already be a git
// repository (its top-level directory, not a worktree).
func New(repoRoot string) *Driver {
	return &Driver{repoRoot: repoRoot}
}

// RepoRoot returns the root this Driver operates on.
func (d *Driver) RepoRoot() string { return d.repoRoot }

func (d *Driver) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// WorktreePath returns the conventional worktree location for dir (a flat
// directory name, independent of the branch's "task/" prefix), inside the
// repo root under .worktrees/<dir>.
func (d *Driver) WorktreePath(dir string) string {
	return filepath.Join(d.repoRoot, ".worktrees", dir)
}

// CreateWorktree creates a new branch off trunk and an isolated worktree
// checked out to it at .worktrees/<dir>. dir is a flat directory name (e.g.
// "task-3-crud-api"); branch may itself contain "/" (e.g. "task/task-3-crud-api")
// without affecting the worktree's on-disk location.
func (d *Driver) CreateWorktree(ctx context.Context, branch, trunk, dir string) (string, error) {
	path := d.WorktreePath(dir)
	if _, err := d.run(ctx, d.repoRoot, "worktree", "add", "-b", branch, path, trunk); err != nil {
		return "", fmt.Errorf("creating worktree for %s: %w", branch, err)
	}
	return path, nil
}

// WorktreeExists reports whether git still tracks a worktree at path.
func (d *Driver) WorktreeExists(ctx context.Context, path string) (bool, error) {
	out, err := d.run(ctx, d.repoRoot, "worktree", "list", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("listing worktrees: %w", err)
	}
	abs, _ := filepath.Abs(path)
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "worktree ") {
			wt := strings.TrimPrefix(line, "worktree ")
			if wt == abs || wt == path {
				return true, nil
			}
		}
	}
	return false, nil
}

// RemoveWorktree removes the worktree at path, forcing removal of any
// uncommitted changes left behind.
func (d *Driver) RemoveWorktree(ctx context.Context, path string) error {
	if _, err := d.run(ctx, d.repoRoot, "worktree", "remove", "--force", path); err != nil {
		return fmt.Errorf("removing worktree %s: %w", path, err)
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func (d *Driver) DeleteBranch(ctx context.Context, branch string) error {
	if _, err := d.run(ctx, d.repoRoot, "branch", "-D", branch); err != nil {
		return fmt.Errorf("deleting branch %s: %w", branch, err)
	}
	return nil
}

// Prune removes stale worktree administrative entries left behind by
// worktrees whose directories were deleted out of band. Supplemental to the
// base spec's cleanup flow, invoked periodically by the janitor.
func (d *Driver) Prune(ctx context.Context) error {
	if _, err := d.run(ctx, d.repoRoot, "worktree", "prune"); err != nil {
		return fmt.Errorf("pruning worktrees: %w", err)
	}
	return nil
}

// CurrentBranch returns the checked-out branch name at dir (a worktree path
// or the repo root).
func (d *Driver) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := d.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("getting current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// OnTrunk reports whether dir's checked-out branch is trunk.
func (d *Driver) OnTrunk(ctx context.Context, dir, trunk string) (bool, error) {
	branch, err := d.CurrentBranch(ctx, dir)
	if err != nil {
		return false, err
	}
	return branch == trunk, nil
}

// LatestCommit returns the short SHA of HEAD at dir.
func (d *Driver) LatestCommit(ctx context.Context, dir string) (string, error) {
	out, err := d.run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("getting latest commit: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// TrunkAheadOf reports whether trunk has commits not reachable from branch,
// meaning branch needs a rebase before it can merge cleanly.
func (d *Driver) TrunkAheadOf(ctx context.Context, branch, trunk string) (bool, error) {
	out, err := d.run(ctx, d.repoRoot, "rev-list", "--count", branch+".."+trunk)
	if err != nil {
		return false, fmt.Errorf("checking trunk divergence: %w", err)
	}
	count := strings.TrimSpace(out)
	return count != "" && count != "0", nil
}

// MergeResult reports the outcome of Merge.
type MergeResult struct {
	Success   bool
	Conflicts []string // paths with unmerged entries, set only when !Success
}

// Merge folds branch into trunk using the given strategy, run from the repo
// root (not the worktree, since the worktree is mid-branch). On a conflicting
// merge, Merge does NOT abort — it returns the unmerged paths and leaves the
// repository as git left it, matching the spec's documented behavior that
// conflict recovery (abort or manual resolution) is the caller's call.
func (d *Driver) Merge(ctx context.Context, branch, trunk string, strategy MergeStrategy) (MergeResult, error) {
	if _, err := d.run(ctx, d.repoRoot, "checkout", trunk); err != nil {
		return MergeResult{}, fmt.Errorf("checking out trunk: %w", err)
	}

	var mergeErr error
	switch strategy {
	case MergeStrategySquash:
		_, mergeErr = d.run(ctx, d.repoRoot, "merge", "--squash", branch)
		if mergeErr == nil {
			_, mergeErr = d.run(ctx, d.repoRoot, "commit", "-m", fmt.Sprintf("squash merge %s", branch))
		}
	default:
		_, mergeErr = d.run(ctx, d.repoRoot, "merge", "--no-ff", branch)
	}

	if mergeErr != nil {
		unmerged, listErr := d.unmergedPaths(ctx)
		if listErr == nil && len(unmerged) > 0 {
			return MergeResult{Success: false, Conflicts: unmerged}, nil
		}
		return MergeResult{}, fmt.Errorf("merging %s: %w", branch, mergeErr)
	}
	return MergeResult{Success: true}, nil
}

// AbortMerge aborts an in-progress merge, discarding the conflicted state.
func (d *Driver) AbortMerge(ctx context.Context) error {
	if _, err := d.run(ctx, d.repoRoot, "merge", "--abort"); err != nil {
		return fmt.Errorf("aborting merge: %w", err)
	}
	return nil
}

func (d *Driver) unmergedPaths(ctx context.Context) ([]string, error) {
	out, err := d.run(ctx, d.repoRoot, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskmcp/taskmcp/internal/model"
)

func TestPatternsOverlap(t *testing.T) {
	cases := []struct {
		name     string
		a, b     string
		wantBool bool
	}{
		{"identical", "internal/store", "internal/store", true},
		{"a contains b", "internal/", "internal/store/store.go", true},
		{"b contains a", "internal/store/store.go", "internal/", true},
		{"trailing star normalizes", "internal/store/*", "internal/store/store.go", true},
		{"trailing doublestar normalizes", "internal/store/**", "internal/store/sub/x.go", true},
		{"disjoint", "internal/store", "internal/dag", false},
		{"root owns everything", "", "internal/anything", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.wantBool, PatternsOverlap(c.a, c.b))
		})
	}
}

func TestFindPatternConflicts(t *testing.T) {
	existing := []model.TaskFileOwnership{
		{TaskID: "t1", FilePattern: "internal/store/", OwnershipType: "exclusive"},
		{TaskID: "t2", FilePattern: "internal/dag/", OwnershipType: "shared"},
	}

	t.Run("exclusive overlap conflicts", func(t *testing.T) {
		proposed := []model.TaskFileOwnership{
			{TaskID: "t3", FilePattern: "internal/store/store.go", OwnershipType: "exclusive"},
		}
		conflicts := FindPatternConflicts(proposed, existing)
		assert.Len(t, conflicts, 1)
		assert.Equal(t, "t1", conflicts[0].OtherTaskID)
	})

	t.Run("shared overlap does not conflict", func(t *testing.T) {
		proposed := []model.TaskFileOwnership{
			{TaskID: "t3", FilePattern: "internal/dag/dag.go", OwnershipType: "shared"},
		}
		conflicts := FindPatternConflicts(proposed, existing)
		assert.Empty(t, conflicts)
	})

	t.Run("same task id is skipped", func(t *testing.T) {
		proposed := []model.TaskFileOwnership{
			{TaskID: "t1", FilePattern: "internal/store/store.go", OwnershipType: "exclusive"},
		}
		conflicts := FindPatternConflicts(proposed, existing)
		assert.Empty(t, conflicts)
	})

	t.Run("disjoint patterns do not conflict", func(t *testing.T) {
		proposed := []model.TaskFileOwnership{
			{TaskID: "t3", FilePattern: "internal/mcp/", OwnershipType: "exclusive"},
		}
		conflicts := FindPatternConflicts(proposed, existing)
		assert.Empty(t, conflicts)
	})
}

func TestFileMatchesPattern(t *testing.T) {
	assert.True(t, FileMatchesPattern("internal/store/store.go", "internal/store/store.go"))
	assert.True(t, FileMatchesPattern("internal/store/store.go", "internal/store"))
	assert.True(t, FileMatchesPattern("internal/store/store.go", "internal/store/*"))
	assert.True(t, FileMatchesPattern("anything/at/all.go", ""))
	assert.False(t, FileMatchesPattern("internal/dag/dag.go", "internal/store"))
}

func TestCheckFileConflicts(t *testing.T) {
	others := []OtherTaskPatterns{
		{
			TaskID: "t1",
			Patterns: []model.TaskFileOwnership{
				{TaskID: "t1", FilePattern: "internal/store/", OwnershipType: "exclusive"},
			},
		},
		{
			TaskID: "t2",
			Patterns: []model.TaskFileOwnership{
				{TaskID: "t2", FilePattern: "internal/dag/", OwnershipType: "shared"},
			},
		},
	}

	t.Run("exclusive pattern match produces a conflict", func(t *testing.T) {
		conflicts := CheckFileConflicts([]string{"internal/store/store.go"}, others)
		assert.Len(t, conflicts, 1)
		assert.Equal(t, "t1", conflicts[0].OtherTaskID)
		assert.Equal(t, "internal/store/store.go", conflicts[0].File)
	})

	t.Run("shared pattern never conflicts", func(t *testing.T) {
		conflicts := CheckFileConflicts([]string{"internal/dag/dag.go"}, others)
		assert.Empty(t, conflicts)
	})

	t.Run("unmatched file produces no conflict", func(t *testing.T) {
		conflicts := CheckFileConflicts([]string{"internal/mcp/server.go"}, others)
		assert.Empty(t, conflicts)
	})

	t.Run("multiple changed files each checked independently", func(t *testing.T) {
		conflicts := CheckFileConflicts([]string{"internal/store/store.go", "internal/mcp/server.go"}, others)
		assert.Len(t, conflicts, 1)
		assert.Equal(t, "internal/store/store.go", conflicts[0].File)
	})
}

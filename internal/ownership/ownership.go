// Package ownership implements file-ownership conflict detection between
// tasks using directory-prefix matching. This is deliberately coarser than a
// real glob engine: patterns are compared as path prefixes, so it reports
// every overlap a glob engine would and some it would not (e.g. "src/*.ts"
// overlaps "src/foo/bar.ts"), preferring a spurious warning to a missed one.
package ownership

import (
	"strings"

	"github.com/taskmcp/taskmcp/internal/model"
)

// normalize strips a trailing "/*" or "/**" suffix and any trailing slash so
// "src/api/*", "src/api/**", and "src/api/" all collapse to the same prefix.
func normalize(pattern string) string {
	p := pattern
	p = strings.TrimSuffix(p, "**")
	p = strings.TrimSuffix(p, "*")
	p = strings.TrimSuffix(p, "/")
	return p
}

// PatternsOverlap reports whether two declared patterns could match a
// common file, by prefix containment in either direction.
func PatternsOverlap(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return true // an empty/root pattern owns everything
	}
	return strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na)
}

// Conflict pairs a task's pattern with another task that declared an
// overlapping pattern, where at least one of the two is exclusive.
type Conflict struct {
	OtherTaskID   string
	Pattern       string
	OtherPattern  string
	OwnershipType model.OwnershipType
}

// FindPatternConflicts compares one task's proposed ownership set against
// another task's existing declarations, reporting overlaps where either side
// is exclusive. Two tasks both declaring shared ownership of overlapping
// paths is not a conflict.
func FindPatternConflicts(proposed []model.TaskFileOwnership, existing []model.TaskFileOwnership) []Conflict {
	var conflicts []Conflict
	for _, p := range proposed {
		for _, e := range existing {
			if p.TaskID == e.TaskID {
				continue
			}
			if !PatternsOverlap(p.FilePattern, e.FilePattern) {
				continue
			}
			if p.OwnershipType == model.OwnershipShared && e.OwnershipType == model.OwnershipShared {
				continue
			}
			conflicts = append(conflicts, Conflict{
				OtherTaskID:  e.TaskID,
				Pattern:      p.FilePattern,
				OtherPattern: e.FilePattern,
				OwnershipType: e.OwnershipType,
			})
		}
	}
	return conflicts
}

// FileMatchesPattern reports whether file begins with pattern's normalized
// prefix, or equals pattern exactly.
func FileMatchesPattern(file, pattern string) bool {
	if file == pattern {
		return true
	}
	n := normalize(pattern)
	if n == "" {
		return true
	}
	return strings.HasPrefix(file, n)
}

// OtherTaskPatterns is one other task's declared file ownership, the unit
// check_file_conflicts compares changed files against.
type OtherTaskPatterns struct {
	TaskID   string
	Patterns []model.TaskFileOwnership
}

// FileConflict is a changed file matching another task's exclusive pattern.
type FileConflict struct {
	File        string
	OtherTaskID string
	Pattern     string
}

// CheckFileConflicts returns one FileConflict per (file, other task) pair
// where the file matches an exclusive pattern that task declared.
func CheckFileConflicts(changedFiles []string, others []OtherTaskPatterns) []FileConflict {
	var conflicts []FileConflict
	for _, file := range changedFiles {
		for _, other := range others {
			for _, p := range other.Patterns {
				if p.OwnershipType != model.OwnershipExclusive {
					continue
				}
				if FileMatchesPattern(file, p.FilePattern) {
					conflicts = append(conflicts, FileConflict{File: file, OtherTaskID: other.TaskID, Pattern: p.FilePattern})
				}
			}
		}
	}
	return conflicts
}

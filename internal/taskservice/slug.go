package taskservice

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
)

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases title, replaces runs of non-alphanumeric characters with a
// single hyphen, trims leading/trailing hyphens, and truncates to maxLen.
func Slug(title string, maxLen int) string {
	s := strings.ToLower(title)
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = s[:maxLen]
		s = strings.TrimRight(s, "-")
	}
	if s == "" {
		s = "task"
	}
	return s
}

// BranchName returns the task's branch name per the spec's naming convention.
func BranchName(sequence int, title string) string {
	return fmt.Sprintf("task/task-%d-%s", sequence, Slug(title, 30))
}

// WorktreeDirName returns the worktree directory name (relative to
// {repo_root}/.worktrees/) for a task.
func WorktreeDirName(sequence int, title string) string {
	return fmt.Sprintf("task-%d-%s", sequence, Slug(title, 30))
}

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// GenerateAgentToken returns an opaque 8-character Crockford base32 token
// used as a generated agent identifier when claim_task is called without one.
func GenerateAgentToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 8)
	for i, b := range buf {
		out[i] = crockford[int(b)%len(crockford)]
	}
	return string(out), nil
}

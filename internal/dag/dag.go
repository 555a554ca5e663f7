// Package dag provides dependency-graph analysis over a task group: cycle
// detection with path reconstruction, topological ordering, and readiness
// propagation (can-start / unlocked-by).
package dag

import (
	"context"
	"fmt"

	"github.com/gammazero/toposort"

	"github.com/taskmcp/taskmcp/internal/model"
)

// CycleError reports a dependency cycle as the ordered sequence of task ids
// that form it, starting and ending on the same id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %v", e.Path)
}

type color int

const (
	white color = iota
	gray
	black
)

// ValidateNoCycles walks the edges (task_id -> depends_on ids) with DFS
// coloring and parent pointers, returning a *CycleError naming the exact
// cycle path the moment a back-edge into a gray node is found. toposort.Sort
// below would only report that a cycle exists, not where, so this is
// hand-rolled rather than grounded on that library.
func ValidateNoCycles(edges map[string][]string) error {
	colors := make(map[string]color)
	parent := make(map[string]string)

	var order []string
	for node := range edges {
		order = append(order, node)
	}

	var visit func(node string) error
	visit = func(node string) error {
		colors[node] = gray
		for _, dep := range edges[node] {
			switch colors[dep] {
			case white:
				parent[dep] = node
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				return &CycleError{Path: reconstructCycle(parent, node, dep)}
			case black:
				// already fully explored, no cycle through here
			}
		}
		colors[node] = black
		return nil
	}

	for _, node := range order {
		if colors[node] == white {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

func reconstructCycle(parent map[string]string, from, to string) []string {
	path := []string{from}
	cur := from
	for cur != to {
		p, ok := parent[cur]
		if !ok {
			break
		}
		path = append(path, p)
		cur = p
	}
	// path was built walking parents from "from" back to "to"; reverse it so
	// it reads start -> ... -> back to start, matching the edge direction.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return append(path, to)
}

// TopologicalSort returns task ids ordered so every task follows everything
// it depends on, using gammazero/toposort the way the aristath-orchestrator
// scheduler does.
func TopologicalSort(edges map[string][]string) ([]string, error) {
	var tsEdges []toposort.Edge
	nodes := map[string]bool{}
	for task, deps := range edges {
		nodes[task] = true
		for _, dep := range deps {
			nodes[dep] = true
			tsEdges = append(tsEdges, toposort.Edge{dep, task})
		}
	}
	if len(tsEdges) == 0 {
		out := make([]string, 0, len(nodes))
		for n := range nodes {
			out = append(out, n)
		}
		return out, nil
	}

	sorted, err := toposort.Toposort(tsEdges)
	if err != nil {
		return nil, fmt.Errorf("topological sort: %w", err)
	}
	out := make([]string, 0, len(nodes))
	seen := make(map[string]bool, len(sorted))
	for _, v := range sorted {
		seen[v.(string)] = true
		out = append(out, v.(string))
	}
	// Tasks with no edges at all never reach the library; any position is valid for them.
	for n := range nodes {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

// edgeSource is the subset of store.Store the DAG engine needs, kept
// narrow so it can be satisfied by either *store.Store or *store.Tx without
// importing store (which would create an import cycle, since taskservice
// wires both together).
type edgeSource interface {
	GetAllDependencyEdges(ctx context.Context, groupID string) (map[string][]string, error)
}

// CanStart reports whether every dependency's id is a member of completedSet.
// A task with no prerequisites is always startable. completedSet need not
// mean TaskStatus == completed literally — complete_task and merge_task each
// define their own notion of "satisfied" (e.g. completed-or-in_review) when
// computing what they unlock.
func CanStart(deps []*model.Task, completedSet map[string]bool) bool {
	for _, d := range deps {
		if !completedSet[d.ID] {
			return false
		}
	}
	return true
}

// UnlockedBy returns, from a set of candidate dependents, those whose entire
// dependency set is satisfied by completedSet. Only candidates currently
// blocked or pending are considered — everything else has already moved on.
func UnlockedBy(dependents []*model.Task, completedSet map[string]bool, dependenciesOf func(taskID string) []*model.Task) []*model.Task {
	var unlocked []*model.Task
	for _, t := range dependents {
		if t.Status != model.StatusBlocked && t.Status != model.StatusPending {
			continue
		}
		if CanStart(dependenciesOf(t.ID), completedSet) {
			unlocked = append(unlocked, t)
		}
	}
	return unlocked
}

// LoadEdges is a convenience wrapper so callers holding either a Store or a
// Tx can fetch a group's edge map without importing store directly here.
func LoadEdges(ctx context.Context, src edgeSource, groupID string) (map[string][]string, error) {
	return src.GetAllDependencyEdges(ctx, groupID)
}

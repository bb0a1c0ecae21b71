// Package graph derives dependency relationships between issues: edge
// maintenance with cycle prevention, ready/blocked work queries, and the
// recursive dependency tree.
//
// Edges live denormalized on each issue (its dependencies array); the graph
// is rebuilt from a store snapshot on every query rather than maintained as
// a separate index, so it can never drift from the files on disk.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"microbeads/internal/issue"
	"microbeads/internal/store"
)

// ErrCycle is returned when adding a dependency would make the graph cyclic.
var ErrCycle = errors.New("dependency cycle")

// AddDependency records that parent depends on child (child blocks parent).
// The edge is rejected if it is a self-reference or if the child already
// depends, transitively, on the parent. On success the parent issue is saved
// with a history entry and returned.
func AddDependency(s *store.Store, parentQuery, childQuery string) (*issue.Issue, error) {
	parentID, err := s.Resolve(parentQuery)
	if err != nil {
		return nil, err
	}
	childID, err := s.Resolve(childQuery)
	if err != nil {
		return nil, err
	}
	if parentID == childID {
		return nil, fmt.Errorf("%w: issue %s cannot depend on itself", issue.ErrValidation, parentID)
	}

	parent, err := s.Get(parentID)
	if err != nil {
		return nil, err
	}
	parent = issue.Clone(parent)

	if parent.HasDependency(childID) {
		return parent, nil
	}

	all, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	if reachable(all, childID, parentID) {
		return nil, fmt.Errorf("%w: %s already depends on %s", ErrCycle, childID, parentID)
	}

	now := issue.FormatTime(s.Clock().Now())
	parent.Dependencies = append(parent.Dependencies, childID)
	sort.Strings(parent.Dependencies)
	parent.Track("dependencies", "", "+"+childID, now)
	parent.UpdatedAt = now

	if err := s.Save(parent); err != nil {
		return nil, err
	}
	return parent, nil
}

// RemoveDependency deletes the parent->child edge. Removing an edge that does
// not exist is a no-op; the parent is returned unchanged.
func RemoveDependency(s *store.Store, parentQuery, childQuery string) (*issue.Issue, error) {
	parentID, err := s.Resolve(parentQuery)
	if err != nil {
		return nil, err
	}
	childID, err := s.Resolve(childQuery)
	if err != nil {
		return nil, err
	}

	parent, err := s.Get(parentID)
	if err != nil {
		return nil, err
	}
	if !parent.HasDependency(childID) {
		return parent, nil
	}
	parent = issue.Clone(parent)

	deps := make([]string, 0, len(parent.Dependencies)-1)
	for _, dep := range parent.Dependencies {
		if dep != childID {
			deps = append(deps, dep)
		}
	}
	parent.Dependencies = deps

	now := issue.FormatTime(s.Clock().Now())
	parent.Track("dependencies", "", "-"+childID, now)
	parent.UpdatedAt = now

	if err := s.Save(parent); err != nil {
		return nil, err
	}
	return parent, nil
}

// reachable reports whether target can be reached from startID by following
// dependency edges. Iterative depth-first with a visited set; dangling edges
// are ignored.
func reachable(all map[string]*issue.Issue, startID, target string) bool {
	visited := make(map[string]bool)
	stack := []string{startID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		iss, ok := all[id]
		if !ok {
			continue
		}
		stack = append(stack, iss.Dependencies...)
	}
	return false
}

// OpenBlockers returns the dependencies of iss that are not closed, sorted by
// (priority, created_at). Dangling dependency IDs are skipped; the doctor
// reports those.
func OpenBlockers(iss *issue.Issue, all map[string]*issue.Issue) []*issue.Issue {
	var blockers []*issue.Issue
	for _, depID := range iss.Dependencies {
		dep, ok := all[depID]
		if !ok {
			continue
		}
		if dep.Status != issue.StatusClosed {
			blockers = append(blockers, dep)
		}
	}
	sortIssues(blockers)
	return blockers
}

// Ready returns open and in-progress issues whose every dependency is
// closed, sorted by (priority, created_at). These are the items a worker can
// pick up or keep working on.
func Ready(s *store.Store) ([]*issue.Issue, error) {
	all, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	var ready []*issue.Issue
	for _, iss := range all {
		if iss.Status != issue.StatusOpen && iss.Status != issue.StatusInProgress {
			continue
		}
		if len(OpenBlockers(iss, all)) == 0 {
			ready = append(ready, iss)
		}
	}
	sortIssues(ready)
	return ready, nil
}

// BlockedIssue pairs a blocked issue with the open dependencies standing in
// its way.
type BlockedIssue struct {
	Issue    *issue.Issue
	Blockers []*issue.Issue
}

// Blocked returns every non-closed issue that has at least one open blocker,
// sorted by (priority, created_at).
func Blocked(s *store.Store) ([]BlockedIssue, error) {
	all, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	var blocked []BlockedIssue
	for _, iss := range all {
		if iss.Status == issue.StatusClosed {
			continue
		}
		blockers := OpenBlockers(iss, all)
		if len(blockers) > 0 {
			blocked = append(blocked, BlockedIssue{Issue: iss, Blockers: blockers})
		}
	}
	sort.Slice(blocked, func(i, j int) bool {
		a, b := blocked[i].Issue, blocked[j].Issue
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.CreatedAt < b.CreatedAt
	})
	return blocked, nil
}

func sortIssues(issues []*issue.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Priority != issues[j].Priority {
			return issues[i].Priority < issues[j].Priority
		}
		return issues[i].CreatedAt < issues[j].CreatedAt
	})
}

// Package doctor audits the issue tree for consistency problems and,
// when asked, repairs the ones with an unambiguous fix. Structural problems
// with no safe automatic repair (corrupt files, dependency cycles) are
// reported only.
package doctor

import (
	"fmt"
	"sort"

	"microbeads/internal/graph"
	"microbeads/internal/issue"
	"microbeads/internal/store"
)

// Problem is one detected inconsistency.
type Problem struct {
	IssueID string `json:"issue_id,omitempty"`
	Check   string `json:"check"`
	Message string `json:"message"`
	Fixable bool   `json:"fixable"`
}

// Result is the outcome of one audit run.
type Result struct {
	Problems    []Problem `json:"problems"`
	Fixed       []string  `json:"fixed"`
	TotalIssues int       `json:"total_issues"`
}

// OK reports whether the audit found nothing wrong.
func (r *Result) OK() bool {
	return len(r.Problems) == 0
}

// Run audits every issue. With fix set, repairable problems are corrected in
// place and recorded in Fixed; the returned Problems still lists everything
// found, so the caller sees the full picture either way.
func Run(s *store.Store, fix bool) (*Result, error) {
	res := &Result{Problems: []Problem{}, Fixed: []string{}}

	corrupt, err := s.CorruptFiles()
	if err != nil {
		return nil, err
	}
	for _, path := range corrupt {
		res.Problems = append(res.Problems, Problem{
			Check:   "corrupt_file",
			Message: fmt.Sprintf("issue file %s cannot be parsed", path),
		})
	}

	if err := checkDuplicates(s, fix, res); err != nil {
		return nil, err
	}

	all, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	res.TotalIssues = len(all)

	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := issue.FormatTime(s.Clock().Now())
	for _, id := range ids {
		if err := checkIssue(s, all, all[id], fix, now, res); err != nil {
			return nil, err
		}
	}

	reportCycles(all, ids, res)
	return res, nil
}

// checkDuplicates resolves IDs present in both partitions, the leftover of a
// crash mid partition-crossing. The copy with the later updated_at wins; a
// re-save relocates it and drops the stale twin.
func checkDuplicates(s *store.Store, fix bool, res *Result) error {
	dups, err := s.Duplicates()
	if err != nil {
		return err
	}
	for _, id := range dups {
		res.Problems = append(res.Problems, Problem{
			IssueID: id,
			Check:   "duplicate",
			Message: fmt.Sprintf("issue %s exists in both open and closed partitions", id),
			Fixable: true,
		})
		if !fix {
			continue
		}
		open, openErr := s.GetFromPartition(id, store.PartitionOpen)
		closed, closedErr := s.GetFromPartition(id, store.PartitionClosed)
		var keep *issue.Issue
		switch {
		case openErr == nil && closedErr == nil:
			keep = open
			if closed.UpdatedAt > open.UpdatedAt {
				keep = closed
			}
		case openErr == nil:
			keep = open
		case closedErr == nil:
			keep = closed
		default:
			continue // both corrupt, reported above
		}
		if err := s.Save(issue.Clone(keep)); err != nil {
			return err
		}
		res.Fixed = append(res.Fixed, fmt.Sprintf("%s: kept the newer copy, removed the duplicate", id))
	}
	return nil
}

func checkIssue(s *store.Store, all map[string]*issue.Issue, iss *issue.Issue, fix bool, now string, res *Result) error {
	edited := issue.Clone(iss)
	dirty := false

	// Dependencies pointing at issues that do not exist.
	var orphans []string
	kept := make([]string, 0, len(edited.Dependencies))
	for _, depID := range edited.Dependencies {
		if _, ok := all[depID]; ok {
			kept = append(kept, depID)
		} else {
			orphans = append(orphans, depID)
		}
	}
	for _, depID := range orphans {
		res.Problems = append(res.Problems, Problem{
			IssueID: iss.ID,
			Check:   "orphaned_dependency",
			Message: fmt.Sprintf("issue %s depends on %s, which does not exist", iss.ID, depID),
			Fixable: true,
		})
	}
	if fix && len(orphans) > 0 {
		edited.Dependencies = kept
		dirty = true
		res.Fixed = append(res.Fixed, fmt.Sprintf("%s: removed %d orphaned dependencies", iss.ID, len(orphans)))
	}

	if !edited.Status.Valid() {
		res.Problems = append(res.Problems, Problem{
			IssueID: iss.ID,
			Check:   "invalid_status",
			Message: fmt.Sprintf("issue %s has invalid status %q", iss.ID, edited.Status),
			Fixable: true,
		})
		if fix {
			edited.Status = issue.StatusOpen
			dirty = true
			res.Fixed = append(res.Fixed, fmt.Sprintf("%s: reset invalid status to open", iss.ID))
		}
	}

	if !edited.Type.Valid() {
		res.Problems = append(res.Problems, Problem{
			IssueID: iss.ID,
			Check:   "invalid_type",
			Message: fmt.Sprintf("issue %s has invalid type %q", iss.ID, edited.Type),
			Fixable: true,
		})
		if fix {
			edited.Type = issue.TypeTask
			dirty = true
			res.Fixed = append(res.Fixed, fmt.Sprintf("%s: reset invalid type to task", iss.ID))
		}
	}

	if !edited.Priority.Valid() {
		res.Problems = append(res.Problems, Problem{
			IssueID: iss.ID,
			Check:   "invalid_priority",
			Message: fmt.Sprintf("issue %s has out-of-range priority %d", iss.ID, edited.Priority),
			Fixable: true,
		})
		if fix {
			edited.Priority = issue.PriorityMedium
			dirty = true
			res.Fixed = append(res.Fixed, fmt.Sprintf("%s: reset priority to %d", iss.ID, issue.PriorityMedium))
		}
	}

	// A blocked status with nothing actually blocking is stale state.
	if edited.Status == issue.StatusBlocked && len(graph.OpenBlockers(edited, all)) == 0 {
		res.Problems = append(res.Problems, Problem{
			IssueID: iss.ID,
			Check:   "stale_blocked",
			Message: fmt.Sprintf("issue %s is marked blocked but has no open blockers", iss.ID),
			Fixable: true,
		})
		if fix {
			edited.Status = issue.StatusOpen
			dirty = true
			res.Fixed = append(res.Fixed, fmt.Sprintf("%s: unblocked, no open blockers remain", iss.ID))
		}
	}

	if dirty {
		edited.UpdatedAt = now
		if err := s.Save(edited); err != nil {
			return err
		}
		all[iss.ID] = edited
	}
	return nil
}

// reportCycles runs a three-color depth-first search over the whole graph
// and reports each cycle once, anchored at the node where the walk closed
// the loop. Cycles are never auto-fixed; which edge to break is a judgment
// call.
func reportCycles(all map[string]*issue.Issue, ids []string, res *Result) {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(all))

	var visit func(id string) []string
	visit = func(id string) []string {
		iss, ok := all[id]
		if !ok {
			return nil
		}
		color[id] = gray
		for _, depID := range iss.Dependencies {
			switch color[depID] {
			case gray:
				return []string{depID, id}
			case white:
				if path := visit(depID); path != nil {
					if path[0] != path[len(path)-1] {
						path = append(path, id)
					}
					return path
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range ids {
		if color[id] != white {
			continue
		}
		if path := visit(id); path != nil {
			// Reverse into dependency order for the report.
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			res.Problems = append(res.Problems, Problem{
				IssueID: path[0],
				Check:   "cycle",
				Message: fmt.Sprintf("dependency cycle: %s", joinArrow(path)),
			})
			// Mark the rest so one broken region yields one report.
			for _, p := range path {
				color[p] = black
			}
		}
	}
}

func joinArrow(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

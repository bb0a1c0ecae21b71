package graph

import (
	"errors"
	"strings"
	"testing"
	"time"

	"microbeads/internal/cache"
	"microbeads/internal/clock"
	"microbeads/internal/issue"
	"microbeads/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(t.TempDir(), clock.Fixed{T: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}, cache.New())
	if err := s.Init("mb"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func mustCreate(t *testing.T, s *store.Store, title string, p issue.Priority) *issue.Issue {
	t.Helper()
	iss, err := s.Create(store.CreateInput{Title: title, Priority: p})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	if err := s.Save(iss); err != nil {
		t.Fatalf("Save(%q): %v", title, err)
	}
	return iss
}

func TestAddDependency(t *testing.T) {
	s := testStore(t)
	parent := mustCreate(t, s, "parent work", issue.PriorityMedium)
	child := mustCreate(t, s, "child work", issue.PriorityMedium)

	updated, err := AddDependency(s, parent.ID, child.ID)
	if err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if !updated.HasDependency(child.ID) {
		t.Error("edge not recorded")
	}
	if len(updated.History) != 1 || updated.History[0].New != "+"+child.ID {
		t.Errorf("edge not tracked in history: %+v", updated.History)
	}

	// Persisted, not just returned.
	got, err := s.Get(parent.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.HasDependency(child.ID) {
		t.Error("edge not persisted")
	}
}

func TestAddDependencyIdempotent(t *testing.T) {
	s := testStore(t)
	parent := mustCreate(t, s, "parent work", issue.PriorityMedium)
	child := mustCreate(t, s, "child work", issue.PriorityMedium)

	if _, err := AddDependency(s, parent.ID, child.ID); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	updated, err := AddDependency(s, parent.ID, child.ID)
	if err != nil {
		t.Fatalf("second AddDependency: %v", err)
	}
	if len(updated.Dependencies) != 1 {
		t.Errorf("duplicate edge recorded: %v", updated.Dependencies)
	}
}

func TestAddDependencySelfReference(t *testing.T) {
	s := testStore(t)
	iss := mustCreate(t, s, "lonely", issue.PriorityMedium)

	if _, err := AddDependency(s, iss.ID, iss.ID); !errors.Is(err, issue.ErrValidation) {
		t.Errorf("want ErrValidation for self-reference, got %v", err)
	}
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	s := testStore(t)
	a := mustCreate(t, s, "alpha", issue.PriorityMedium)
	b := mustCreate(t, s, "beta", issue.PriorityMedium)
	c := mustCreate(t, s, "gamma", issue.PriorityMedium)

	if _, err := AddDependency(s, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := AddDependency(s, b.ID, c.ID); err != nil {
		t.Fatal(err)
	}

	_, err := AddDependency(s, c.ID, a.ID)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("want ErrCycle, got %v", err)
	}

	// The rejected edge must leave c untouched.
	got, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Dependencies) != 0 {
		t.Errorf("rejected edge was persisted: %v", got.Dependencies)
	}
}

func TestRemoveDependency(t *testing.T) {
	s := testStore(t)
	parent := mustCreate(t, s, "parent work", issue.PriorityMedium)
	child := mustCreate(t, s, "child work", issue.PriorityMedium)

	if _, err := AddDependency(s, parent.ID, child.ID); err != nil {
		t.Fatal(err)
	}
	updated, err := RemoveDependency(s, parent.ID, child.ID)
	if err != nil {
		t.Fatalf("RemoveDependency: %v", err)
	}
	if updated.HasDependency(child.ID) {
		t.Error("edge still present")
	}

	// Removing again is a no-op.
	if _, err := RemoveDependency(s, parent.ID, child.ID); err != nil {
		t.Errorf("removing a missing edge should not error: %v", err)
	}
}

func TestReadyAndBlockedPartition(t *testing.T) {
	s := testStore(t)
	parent := mustCreate(t, s, "needs the child", issue.PriorityHigh)
	child := mustCreate(t, s, "prerequisite", issue.PriorityMedium)
	free := mustCreate(t, s, "unrelated", issue.PriorityLow)

	if _, err := AddDependency(s, parent.ID, child.ID); err != nil {
		t.Fatal(err)
	}

	ready, err := Ready(s)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	readyIDs := make(map[string]bool)
	for _, iss := range ready {
		readyIDs[iss.ID] = true
	}
	if !readyIDs[child.ID] || !readyIDs[free.ID] || readyIDs[parent.ID] {
		t.Errorf("ready = %v", readyIDs)
	}

	blocked, err := Blocked(s)
	if err != nil {
		t.Fatalf("Blocked: %v", err)
	}
	if len(blocked) != 1 || blocked[0].Issue.ID != parent.ID {
		t.Fatalf("blocked = %+v", blocked)
	}
	if len(blocked[0].Blockers) != 1 || blocked[0].Blockers[0].ID != child.ID {
		t.Errorf("blockers = %+v", blocked[0].Blockers)
	}

	// No issue is in both sets.
	for _, b := range blocked {
		if readyIDs[b.Issue.ID] {
			t.Errorf("%s is both ready and blocked", b.Issue.ID)
		}
	}
}

func TestClosingBlockerFreesParent(t *testing.T) {
	s := testStore(t)
	parent := mustCreate(t, s, "needs the child", issue.PriorityMedium)
	child := mustCreate(t, s, "prerequisite", issue.PriorityMedium)
	if _, err := AddDependency(s, parent.ID, child.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Close(child.ID, "done"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ready, err := Ready(s)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != parent.ID {
		t.Errorf("closing the only blocker should free the parent, ready = %+v", ready)
	}

	blocked, err := Blocked(s)
	if err != nil {
		t.Fatalf("Blocked: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("nothing should be blocked, got %+v", blocked)
	}
}

func TestReadyIncludesInProgress(t *testing.T) {
	s := testStore(t)
	iss := mustCreate(t, s, "already started", issue.PriorityMedium)

	st := issue.StatusInProgress
	if _, err := s.Update(iss.ID, store.Changes{Status: &st}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ready, err := Ready(s)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != iss.ID {
		t.Errorf("in-progress issue with no blockers should be ready: %+v", ready)
	}

	// A stale blocked status is never ready; the doctor handles it.
	sb := issue.StatusBlocked
	if _, err := s.Update(iss.ID, store.Changes{Status: &sb}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ready, err = Ready(s)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 0 {
		t.Errorf("blocked-status issue must not be ready: %+v", ready)
	}
}

func TestReadySortOrder(t *testing.T) {
	s := testStore(t)
	low := mustCreate(t, s, "low urgency", issue.PriorityBacklog)
	high := mustCreate(t, s, "high urgency", issue.PriorityCritical)

	ready, err := Ready(s)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if len(ready) != 2 || ready[0].ID != high.ID || ready[1].ID != low.ID {
		t.Errorf("ready not sorted by priority: %+v", ready)
	}
}

func TestDependencyTreeDiamond(t *testing.T) {
	s := testStore(t)
	top := mustCreate(t, s, "top", issue.PriorityMedium)
	left := mustCreate(t, s, "left", issue.PriorityMedium)
	right := mustCreate(t, s, "right", issue.PriorityMedium)
	bottom := mustCreate(t, s, "bottom", issue.PriorityMedium)

	for _, edge := range [][2]string{
		{top.ID, left.ID}, {top.ID, right.ID},
		{left.ID, bottom.ID}, {right.ID, bottom.ID},
	} {
		if _, err := AddDependency(s, edge[0], edge[1]); err != nil {
			t.Fatal(err)
		}
	}

	tree, err := DependencyTree(s, top.ID)
	if err != nil {
		t.Fatalf("DependencyTree: %v", err)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("top should have 2 children, got %d", len(tree.Children))
	}
	// The shared bottom node expands once and is reused, not cloned.
	if tree.Children[0].Children[0] != tree.Children[1].Children[0] {
		t.Error("diamond bottom should be memoized, not re-expanded")
	}
}

func TestDependencyTreeMissingLeaf(t *testing.T) {
	s := testStore(t)
	parent := mustCreate(t, s, "has dangling dep", issue.PriorityMedium)

	edited := issue.Clone(parent)
	edited.Dependencies = []string{"mb-gone0000"}
	if err := s.Save(edited); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tree, err := DependencyTree(s, parent.ID)
	if err != nil {
		t.Fatalf("DependencyTree: %v", err)
	}
	if len(tree.Children) != 1 || !tree.Children[0].Missing {
		t.Errorf("dangling dep should render as missing leaf: %+v", tree.Children)
	}

	var buf strings.Builder
	tree.Render(&buf)
	if !strings.Contains(buf.String(), "(not found)") {
		t.Errorf("render output missing the not-found marker:\n%s", buf.String())
	}
}

func TestDependencyTreeCycleLeaf(t *testing.T) {
	s := testStore(t)
	a := mustCreate(t, s, "alpha", issue.PriorityMedium)
	b := mustCreate(t, s, "beta", issue.PriorityMedium)

	// Bypass AddDependency's cycle gate by writing the edges directly, the
	// way a bad merge could.
	for _, edge := range [][2]string{{a.ID, b.ID}, {b.ID, a.ID}} {
		iss, err := s.Get(edge[0])
		if err != nil {
			t.Fatal(err)
		}
		iss = issue.Clone(iss)
		iss.Dependencies = []string{edge[1]}
		if err := s.Save(iss); err != nil {
			t.Fatal(err)
		}
	}

	tree, err := DependencyTree(s, a.ID)
	if err != nil {
		t.Fatalf("DependencyTree: %v", err)
	}
	leaf := tree.Children[0].Children[0]
	if !leaf.Cycle || leaf.ID != a.ID {
		t.Errorf("cycle should truncate at the repeated node: %+v", leaf)
	}

	var buf strings.Builder
	tree.Render(&buf)
	if !strings.Contains(buf.String(), "(cycle)") {
		t.Errorf("render output missing the cycle marker:\n%s", buf.String())
	}
}

func TestOpenBlockersSkipsDangling(t *testing.T) {
	s := testStore(t)
	parent := mustCreate(t, s, "half real deps", issue.PriorityMedium)
	child := mustCreate(t, s, "real dep", issue.PriorityMedium)

	edited := issue.Clone(parent)
	edited.Dependencies = []string{child.ID, "mb-gone0000"}
	if err := s.Save(edited); err != nil {
		t.Fatal(err)
	}

	all, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	blockers := OpenBlockers(edited, all)
	if len(blockers) != 1 || blockers[0].ID != child.ID {
		t.Errorf("dangling dep should be skipped, blockers = %+v", blockers)
	}
}

package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"microbeads/internal/issue"
)

func writeIssueFile(t *testing.T, dir, name, content string) int64 {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", name, err)
	}
	return info.ModTime().UnixNano()
}

func snapshotFor(id, filename string, mtime int64) *Snapshot {
	return &Snapshot{
		Count:  1,
		Files:  map[string]FileMeta{filename: {MTime: mtime}},
		Issues: map[string]*issue.Issue{id: {ID: id, Title: "t", Status: issue.StatusOpen, Type: issue.TypeTask}},
	}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New()
	root := t.TempDir()
	if snap := c.Get(root, "open", filepath.Join(root, "issues", "open")); snap != nil {
		t.Error("expected miss on empty cache")
	}
}

func TestPutThenGet(t *testing.T) {
	c := New()
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "open")
	mtime := writeIssueFile(t, dir, "mb-1.json", "{}")

	c.Put(root, "open", snapshotFor("mb-1", "mb-1.json", mtime))

	snap := c.Get(root, "open", dir)
	if snap == nil {
		t.Fatal("expected process-tier hit")
	}
	if _, ok := snap.Issues["mb-1"]; !ok {
		t.Error("snapshot lost the issue")
	}
}

func TestGetDetectsModifiedFile(t *testing.T) {
	c := New()
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "open")
	mtime := writeIssueFile(t, dir, "mb-1.json", "{}")

	c.Put(root, "open", snapshotFor("mb-1", "mb-1.json", mtime))

	// A different mtime than the directory's must invalidate both tiers.
	stale := snapshotFor("mb-1", "mb-1.json", mtime-1)
	c.put(root, "open", stale)
	if err := os.WriteFile(cacheFilePath(root, "open"), mustMarshal(t, stale), 0644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}

	if snap := c.Get(root, "open", dir); snap != nil {
		t.Error("stale snapshot served")
	}
}

func TestGetDetectsAddedFile(t *testing.T) {
	c := New()
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "open")
	mtime := writeIssueFile(t, dir, "mb-1.json", "{}")

	c.Put(root, "open", snapshotFor("mb-1", "mb-1.json", mtime))
	writeIssueFile(t, dir, "mb-2.json", "{}")

	if snap := c.Get(root, "open", dir); snap != nil {
		t.Error("snapshot with wrong file count served")
	}
}

func TestDiskTierPromotion(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "open")
	mtime := writeIssueFile(t, dir, "mb-1.json", "{}")

	// Warm the disk tier with one cache, read with another process's cache.
	writer := New()
	writer.Put(root, "open", snapshotFor("mb-1", "mb-1.json", mtime))

	reader := New()
	snap := reader.Get(root, "open", dir)
	if snap == nil {
		t.Fatal("expected disk-tier hit")
	}
	if _, ok := snap.Issues["mb-1"]; !ok {
		t.Error("disk snapshot lost the issue")
	}
}

func TestCorruptDiskCacheIsMiss(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "open")
	writeIssueFile(t, dir, "mb-1.json", "{}")

	if err := os.MkdirAll(filepath.Join(root, DirName), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cacheFilePath(root, "open"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt cache: %v", err)
	}

	c := New()
	if snap := c.Get(root, "open", dir); snap != nil {
		t.Error("corrupt disk cache should be a miss, not an error")
	}
}

func TestUpdateAndRemoveSurgical(t *testing.T) {
	c := New()
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "open")
	mtime := writeIssueFile(t, dir, "mb-1.json", "{}")

	c.Put(root, "open", snapshotFor("mb-1", "mb-1.json", mtime))

	mtime2 := writeIssueFile(t, dir, "mb-2.json", "{}")
	c.Update(root, "open", "mb-2.json", &issue.Issue{ID: "mb-2", Title: "x", Status: issue.StatusOpen, Type: issue.TypeTask}, mtime2)

	snap := c.Get(root, "open", dir)
	if snap == nil {
		t.Fatal("snapshot should still be fresh after surgical update")
	}
	if snap.Count != 2 || len(snap.Issues) != 2 {
		t.Errorf("update did not keep count and issues in step: count=%d issues=%d", snap.Count, len(snap.Issues))
	}

	if err := os.Remove(filepath.Join(dir, "mb-2.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	c.Remove(root, "open", "mb-2.json", "mb-2")

	snap = c.Get(root, "open", dir)
	if snap == nil {
		t.Fatal("snapshot should still be fresh after surgical remove")
	}
	if snap.Count != 1 || len(snap.Issues) != 1 {
		t.Errorf("remove did not keep count and issues in step: count=%d issues=%d", snap.Count, len(snap.Issues))
	}
}

func TestMissingDirFreshOnlyWhenEmpty(t *testing.T) {
	c := New()
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "closed")

	empty := &Snapshot{Files: map[string]FileMeta{}, Issues: map[string]*issue.Issue{}}
	c.put(root, "closed", empty)
	if snap := c.Get(root, "closed", dir); snap == nil {
		t.Error("empty snapshot should match a missing directory")
	}

	c.put(root, "closed", snapshotFor("mb-1", "mb-1.json", 1))
	if snap := c.Get(root, "closed", dir); snap != nil {
		t.Error("non-empty snapshot must not match a missing directory")
	}
}

func TestClear(t *testing.T) {
	c := New()
	root := t.TempDir()
	dir := filepath.Join(root, "issues", "open")
	mtime := writeIssueFile(t, dir, "mb-1.json", "{}")

	c.put(root, "open", snapshotFor("mb-1", "mb-1.json", mtime))
	c.Clear(root)

	if _, ok := c.partitions[root]; ok {
		t.Error("Clear left process-tier entries behind")
	}
}

func mustMarshal(t *testing.T, snap *Snapshot) []byte {
	t.Helper()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

// Package cache implements the two-tier issue cache: an in-process map keyed
// by store root, and a persisted per-partition cache file carrying enough
// metadata (per-file modification times and total file count) to detect
// staleness without re-parsing every issue file.
//
// The cache is an explicit object with an injected lifetime rather than
// package-level state, so tests and multi-worktree callers get clean
// isolation.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"microbeads/internal/issue"
)

// DirName is the subdirectory of a store root holding the persisted cache
// files, one per partition.
const DirName = "cache"

// FileMeta records the staleness signal for one source issue file.
type FileMeta struct {
	// MTime is the file's modification time in unix nanoseconds.
	MTime int64 `json:"mtime"`
}

// Snapshot is a parsed view of one partition plus the metadata needed to
// re-validate it against the directory on disk.
type Snapshot struct {
	Count  int                     `json:"count"`
	Files  map[string]FileMeta     `json:"files"` // filename -> staleness signal
	Issues map[string]*issue.Issue `json:"issues"`
}

// Cache holds process-tier snapshots keyed by store root and partition name.
type Cache struct {
	partitions map[string]map[string]*Snapshot
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{partitions: make(map[string]map[string]*Snapshot)}
}

func cacheFilePath(root, partition string) string {
	return filepath.Join(root, DirName, partition+".json")
}

// Get returns a snapshot for (root, partition) if either tier holds a fresh
// one. The process tier is trusted only after re-validating against the
// directory: another process may have written issue files since the snapshot
// was built. A disk-tier hit is promoted to the process tier. Returns nil on
// a miss; the caller rebuilds via a full scan and calls Put.
func (c *Cache) Get(root, partition, dir string) *Snapshot {
	if byPart, ok := c.partitions[root]; ok {
		if snap, ok := byPart[partition]; ok && fresh(snap, dir) {
			return snap
		}
	}

	snap := loadDiskCache(cacheFilePath(root, partition))
	if snap == nil || !fresh(snap, dir) {
		return nil
	}
	c.put(root, partition, snap)
	return snap
}

// Put stores a freshly built snapshot in both tiers. The disk write is
// best-effort: a read-only or contended filesystem costs only future cache
// misses, never correctness.
func (c *Cache) Put(root, partition string, snap *Snapshot) {
	c.put(root, partition, snap)

	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	_ = os.WriteFile(cacheFilePath(root, partition), data, 0644)
}

func (c *Cache) put(root, partition string, snap *Snapshot) {
	byPart, ok := c.partitions[root]
	if !ok {
		byPart = make(map[string]*Snapshot)
		c.partitions[root] = byPart
	}
	byPart[partition] = snap
}

// Update surgically replaces a single issue in the process-tier snapshot
// after a write, keeping its staleness metadata in step with the file just
// written. The disk tier is left alone; it is rebuilt lazily the next time
// divergence is detected.
func (c *Cache) Update(root, partition, filename string, iss *issue.Issue, mtime int64) {
	byPart, ok := c.partitions[root]
	if !ok {
		return
	}
	snap, ok := byPart[partition]
	if !ok {
		return
	}
	if _, exists := snap.Files[filename]; !exists {
		snap.Count++
	}
	snap.Files[filename] = FileMeta{MTime: mtime}
	snap.Issues[iss.ID] = iss
}

// Remove surgically drops a single issue from the process-tier snapshot,
// e.g. when a save relocates its file to the other partition.
func (c *Cache) Remove(root, partition, filename, id string) {
	byPart, ok := c.partitions[root]
	if !ok {
		return
	}
	snap, ok := byPart[partition]
	if !ok {
		return
	}
	if _, exists := snap.Files[filename]; exists {
		snap.Count--
	}
	delete(snap.Files, filename)
	delete(snap.Issues, id)
}

// Clear drops the process-tier entries for one store root; a subsequent read
// re-validates against the disk tier and the directory. Primarily a testing
// and operational hook.
func (c *Cache) Clear(root string) {
	delete(c.partitions, root)
}

// ClearAll drops every process-tier entry.
func (c *Cache) ClearAll() {
	c.partitions = make(map[string]map[string]*Snapshot)
}

// fresh reports whether snap still matches the directory exactly: same file
// count and the same modification time for every issue file.
func fresh(snap *Snapshot, dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Missing directory means zero issues; an empty snapshot matches.
		return os.IsNotExist(err) && snap.Count == 0
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		count++
		meta, ok := snap.Files[entry.Name()]
		if !ok {
			return false
		}
		info, err := entry.Info()
		if err != nil {
			return false
		}
		if info.ModTime().UnixNano() != meta.MTime {
			return false
		}
	}
	return count == snap.Count
}

// loadDiskCache reads a persisted snapshot. Corrupted or unreadable content
// is a cache miss, not an error.
func loadDiskCache(path string) *Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	if snap.Files == nil || snap.Issues == nil {
		return nil
	}
	return &snap
}

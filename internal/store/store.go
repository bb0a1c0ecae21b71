// Package store implements durable per-issue persistence: one canonical JSON
// file per issue, partitioned into open/ and closed/ subdirectories by
// lifecycle state so that hot queries never pay for the closed backlog.
//
// Reads go through the two-tier cache (internal/cache); writes update the
// single affected cache entry surgically rather than invalidating wholesale.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"microbeads/internal/cache"
	"microbeads/internal/clock"
	"microbeads/internal/issue"
)

const (
	// IssuesDir is the subdirectory of the store root holding the partitions.
	IssuesDir = "issues"
	// PartitionOpen holds issues whose status is open, in_progress, or blocked.
	PartitionOpen = "open"
	// PartitionClosed holds issues whose status is closed.
	PartitionClosed = "closed"
	// MetadataFile holds the ID prefix and schema version.
	MetadataFile = "metadata.json"
	// SchemaVersion is written to new metadata files.
	SchemaVersion = "1"
	// DefaultPrefix is used when no metadata file exists.
	DefaultPrefix = "mb"
)

// Metadata is the small compatibility-sensitive file at the store root.
type Metadata struct {
	IDPrefix string `json:"id_prefix"`
	Version  string `json:"version"`
}

// Store owns the on-disk issue tree rooted at a worktree's .microbeads
// directory. The clock and cache are injected for testability and per-test
// isolation.
type Store struct {
	root   string
	clock  clock.Clock
	cache  *cache.Cache
	prefix string // lazily loaded from metadata
}

// New creates a Store rooted at the given directory.
func New(root string, clk clock.Clock, c *cache.Cache) *Store {
	return &Store{root: root, clock: clk, cache: c}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Clock returns the store's time source.
func (s *Store) Clock() clock.Clock {
	return s.clock
}

// Init creates the partition directories, writes the metadata file if absent,
// and performs the one supported layout migration: issue files sitting flat
// in issues/ are relocated into open/ or closed/ by their status.
func (s *Store) Init(prefix string) error {
	for _, part := range []string{PartitionOpen, PartitionClosed} {
		if err := os.MkdirAll(s.partitionDir(part), 0755); err != nil {
			return err
		}
	}

	metaPath := filepath.Join(s.root, MetadataFile)
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		if prefix == "" {
			prefix = DefaultPrefix
		}
		meta := Metadata{IDPrefix: prefix, Version: SchemaVersion}
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(metaPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("writing metadata: %w", err)
		}
		s.prefix = meta.IDPrefix
	}

	return s.migrateFlatLayout()
}

// migrateFlatLayout moves pre-partition issue files (directly under issues/)
// into the partition matching their status. Unparsable files land in open/
// where the doctor will report them.
func (s *Store) migrateFlatLayout() error {
	issuesDir := filepath.Join(s.root, IssuesDir)
	entries, err := os.ReadDir(issuesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		src := filepath.Join(issuesDir, entry.Name())
		part := PartitionOpen
		if data, err := os.ReadFile(src); err == nil {
			if iss, err := issue.Parse(data); err == nil && iss.Status == issue.StatusClosed {
				part = PartitionClosed
			}
		}
		dst := filepath.Join(s.partitionDir(part), entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("migrating %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Prefix returns the issue ID prefix from metadata, defaulting when the
// store has not been initialized.
func (s *Store) Prefix() string {
	if s.prefix != "" {
		return s.prefix
	}
	data, err := os.ReadFile(filepath.Join(s.root, MetadataFile))
	if err != nil {
		return DefaultPrefix
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil || meta.IDPrefix == "" {
		return DefaultPrefix
	}
	s.prefix = meta.IDPrefix
	return s.prefix
}

func (s *Store) partitionDir(partition string) string {
	return filepath.Join(s.root, IssuesDir, partition)
}

func (s *Store) issuePath(id, partition string) string {
	return filepath.Join(s.partitionDir(partition), id+".json")
}

// PartitionFor returns the partition an issue with the given status lives in.
func PartitionFor(status issue.Status) string {
	if status == issue.StatusClosed {
		return PartitionClosed
	}
	return PartitionOpen
}

// Save writes the issue in canonical form to the partition matching its
// status. When the open/closed boundary is crossed the new location is
// written first and the old file removed after, so a crash leaves a
// duplicate (repairable by the doctor) rather than a lost record.
func (s *Store) Save(iss *issue.Issue) error {
	if iss.ID == "" {
		return fmt.Errorf("%w: issue has no ID", issue.ErrValidation)
	}

	target := PartitionFor(iss.Status)
	other := PartitionOpen
	if target == PartitionOpen {
		other = PartitionClosed
	}

	data, err := issue.Serialize(iss)
	if err != nil {
		return err
	}

	path := s.issuePath(iss.ID, target)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing issue %s: %w", iss.ID, err)
	}

	filename := iss.ID + ".json"
	var mtime int64
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().UnixNano()
	}
	s.cache.Update(s.root, target, filename, iss, mtime)

	// Remove the stale copy left behind by a partition crossing.
	otherPath := s.issuePath(iss.ID, other)
	if _, err := os.Stat(otherPath); err == nil {
		if err := os.Remove(otherPath); err != nil {
			return fmt.Errorf("removing %s from %s partition: %w", iss.ID, other, err)
		}
		s.cache.Remove(s.root, other, filename, iss.ID)
	}

	return nil
}

// loadFile reads and parses a single issue file, wrapping parse failures in
// CorruptFileError.
func loadFile(path string) (*issue.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &CorruptFileError{Path: path, Err: fmt.Errorf("file is empty")}
	}
	iss, err := issue.Parse(data)
	if err != nil {
		return nil, &CorruptFileError{Path: path, Err: err}
	}
	return iss, nil
}

// scanPartition does the full directory read+parse for one partition and
// returns a cache snapshot. Corrupt files are counted in the staleness
// metadata (so the snapshot still validates against the directory) but
// contribute no issue entry.
func (s *Store) scanPartition(partition string) (*cache.Snapshot, error) {
	dir := s.partitionDir(partition)
	snap := &cache.Snapshot{
		Files:  make(map[string]cache.FileMeta),
		Issues: make(map[string]*issue.Issue),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		snap.Count++
		info, err := entry.Info()
		if err == nil {
			snap.Files[entry.Name()] = cache.FileMeta{MTime: info.ModTime().UnixNano()}
		}
		iss, err := loadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue // skip corrupt or unreadable files in bulk scans
		}
		snap.Issues[iss.ID] = iss
	}

	return snap, nil
}

// loadPartition returns the issue map for one partition, consulting the
// cache tiers before falling back to a full scan.
func (s *Store) loadPartition(partition string) (map[string]*issue.Issue, error) {
	dir := s.partitionDir(partition)
	if snap := s.cache.Get(s.root, partition, dir); snap != nil {
		return snap.Issues, nil
	}
	snap, err := s.scanPartition(partition)
	if err != nil {
		return nil, err
	}
	s.cache.Put(s.root, partition, snap)
	return snap.Issues, nil
}

// Snapshot returns every known issue, open and closed, keyed by ID. The
// graph engine and doctor run against this fully materialized view.
func (s *Store) Snapshot() (map[string]*issue.Issue, error) {
	open, err := s.loadPartition(PartitionOpen)
	if err != nil {
		return nil, err
	}
	closed, err := s.loadPartition(PartitionClosed)
	if err != nil {
		return nil, err
	}
	all := make(map[string]*issue.Issue, len(open)+len(closed))
	for id, iss := range open {
		all[id] = iss
	}
	for id, iss := range closed {
		all[id] = iss
	}
	return all, nil
}

// ClearCache drops the process-tier cache for this store, forcing the next
// read to re-validate against disk.
func (s *Store) ClearCache() {
	s.cache.Clear(s.root)
}

// storedIDs returns every issue ID present on disk (by filename), across
// both partitions, without parsing any file.
func (s *Store) storedIDs() ([]string, error) {
	var ids []string
	for _, part := range []string{PartitionOpen, PartitionClosed} {
		entries, err := os.ReadDir(s.partitionDir(part))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CorruptFiles returns the relative paths (partition/filename) of issue
// files that exist but do not parse. The doctor reports these; bulk reads
// silently skip them.
func (s *Store) CorruptFiles() ([]string, error) {
	var corrupt []string
	for _, part := range []string{PartitionOpen, PartitionClosed} {
		entries, err := os.ReadDir(s.partitionDir(part))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			if _, err := loadFile(filepath.Join(s.partitionDir(part), entry.Name())); err != nil {
				corrupt = append(corrupt, filepath.Join(part, entry.Name()))
			}
		}
	}
	sort.Strings(corrupt)
	return corrupt, nil
}

// Duplicates returns IDs whose file exists in both partitions, the leftover
// of a crash between the write and remove halves of a partition crossing.
func (s *Store) Duplicates() ([]string, error) {
	ids, err := s.storedIDs()
	if err != nil {
		return nil, err
	}
	var dups []string
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			dups = append(dups, ids[i])
		}
	}
	return dups, nil
}

// findExact returns the path of the exact-ID file if it exists in either
// partition.
func (s *Store) findExact(id string) (string, bool) {
	for _, part := range []string{PartitionOpen, PartitionClosed} {
		path := s.issuePath(id, part)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// GetFromPartition reads one issue file from a specific partition, bypassing
// the cache. The doctor uses this to inspect both copies of a duplicated ID.
func (s *Store) GetFromPartition(id, partition string) (*issue.Issue, error) {
	return loadFile(s.issuePath(id, partition))
}

// Get retrieves an issue by exact ID or unambiguous partial ID. An exact
// match that fails to parse is a hard error (the caller asked for that file
// specifically); partial matching skips corrupt candidates and continues.
func (s *Store) Get(idOrPrefix string) (*issue.Issue, error) {
	if path, ok := s.findExact(idOrPrefix); ok {
		return loadFile(path)
	}

	ids, err := s.storedIDs()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !matchesQuery(id, idOrPrefix) {
			continue
		}
		path, ok := s.findExact(id)
		if !ok {
			continue
		}
		iss, err := loadFile(path)
		if err != nil {
			continue // corrupt candidate, keep scanning
		}
		return iss, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
}

// Resolve maps an exact or partial issue ID to the unique full ID it
// denotes. More than one match is a distinguished ambiguity error naming all
// candidates; the store never silently picks one.
func (s *Store) Resolve(idOrPrefix string) (string, error) {
	if _, ok := s.findExact(idOrPrefix); ok {
		return idOrPrefix, nil
	}

	ids, err := s.storedIDs()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if matchesQuery(id, idOrPrefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguous, idOrPrefix, strings.Join(matches, ", "))
	}
}

func matchesQuery(id, query string) bool {
	return strings.HasPrefix(id, query) || strings.Contains(id, query)
}

// Filter is a conjunction of list criteria; nil fields match anything.
type Filter struct {
	Status   *issue.Status
	Priority *issue.Priority
	Label    string
	Type     *issue.Type
}

func (f Filter) matches(iss *issue.Issue) bool {
	if f.Status != nil && iss.Status != *f.Status {
		return false
	}
	if f.Priority != nil && iss.Priority != *f.Priority {
		return false
	}
	if f.Label != "" && !iss.HasLabel(f.Label) {
		return false
	}
	if f.Type != nil && iss.Type != *f.Type {
		return false
	}
	return true
}

// List returns issues matching the filter, sorted by (priority ascending,
// created_at ascending). The closed partition is only read when the filter
// asks for closed issues or carries no status constraint at all.
func (s *Store) List(f Filter) ([]*issue.Issue, error) {
	partitions := []string{PartitionOpen, PartitionClosed}
	if f.Status != nil {
		if *f.Status == issue.StatusClosed {
			partitions = []string{PartitionClosed}
		} else {
			partitions = []string{PartitionOpen}
		}
	}

	var out []*issue.Issue
	for _, part := range partitions {
		issues, err := s.loadPartition(part)
		if err != nil {
			return nil, err
		}
		for _, iss := range issues {
			if f.matches(iss) {
				out = append(out, iss)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

package config

import (
	"strconv"

	"microbeads/internal/issue"
)

// Typed accessors over the flat store. Each falls back to the shipped
// default when the key is unset or unparsable, so callers never see a
// zero value from a sparse config file.

// DefaultPriority returns the priority assigned to new issues.
func DefaultPriority(s Store) issue.Priority {
	if v, ok := s.Get(KeyDefaultPriority); ok {
		if n, err := strconv.Atoi(v); err == nil && issue.Priority(n).Valid() {
			return issue.Priority(n)
		}
	}
	return issue.PriorityMedium
}

// DefaultType returns the type assigned to new issues.
func DefaultType(s Store) issue.Type {
	if v, ok := s.Get(KeyDefaultType); ok {
		if t, err := issue.ParseType(v); err == nil {
			return t
		}
	}
	return issue.TypeTask
}

// CompactDays returns the age threshold, in days since close, for compaction.
func CompactDays(s Store) int {
	if v, ok := s.Get(KeyCompactDays); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 30
}

// SyncRemote returns the remote name pushed to by sync.
func SyncRemote(s Store) string {
	if v, ok := s.Get(KeySyncRemote); ok && v != "" {
		return v
	}
	return "origin"
}

// SyncMessage returns the commit message used when sync is not given one.
func SyncMessage(s Store) string {
	if v, ok := s.Get(KeySyncMessage); ok && v != "" {
		return v
	}
	return "Update issues"
}

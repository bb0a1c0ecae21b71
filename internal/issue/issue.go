// Package issue defines the issue record, its closed enums, validation rules,
// and the canonical JSON serialization used for every file the tracker writes.
//
// Canonical form matters: sorted keys and a trailing newline make diffs
// deterministic and let the merge driver compare versions field by field.
// Struct fields below are declared in alphabetical JSON-tag order so that
// encoding/json emits sorted keys without any custom marshaler.
package issue

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the canonical timestamp format: UTC, second precision,
// ISO-8601 with a Z suffix. Lexicographic order equals chronological order,
// which the merge engine relies on.
const TimeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders t in the canonical timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// ParseTime parses a canonical timestamp string.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Status represents the current state of an issue.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusBlocked, StatusClosed}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: invalid status %q (must be one of open, in_progress, blocked, closed)", ErrValidation, s)
	}
	return st, nil
}

// Type represents the category of an issue.
type Type string

const (
	TypeBug     Type = "bug"
	TypeFeature Type = "feature"
	TypeTask    Type = "task"
	TypeEpic    Type = "epic"
	TypeChore   Type = "chore"
)

// Types lists every valid issue type.
var Types = []Type{TypeBug, TypeFeature, TypeTask, TypeEpic, TypeChore}

// Valid reports whether t is one of the known issue types.
func (t Type) Valid() bool {
	switch t {
	case TypeBug, TypeFeature, TypeTask, TypeEpic, TypeChore:
		return true
	}
	return false
}

// ParseType converts a string to a Type, rejecting unknown values.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: invalid type %q (must be one of bug, feature, task, epic, chore)", ErrValidation, s)
	}
	return t, nil
}

// Priority represents the urgency of an issue (0=critical .. 4=low).
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityMedium   Priority = 2
	PriorityLow      Priority = 3
	PriorityBacklog  Priority = 4
)

// Valid reports whether p is in the 0-4 range.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityBacklog
}

// Display returns the priority in P0-P4 format for human-readable output.
func (p Priority) Display() string {
	return fmt.Sprintf("P%d", p)
}

// Change is one entry in an issue's audit history: a single field mutation.
// History is append-only; entries are never reordered, and only the
// compaction path may drop them.
type Change struct {
	At    string `json:"at"`
	Field string `json:"field"`
	New   string `json:"new"`
	Old   string `json:"old"`
}

// Issue is the central record. One JSON file per issue, named by ID, stored
// in the open or closed partition depending on Status.
//
// Field declaration order must stay alphabetical by JSON tag: it is what
// makes the canonical serialization key-sorted.
type Issue struct {
	AcceptanceCriteria string   `json:"acceptance_criteria"`
	ClosedAt           *string  `json:"closed_at"`
	ClosedReason       string   `json:"closed_reason"`
	Compacted          bool     `json:"compacted"`
	CreatedAt          string   `json:"created_at"`
	Dependencies       []string `json:"dependencies"`
	DependencyCount    *int     `json:"dependency_count,omitempty"`
	Description        string   `json:"description"`
	Design             string   `json:"design"`
	History            []Change `json:"history"`
	ID                 string   `json:"id"`
	LabelCount         *int     `json:"label_count,omitempty"`
	Labels             []string `json:"labels"`
	Notes              string   `json:"notes"`
	Priority           Priority `json:"priority"`
	Status             Status   `json:"status"`
	Summary            string   `json:"summary,omitempty"`
	Title              string   `json:"title"`
	Type               Type     `json:"type"`
	UpdatedAt          string   `json:"updated_at"`
}

// Track appends a history entry recording a field change.
func (i *Issue) Track(field, old, new, at string) {
	i.History = append(i.History, Change{At: at, Field: field, New: new, Old: old})
}

// HasDependency reports whether id is in the issue's dependency set.
func (i *Issue) HasDependency(id string) bool {
	for _, dep := range i.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// HasLabel reports whether the issue carries the given label.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Serialize renders the issue in canonical form: two-space indented JSON with
// sorted keys and a trailing newline.
func Serialize(i *Issue) ([]byte, error) {
	i.normalize()
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding issue %s: %w", i.ID, err)
	}
	return append(data, '\n'), nil
}

// Parse decodes an issue from its canonical JSON form.
func Parse(data []byte) (*Issue, error) {
	var i Issue
	if err := json.Unmarshal(data, &i); err != nil {
		return nil, err
	}
	i.normalize()
	return &i, nil
}

// Clone returns a deep copy of the issue. Mutating paths work on a clone so
// that a validation failure never leaves a half-edited record in the cache.
func Clone(i *Issue) *Issue {
	c := *i
	c.Dependencies = append([]string{}, i.Dependencies...)
	c.Labels = append([]string{}, i.Labels...)
	c.History = append([]Change{}, i.History...)
	if i.ClosedAt != nil {
		v := *i.ClosedAt
		c.ClosedAt = &v
	}
	if i.LabelCount != nil {
		v := *i.LabelCount
		c.LabelCount = &v
	}
	if i.DependencyCount != nil {
		v := *i.DependencyCount
		c.DependencyCount = &v
	}
	return &c
}

// normalize replaces nil collections with empty ones so that serialization
// always writes [] rather than null and parsed issues compare equal to
// freshly built ones.
func (i *Issue) normalize() {
	if i.Dependencies == nil {
		i.Dependencies = []string{}
	}
	if i.Labels == nil {
		i.Labels = []string{}
	}
	if i.History == nil {
		i.History = []Change{}
	}
}

package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"microbeads/internal/issue"
)

// CreateInput carries the caller-supplied fields for a new issue.
type CreateInput struct {
	Title              string
	Description        string
	Design             string
	Notes              string
	AcceptanceCriteria string
	Type               issue.Type // empty means task
	Priority           issue.Priority
	Labels             []string
}

// Create validates the input and returns a fully defaulted in-memory issue
// with a deterministic ID and fresh timestamps. Persistence is a separate
// Save call.
func (s *Store) Create(in CreateInput) (*issue.Issue, error) {
	title, err := issue.ValidateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := issue.ValidatePriority(in.Priority); err != nil {
		return nil, err
	}
	labels, err := issue.ValidateLabels(in.Labels)
	if err != nil {
		return nil, err
	}
	typ := in.Type
	if typ == "" {
		typ = issue.TypeTask
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: invalid type %q", issue.ErrValidation, typ)
	}

	now := issue.FormatTime(s.clock.Now())
	iss := &issue.Issue{
		AcceptanceCriteria: issue.ValidateText(in.AcceptanceCriteria),
		CreatedAt:          now,
		Dependencies:       []string{},
		Description:        issue.ValidateText(in.Description),
		Design:             issue.ValidateText(in.Design),
		History:            []issue.Change{},
		ID:                 generateID(s.Prefix(), title, now),
		Labels:             labels,
		Notes:              issue.ValidateText(in.Notes),
		Priority:           in.Priority,
		Status:             issue.StatusOpen,
		Title:              title,
		Type:               typ,
		UpdatedAt:          now,
	}
	return iss, nil
}

// Changes lists the field updates to apply; nil pointers leave the field
// untouched. Labels replaces the whole set; AddLabels/RemoveLabels edit it.
type Changes struct {
	Title              *string
	Description        *string
	Design             *string
	Notes              *string
	AcceptanceCriteria *string
	Status             *issue.Status
	Priority           *issue.Priority
	Labels             []string
	AddLabels          []string
	RemoveLabels       []string
}

// Update resolves the issue, applies the validated changes, stamps
// updated_at, appends a history entry for every field that actually changed,
// and saves. Status transitions across the open/closed boundary set or clear
// closed_at automatically.
func (s *Store) Update(idOrPrefix string, ch Changes) (*issue.Issue, error) {
	iss, err := s.getForEdit(idOrPrefix)
	if err != nil {
		return nil, err
	}
	now := issue.FormatTime(s.clock.Now())

	if ch.Title != nil {
		title, err := issue.ValidateTitle(*ch.Title)
		if err != nil {
			return nil, err
		}
		if title != iss.Title {
			iss.Track("title", iss.Title, title, now)
			iss.Title = title
		}
	}
	if ch.Description != nil {
		if v := issue.ValidateText(*ch.Description); v != iss.Description {
			iss.Track("description", iss.Description, v, now)
			iss.Description = v
		}
	}
	if ch.Design != nil {
		if v := issue.ValidateText(*ch.Design); v != iss.Design {
			iss.Track("design", iss.Design, v, now)
			iss.Design = v
		}
	}
	if ch.Notes != nil {
		if v := issue.ValidateText(*ch.Notes); v != iss.Notes {
			iss.Track("notes", iss.Notes, v, now)
			iss.Notes = v
		}
	}
	if ch.AcceptanceCriteria != nil {
		if v := issue.ValidateText(*ch.AcceptanceCriteria); v != iss.AcceptanceCriteria {
			iss.Track("acceptance_criteria", iss.AcceptanceCriteria, v, now)
			iss.AcceptanceCriteria = v
		}
	}
	if ch.Priority != nil {
		if err := issue.ValidatePriority(*ch.Priority); err != nil {
			return nil, err
		}
		if *ch.Priority != iss.Priority {
			iss.Track("priority", strconv.Itoa(int(iss.Priority)), strconv.Itoa(int(*ch.Priority)), now)
			iss.Priority = *ch.Priority
		}
	}

	if ch.Labels != nil {
		labels, err := issue.ValidateLabels(ch.Labels)
		if err != nil {
			return nil, err
		}
		s.setLabels(iss, labels, now)
	}
	if len(ch.AddLabels) > 0 || len(ch.RemoveLabels) > 0 {
		add, err := issue.ValidateLabels(ch.AddLabels)
		if err != nil {
			return nil, err
		}
		remove, err := issue.ValidateLabels(ch.RemoveLabels)
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool, len(iss.Labels))
		for _, l := range iss.Labels {
			set[l] = true
		}
		for _, l := range add {
			set[l] = true
		}
		for _, l := range remove {
			delete(set, l)
		}
		labels := make([]string, 0, len(set))
		for l := range set {
			labels = append(labels, l)
		}
		labels, _ = issue.ValidateLabels(labels)
		s.setLabels(iss, labels, now)
	}

	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, fmt.Errorf("%w: invalid status %q", issue.ErrValidation, *ch.Status)
		}
		if *ch.Status != iss.Status {
			iss.Track("status", string(iss.Status), string(*ch.Status), now)
			wasClosed := iss.Status == issue.StatusClosed
			iss.Status = *ch.Status
			if iss.Status == issue.StatusClosed && iss.ClosedAt == nil {
				closedAt := now
				iss.ClosedAt = &closedAt
			}
			if wasClosed && iss.Status != issue.StatusClosed {
				iss.ClosedAt = nil
				iss.ClosedReason = ""
			}
		}
	}

	iss.UpdatedAt = now
	if err := s.Save(iss); err != nil {
		return nil, err
	}
	return iss, nil
}

func (s *Store) setLabels(iss *issue.Issue, labels []string, now string) {
	old := strings.Join(iss.Labels, ",")
	new := strings.Join(labels, ",")
	if old != new {
		iss.Track("labels", old, new, now)
		iss.Labels = labels
	}
}

// Close transitions the issue to closed, recording the reason and the close
// timestamp, and relocates its file to the closed partition via Save.
func (s *Store) Close(idOrPrefix, reason string) (*issue.Issue, error) {
	iss, err := s.getForEdit(idOrPrefix)
	if err != nil {
		return nil, err
	}
	now := issue.FormatTime(s.clock.Now())
	reason = issue.ValidateText(reason)

	if iss.Status != issue.StatusClosed {
		iss.Track("status", string(iss.Status), string(issue.StatusClosed), now)
	}
	if reason != iss.ClosedReason && reason != "" {
		iss.Track("closed_reason", iss.ClosedReason, reason, now)
	}
	iss.Status = issue.StatusClosed
	closedAt := now
	iss.ClosedAt = &closedAt
	iss.ClosedReason = reason
	iss.UpdatedAt = now

	if err := s.Save(iss); err != nil {
		return nil, err
	}
	return iss, nil
}

// Reopen transitions a closed issue back to open, clearing the close
// metadata, and relocates its file to the open partition via Save.
func (s *Store) Reopen(idOrPrefix string) (*issue.Issue, error) {
	iss, err := s.getForEdit(idOrPrefix)
	if err != nil {
		return nil, err
	}
	now := issue.FormatTime(s.clock.Now())

	if iss.Status != issue.StatusOpen {
		iss.Track("status", string(iss.Status), string(issue.StatusOpen), now)
	}
	iss.Status = issue.StatusOpen
	iss.ClosedAt = nil
	iss.ClosedReason = ""
	iss.UpdatedAt = now

	if err := s.Save(iss); err != nil {
		return nil, err
	}
	return iss, nil
}

// CompactResult reports a compaction sweep.
type CompactResult struct {
	Compacted int `json:"compacted"`
	Skipped   int `json:"skipped"`
}

// CompactClosed strips verbose fields from issues closed more than
// olderThanDays ago. Already-compacted and too-recently-closed issues are
// skipped.
func (s *Store) CompactClosed(olderThanDays int) (CompactResult, error) {
	var res CompactResult

	closed, err := s.loadPartition(PartitionClosed)
	if err != nil {
		return res, err
	}

	cutoff := s.clock.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	now := issue.FormatTime(s.clock.Now())

	for _, cached := range closed {
		if cached.Compacted || cached.ClosedAt == nil {
			res.Skipped++
			continue
		}
		closedAt, err := issue.ParseTime(*cached.ClosedAt)
		if err != nil || !closedAt.Before(cutoff) {
			res.Skipped++
			continue
		}
		iss := issue.Clone(cached)
		iss.Compact(now)
		if err := s.Save(iss); err != nil {
			return res, err
		}
		res.Compacted++
	}

	return res, nil
}

// getForEdit resolves the query to a full ID and returns a mutable clone of
// the stored issue.
func (s *Store) getForEdit(idOrPrefix string) (*issue.Issue, error) {
	id, err := s.Resolve(idOrPrefix)
	if err != nil {
		return nil, err
	}
	iss, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return issue.Clone(iss), nil
}

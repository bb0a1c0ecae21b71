package issue

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrValidation is the sentinel wrapped by every input validation failure.
// The wrapping message names the field and the offending value so callers
// can surface it directly.
var ErrValidation = errors.New("validation failed")

const (
	// MaxTitleLen is the maximum title length in characters.
	MaxTitleLen = 500
	// MaxLabelLen is the maximum length of a single label.
	MaxLabelLen = 100
)

// ValidateTitle trims and validates an issue title.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if len(title) > MaxTitleLen {
		return "", fmt.Errorf("%w: title too long (%d chars, maximum is %d)", ErrValidation, len(title), MaxTitleLen)
	}
	return title, nil
}

// ValidatePriority checks that priority is in the 0-4 range.
func ValidatePriority(p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("%w: priority must be between %d and %d, got %d", ErrValidation, PriorityCritical, PriorityBacklog, p)
	}
	return nil
}

// ValidateLabels trims, validates, deduplicates, and sorts a label list.
// Labels are a set represented as a sorted slice for deterministic
// serialization.
func ValidateLabels(labels []string) ([]string, error) {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for idx, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("%w: label at index %d cannot be empty", ErrValidation, idx)
		}
		if len(label) > MaxLabelLen {
			return nil, fmt.Errorf("%w: label at index %d too long (%d chars, maximum is %d)", ErrValidation, idx, len(label), MaxLabelLen)
		}
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ValidateText trims free-form text fields (description, design, notes,
// acceptance criteria, close reason).
func ValidateText(s string) string {
	return strings.TrimSpace(s)
}

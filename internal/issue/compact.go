package issue

import "strings"

// Compact irreversibly strips the verbose fields from a long-closed issue to
// reduce storage footprint, keeping identity, status, and counts. The first
// line of the former description survives as Summary.
//
// Returns false without modifying the issue when it has already been
// compacted, so repeated sweeps are idempotent.
func (i *Issue) Compact(at string) bool {
	if i.Compacted {
		return false
	}

	labelCount := len(i.Labels)
	depCount := len(i.Dependencies)
	summary := firstLine(i.Description)

	i.Description = ""
	i.Design = ""
	i.Notes = ""
	i.AcceptanceCriteria = ""
	i.Labels = []string{}
	i.Dependencies = []string{}
	i.History = []Change{}

	i.Compacted = true
	i.LabelCount = &labelCount
	i.DependencyCount = &depCount
	i.Summary = summary
	i.UpdatedAt = at
	return true
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

package cmd

import (
	"encoding/json"
	"fmt"

	"microbeads/internal/issue"
)

// issueLine renders the one-line list form: id, status, priority, title.
func issueLine(iss *issue.Issue) string {
	return fmt.Sprintf("%s [%s] %s %s", iss.ID, iss.Status, iss.Priority.Display(), iss.Title)
}

// writeJSON encodes v to the app's output writer as indented JSON.
func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printIssues writes a slice of issues, one line each, or as a JSON array.
func (a *App) printIssues(issues []*issue.Issue) error {
	if a.JSON {
		if issues == nil {
			issues = []*issue.Issue{}
		}
		return a.writeJSON(issues)
	}
	for _, iss := range issues {
		fmt.Fprintln(a.Out, issueLine(iss))
	}
	return nil
}

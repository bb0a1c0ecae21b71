package cmd

import (
	"fmt"
	"strings"

	"microbeads/internal/issue"

	"github.com/spf13/cobra"
)

// newShowCmd creates the show command.
func newShowCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show full details of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			iss, err := app.Store.Get(args[0])
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(iss)
			}

			printIssueDetail(app, iss)
			return nil
		},
	}
	return cmd
}

func printIssueDetail(app *App, iss *issue.Issue) {
	fmt.Fprintf(app.Out, "%s: %s\n", iss.ID, iss.Title)
	fmt.Fprintf(app.Out, "Status:   %s\n", iss.Status)
	fmt.Fprintf(app.Out, "Type:     %s\n", iss.Type)
	fmt.Fprintf(app.Out, "Priority: %s\n", iss.Priority.Display())
	fmt.Fprintf(app.Out, "Created:  %s\n", iss.CreatedAt)
	fmt.Fprintf(app.Out, "Updated:  %s\n", iss.UpdatedAt)
	if iss.ClosedAt != nil {
		fmt.Fprintf(app.Out, "Closed:   %s\n", *iss.ClosedAt)
		if iss.ClosedReason != "" {
			fmt.Fprintf(app.Out, "Reason:   %s\n", iss.ClosedReason)
		}
	}
	if len(iss.Labels) > 0 {
		fmt.Fprintf(app.Out, "Labels:   %s\n", strings.Join(iss.Labels, ", "))
	}
	if len(iss.Dependencies) > 0 {
		fmt.Fprintf(app.Out, "Depends:  %s\n", strings.Join(iss.Dependencies, ", "))
	}
	if iss.Compacted {
		fmt.Fprintln(app.Out, "Compacted: yes")
		if iss.Summary != "" {
			fmt.Fprintf(app.Out, "Summary:  %s\n", iss.Summary)
		}
	}
	printTextBlock(app, "Description", iss.Description)
	printTextBlock(app, "Design", iss.Design)
	printTextBlock(app, "Notes", iss.Notes)
	printTextBlock(app, "Acceptance criteria", iss.AcceptanceCriteria)
	if len(iss.History) > 0 {
		fmt.Fprintln(app.Out, "\nHistory:")
		for _, ch := range iss.History {
			fmt.Fprintf(app.Out, "  %s  %s: %q -> %q\n", ch.At, ch.Field, ch.Old, ch.New)
		}
	}
}

func printTextBlock(app *App, heading, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(app.Out, "\n%s:\n", heading)
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(app.Out, "  %s\n", line)
	}
}

package cmd

import (
	"fmt"
	"strings"

	"microbeads/internal/issue"
	"microbeads/internal/store"

	"github.com/spf13/cobra"
)

// newUpdateCmd creates the update command.
func newUpdateCmd(provider *AppProvider) *cobra.Command {
	var (
		title        string
		description  string
		design       string
		notes        string
		acceptance   string
		status       string
		priority     int
		labels       []string
		addLabels    []string
		removeLabels []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields on an issue",
		Long: `Update one or more fields. Every change is appended to the issue's
history. Setting --status closed records the close timestamp; moving a
closed issue to any other status clears it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			var ch store.Changes
			if cmd.Flags().Changed("title") {
				ch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				ch.Description = &description
			}
			if cmd.Flags().Changed("design") {
				ch.Design = &design
			}
			if cmd.Flags().Changed("notes") {
				ch.Notes = &notes
			}
			if cmd.Flags().Changed("acceptance") {
				ch.AcceptanceCriteria = &acceptance
			}
			if cmd.Flags().Changed("status") {
				st, err := issue.ParseStatus(strings.ToLower(status))
				if err != nil {
					return err
				}
				ch.Status = &st
			}
			if cmd.Flags().Changed("priority") {
				p := issue.Priority(priority)
				ch.Priority = &p
			}
			if cmd.Flags().Changed("label") {
				ch.Labels = labels
			}
			ch.AddLabels = addLabels
			ch.RemoveLabels = removeLabels

			iss, err := app.Store.Update(args[0], ch)
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(iss)
			}
			fmt.Fprintf(app.Out, "Updated %s\n", iss.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&design, "design", "", "New design notes")
	cmd.Flags().StringVar(&notes, "notes", "", "New freeform notes")
	cmd.Flags().StringVar(&acceptance, "acceptance", "", "New acceptance criteria")
	cmd.Flags().StringVarP(&status, "status", "s", "", "New status (open, in_progress, blocked, closed)")
	cmd.Flags().IntVarP(&priority, "priority", "p", 2, "New priority 0-4")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Replace the label set (can repeat)")
	cmd.Flags().StringSliceVar(&addLabels, "add-label", nil, "Add a label (can repeat)")
	cmd.Flags().StringSliceVar(&removeLabels, "remove-label", nil, "Remove a label (can repeat)")

	return cmd
}

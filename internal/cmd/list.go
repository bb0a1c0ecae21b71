package cmd

import (
	"strings"

	"microbeads/internal/issue"
	"microbeads/internal/store"

	"github.com/spf13/cobra"
)

// newListCmd creates the list command.
func newListCmd(provider *AppProvider) *cobra.Command {
	var (
		status   string
		priority int
		label    string
		typeFlag string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues, filtered and sorted by priority",
		Long: `List issues sorted by priority then creation time. Without --status both
open and closed issues are shown; filters combine with AND.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			var f store.Filter
			if status != "" {
				st, err := issue.ParseStatus(strings.ToLower(status))
				if err != nil {
					return err
				}
				f.Status = &st
			}
			if cmd.Flags().Changed("priority") {
				p := issue.Priority(priority)
				if err := issue.ValidatePriority(p); err != nil {
					return err
				}
				f.Priority = &p
			}
			if label != "" {
				f.Label = label
			}
			if typeFlag != "" {
				t, err := issue.ParseType(strings.ToLower(typeFlag))
				if err != nil {
					return err
				}
				f.Type = &t
			}

			issues, err := app.Store.List(f)
			if err != nil {
				return err
			}
			return app.printIssues(issues)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (open, in_progress, blocked, closed)")
	cmd.Flags().IntVarP(&priority, "priority", "p", 2, "Filter by priority 0-4")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Filter by label")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Filter by type")

	return cmd
}

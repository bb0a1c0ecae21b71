package cmd

import (
	"microbeads/internal/graph"

	"github.com/spf13/cobra"
)

// newReadyCmd creates the ready command.
func newReadyCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List open and in-progress issues with no open blockers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			issues, err := graph.Ready(app.Store)
			if err != nil {
				return err
			}
			return app.printIssues(issues)
		},
	}
	return cmd
}

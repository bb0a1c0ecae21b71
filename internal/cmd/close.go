package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCloseCmd creates the close command.
func newCloseCmd(provider *AppProvider) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an issue",
		Long: `Close an issue, recording when and optionally why. The issue file moves
to the closed partition, so open-issue queries stop paying for it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			iss, err := app.Store.Close(args[0], reason)
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(iss)
			}
			fmt.Fprintf(app.Out, "Closed %s\n", iss.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the issue is being closed")

	return cmd
}

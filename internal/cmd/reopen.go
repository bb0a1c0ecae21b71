package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReopenCmd creates the reopen command.
func newReopenCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reopen <id>",
		Short: "Reopen a closed issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			iss, err := app.Store.Reopen(args[0])
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(iss)
			}
			fmt.Fprintf(app.Out, "Reopened %s\n", iss.ID)
			return nil
		},
	}
	return cmd
}

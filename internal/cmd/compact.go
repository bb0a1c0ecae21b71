package cmd

import (
	"fmt"

	"microbeads/internal/config"

	"github.com/spf13/cobra"
)

// newCompactCmd creates the compact command.
func newCompactCmd(provider *AppProvider) *cobra.Command {
	var olderThan int

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Strip verbose fields from long-closed issues",
		Long: `Compact issues that have been closed longer than the age threshold:
description, design, notes, acceptance criteria, labels, dependencies,
and history are dropped; a one-line summary and the label and dependency
counts are kept. Already-compacted issues are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			days := olderThan
			if !cmd.Flags().Changed("older-than") {
				days = config.CompactDays(app.ConfigStore)
			}

			res, err := app.Store.CompactClosed(days)
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(res)
			}
			fmt.Fprintf(app.Out, "Compacted %d issues, skipped %d\n", res.Compacted, res.Skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 30, "Only compact issues closed more than this many days ago")

	return cmd
}

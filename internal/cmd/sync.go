package cmd

import (
	"fmt"

	"microbeads/internal/config"

	"github.com/spf13/cobra"
)

// newSyncCmd creates the sync command.
func newSyncCmd(provider *AppProvider) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Commit and push issue changes on the data branch",
		Long: `Commit any pending issue changes to the data branch and push. With no
changes it does nothing. A missing or read-only remote is not an error;
the commit still lands locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if app.Repo == nil {
				return fmt.Errorf("sync requires a git repository (running against %s)", app.Store.Root())
			}

			msg := message
			if msg == "" {
				msg = config.SyncMessage(app.ConfigStore)
			}
			if err := app.Repo.Sync(cmd.Context(), msg); err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(map[string]string{"status": "ok"})
			}
			fmt.Fprintln(app.Out, app.SuccessColor("Synced"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")

	return cmd
}

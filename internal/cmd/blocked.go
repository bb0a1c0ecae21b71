package cmd

import (
	"fmt"

	"microbeads/internal/graph"
	"microbeads/internal/issue"

	"github.com/spf13/cobra"
)

// newBlockedCmd creates the blocked command.
func newBlockedCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "List issues waiting on open dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			blocked, err := graph.Blocked(app.Store)
			if err != nil {
				return err
			}

			if app.JSON {
				type blockedJSON struct {
					Issue    *issue.Issue   `json:"issue"`
					Blockers []*issue.Issue `json:"blockers"`
				}
				out := make([]blockedJSON, 0, len(blocked))
				for _, b := range blocked {
					out = append(out, blockedJSON{Issue: b.Issue, Blockers: b.Blockers})
				}
				return app.writeJSON(out)
			}

			for _, b := range blocked {
				fmt.Fprintln(app.Out, issueLine(b.Issue))
				for _, blocker := range b.Blockers {
					fmt.Fprintf(app.Out, "  blocked by %s\n", issueLine(blocker))
				}
			}
			return nil
		},
	}
	return cmd
}

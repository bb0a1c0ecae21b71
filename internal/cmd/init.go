package cmd

import (
	"context"
	"fmt"
	"os"

	"microbeads/internal/cache"
	"microbeads/internal/clock"
	"microbeads/internal/config"
	"microbeads/internal/store"
	"microbeads/internal/vcs"

	"github.com/spf13/cobra"
)

// newInitCmd creates the init command. It runs before the provider can
// initialize, so it builds its own repo and store.
func newInitCmd(provider *AppProvider) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize issue tracking in this repository",
		Long: `Create the issue data branch as an orphan branch, check it out in a
hidden worktree under .git, and register the structured JSON merge driver.
Running init again is safe and re-registers the merge driver.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			out := provider.Out
			if out == nil {
				out = os.Stdout
			}

			// Bare data directory mode: no git involved.
			dataDir := provider.DataDir
			if dataDir == "" {
				dataDir = os.Getenv(config.EnvDataDir)
			}
			if dataDir != "" {
				st := store.New(dataDir, clock.System{}, cache.New())
				if prefix == "" {
					prefix = store.DefaultPrefix
				}
				if err := st.Init(prefix); err != nil {
					return err
				}
				fmt.Fprintf(out, "Initialized issue tracking in %s (prefix %s)\n", dataDir, st.Prefix())
				return nil
			}

			repo, err := vcs.Find(ctx, vcs.GitRunner{}, ".")
			if err != nil {
				return err
			}

			fresh, err := repo.Init(ctx)
			if err != nil {
				return err
			}

			st := store.New(repo.StorePath(), clock.System{}, cache.New())
			if prefix == "" {
				prefix = repo.DerivePrefix()
			}
			if err := st.Init(prefix); err != nil {
				return err
			}

			if fresh {
				if err := repo.CommitInitial(ctx); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "Initialized issue tracking on branch %s (prefix %s)\n", vcs.BranchName, st.Prefix())
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Issue ID prefix (default: derived from repository name)")

	return cmd
}

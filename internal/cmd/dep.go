package cmd

import (
	"fmt"

	"microbeads/internal/graph"

	"github.com/spf13/cobra"
)

// newDepCmd creates the dep command group: add, rm, tree.
func newDepCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage dependencies between issues",
	}

	addCmd := &cobra.Command{
		Use:   "add <id> <depends-on-id>",
		Short: "Record that an issue depends on another",
		Long: `Record that the first issue depends on (is blocked by) the second.
Edges that would create a cycle are rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			iss, err := graph.AddDependency(app.Store, args[0], args[1])
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(iss)
			}
			fmt.Fprintf(app.Out, "%s now depends on %s\n", iss.ID, args[1])
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <id> <depends-on-id>",
		Short: "Remove a dependency edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			iss, err := graph.RemoveDependency(app.Store, args[0], args[1])
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(iss)
			}
			fmt.Fprintf(app.Out, "%s no longer depends on %s\n", iss.ID, args[1])
			return nil
		},
	}

	treeCmd := &cobra.Command{
		Use:   "tree <id>",
		Short: "Show the dependency tree of an issue",
		Long: `Expand an issue's dependencies recursively. Nodes already shown on the
current path are marked (cycle); dangling dependency IDs are marked
(not found).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			tree, err := graph.DependencyTree(app.Store, args[0])
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(tree)
			}
			tree.Render(app.Out)
			return nil
		},
	}

	cmd.AddCommand(addCmd, rmCmd, treeCmd)
	return cmd
}

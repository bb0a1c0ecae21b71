package cmd

import (
	"microbeads/internal/merge"

	"github.com/spf13/cobra"
)

// newMergeDriverCmd creates the hidden merge-driver command that git invokes
// with the ancestor, ours, and theirs file paths. The merged result is
// written back to the ours path; a non-zero exit tells git the merge failed.
func newMergeDriverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "merge-driver <base> <ours> <theirs>",
		Short:  "Three-way merge driver for issue JSON files (invoked by git)",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return merge.Files(args[0], args[1], args[2])
		},
	}
	return cmd
}

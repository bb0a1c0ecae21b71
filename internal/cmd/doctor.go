package cmd

import (
	"fmt"

	"microbeads/internal/doctor"

	"github.com/spf13/cobra"
)

// newDoctorCmd creates the doctor command.
func newDoctorCmd(provider *AppProvider) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Audit the issue tree for consistency problems",
		Long: `Check every issue for orphaned dependencies, stale blocked status,
invalid enum values, out-of-range priorities, duplicated files, and
dependency cycles. With --fix, problems that have an unambiguous repair
are corrected in place; cycles and corrupt files are only reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			res, err := doctor.Run(app.Store, fix)
			if err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(res)
			}

			if res.OK() {
				fmt.Fprintf(app.Out, "%s (%d issues checked)\n", app.SuccessColor("No problems found"), res.TotalIssues)
				return nil
			}

			for _, p := range res.Problems {
				fmt.Fprintf(app.Out, "%s %s\n", app.WarnColor(p.Check+":"), p.Message)
			}
			for _, f := range res.Fixed {
				fmt.Fprintf(app.Out, "%s %s\n", app.SuccessColor("fixed:"), f)
			}
			fmt.Fprintf(app.Out, "%d problems, %d fixed, %d issues checked\n",
				len(res.Problems), len(res.Fixed), res.TotalIssues)
			if !fix && len(res.Problems) > len(res.Fixed) {
				fmt.Fprintln(app.Out, "Run 'mb doctor --fix' to repair what can be repaired.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Repair problems that have an unambiguous fix")

	return cmd
}

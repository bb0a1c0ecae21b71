package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"microbeads/internal/config"
	"microbeads/internal/issue"
	"microbeads/internal/store"

	"github.com/spf13/cobra"
)

// newCreateCmd creates the create command.
func newCreateCmd(provider *AppProvider) *cobra.Command {
	var (
		typeFlag    string
		priority    int
		labels      []string
		description string
		design      string
		notes       string
		acceptance  string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new issue",
		Long: `Create a new issue with the specified title.

Examples:
  mb create "Fix login bug"
  mb create "Add OAuth support" --type feature --priority 1
  mb create "Write tests" -l testing -l backend
  mb create "Task" --description -   # read description from stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			in := store.CreateInput{
				Title:              args[0],
				Description:        description,
				Design:             design,
				Notes:              notes,
				AcceptanceCriteria: acceptance,
				Labels:             labels,
				Type:               config.DefaultType(app.ConfigStore),
				Priority:           config.DefaultPriority(app.ConfigStore),
			}

			if typeFlag != "" {
				t, err := issue.ParseType(strings.ToLower(typeFlag))
				if err != nil {
					return err
				}
				in.Type = t
			}
			if cmd.Flags().Changed("priority") {
				in.Priority = issue.Priority(priority)
			}
			if description == "-" {
				data, err := io.ReadAll(bufio.NewReader(os.Stdin))
				if err != nil {
					return fmt.Errorf("reading description from stdin: %w", err)
				}
				in.Description = strings.TrimSpace(string(data))
			}

			iss, err := app.Store.Create(in)
			if err != nil {
				return err
			}
			if err := app.Store.Save(iss); err != nil {
				return err
			}

			if app.JSON {
				return app.writeJSON(iss)
			}
			fmt.Fprintln(app.Out, app.SuccessColor(iss.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Issue type (bug, feature, task, epic, chore)")
	cmd.Flags().IntVarP(&priority, "priority", "p", 2, "Priority 0-4 (0=critical, 4=backlog)")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Add label (can repeat)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Full description (use - for stdin)")
	cmd.Flags().StringVar(&design, "design", "", "Design notes")
	cmd.Flags().StringVar(&notes, "notes", "", "Freeform notes")
	cmd.Flags().StringVar(&acceptance, "acceptance", "", "Acceptance criteria")

	return cmd
}

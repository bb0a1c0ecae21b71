package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"microbeads/internal/issue"

	"github.com/spf13/cobra"
)

// newImportCmd creates the import command.
func newImportCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import issues from a JSON array or JSON-lines file",
		Long: `Import issues from a file, or from stdin when no file (or -) is given.
The input is either one JSON array of issues or one issue object per
line. Records without an ID get one derived from title and creation
time; records that fail validation are skipped with a warning.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(bufio.NewReader(os.Stdin))
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading import data: %w", err)
			}

			records, err := decodeImport(data)
			if err != nil {
				return err
			}

			imported, skipped := 0, 0
			for _, raw := range records {
				iss, err := prepareImport(app, raw)
				if err != nil {
					skipped++
					fmt.Fprintf(app.Err, "skipping record: %v\n", err)
					continue
				}
				if err := app.Store.Save(iss); err != nil {
					return err
				}
				imported++
			}

			if app.JSON {
				return app.writeJSON(map[string]int{"imported": imported, "skipped": skipped})
			}
			fmt.Fprintf(app.Out, "Imported %d issues, skipped %d\n", imported, skipped)
			return nil
		},
	}
	return cmd
}

// decodeImport accepts either a JSON array or one JSON object per line.
func decodeImport(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("parsing import array: %w", err)
		}
		return records, nil
	}

	var records []json.RawMessage
	for i, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			return nil, fmt.Errorf("parsing import line %d: invalid JSON", i+1)
		}
		records = append(records, json.RawMessage(line))
	}
	return records, nil
}

// prepareImport validates one imported record and fills derivable gaps:
// missing timestamps, status, type, and ID.
func prepareImport(app *App, raw json.RawMessage) (*issue.Issue, error) {
	iss, err := issue.Parse(raw)
	if err != nil {
		return nil, err
	}

	title, err := issue.ValidateTitle(iss.Title)
	if err != nil {
		return nil, err
	}
	iss.Title = title

	now := issue.FormatTime(app.Store.Clock().Now())
	if iss.CreatedAt == "" {
		iss.CreatedAt = now
	}
	if iss.UpdatedAt == "" {
		iss.UpdatedAt = iss.CreatedAt
	}
	if iss.Status == "" {
		iss.Status = issue.StatusOpen
	}
	if !iss.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", issue.ErrValidation, iss.Status)
	}
	if iss.Type == "" {
		iss.Type = issue.TypeTask
	}
	if !iss.Type.Valid() {
		return nil, fmt.Errorf("%w: invalid type %q", issue.ErrValidation, iss.Type)
	}
	if err := issue.ValidatePriority(iss.Priority); err != nil {
		return nil, err
	}
	if iss.ID == "" {
		iss.ID = app.Store.NewID(iss.Title, iss.CreatedAt)
	}
	return iss, nil
}

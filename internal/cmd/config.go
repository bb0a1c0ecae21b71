package cmd

import (
	"fmt"
	"sort"

	"microbeads/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCmd creates the config command group: get, set, unset, list.
func newConfigCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write tracker configuration",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			v, ok := app.ConfigStore.Get(args[0])
			if !ok {
				return fmt.Errorf("config key %q is not set", args[0])
			}
			fmt.Fprintln(app.Out, v)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			if err := app.ConfigStore.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Validate(app.ConfigStore); err != nil {
				// Roll the bad value back so the file stays usable.
				app.ConfigStore.Unset(args[0])
				return err
			}
			return nil
		},
	}

	unsetCmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a config value, reverting to the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			return app.ConfigStore.Unset(args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print all config values, defaults included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			all := app.ConfigStore.All()
			if app.JSON {
				return app.writeJSON(all)
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(app.Out, "%s=%s\n", k, all[k])
			}
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd, unsetCmd, listCmd)
	return cmd
}

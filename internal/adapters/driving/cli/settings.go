package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage global settings",
	Long: `View and change settings shared by every connector. Settings are stored
in settings.toml inside the config directory.

Known settings:
  output.format            json, yaml, table or pretty
  http.timeout             request timeout, e.g. 30s
  bulk.batch_size          concurrent updates in bulk commands
  meta.api_version         default Graph API version, e.g. v19.0
  mixpanel.region          us or eu
  googledrive.webhook_url  default push channel address`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List set values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		all := settingsService.List()
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		v := newView("KEY", "VALUE")
		for _, k := range keys {
			v.add(k, fmt.Sprint(all[k]))
		}
		return render(cmd, all, v)
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		val, ok := settingsService.Get(args[0])
		if !ok {
			return fmt.Errorf("setting %q: %w", args[0], domain.ErrNotFound)
		}
		cmd.Println(fmt.Sprint(val))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		if err := settingsService.Set(args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return services.KnownSettings(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		if err := settingsService.Unset(args[0]); err != nil {
			return err
		}
		cmd.Printf("Unset %s\n", args[0])
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		cmd.Println(settingsService.Path())
		return nil
	},
}

func init() {
	complete := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return services.KnownSettings(), cobra.ShellCompDirectiveNoFileComp
	}
	settingsGetCmd.ValidArgsFunction = complete
	settingsSetCmd.ValidArgsFunction = complete

	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd, settingsUnsetCmd, settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

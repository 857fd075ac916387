package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hb-chen/skillrt/internal/config"
	"github.com/hb-chen/skillrt/internal/storage"
)

// prefsCmd represents the prefs command
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect and edit stored preferences",
}

func withStore(cmd *cobra.Command, fn func(store *storage.SQLiteStore) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.SQLiteStore) error {
			value, ok, err := store.GetPreference(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("preference %q is not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		})
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.SQLiteStore) error {
			return store.SetPreference(cmd.Context(), args[0], args[1])
		})
	},
}

var prefsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Delete a preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.SQLiteStore) error {
			removed, err := store.UnsetPreference(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("not set"))
			}
			return nil
		})
	},
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.SQLiteStore) error {
			prefs, err := store.Preferences(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(prefs))
			for k := range prefs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", nameStyle.Render(k), prefs[k])
			}
			return nil
		})
	},
}

func init() {
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd, prefsUnsetCmd, prefsListCmd)
	rootCmd.AddCommand(prefsCmd)
}

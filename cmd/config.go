package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/app"
	"github.com/derickschaefer/bodacc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bodacc configuration",
	Long: `Read and write bodacc configuration stored in config.json.

Settings are resolved in this order, later sources winning: built-in
defaults, config.json, .env, BODACC_* environment variables, flags.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Adjust the weather thresholds or db_path, or run 'bodacc config set <key> <value>'.")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [KEY]",
	Short: "Print the current resolved configuration",
	Example: `  bodacc config get
  bodacc config get timeout
  bodacc config get --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := applyFlags(cfg); err != nil {
			return err
		}

		var rows [][]string
		for _, kv := range cfg.Pairs() {
			if len(args) == 1 && !strings.EqualFold(kv[0], args[0]) {
				continue
			}
			rows = append(rows, []string{kv[0], kv[1]})
		}
		if len(args) == 1 && len(rows) == 0 {
			return fmt.Errorf("unknown config key %q\n\nValid keys: %s", args[0], strings.Join(config.Keys(), ", "))
		}
		res := tableResult("config get", "", []string{"KEY", "VALUE"}, rows)
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), &app.Deps{Config: cfg}, res)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  bodacc config set timeout 30s
  bodacc config set weather_positive_threshold 5
  bodacc config set creations_only false`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		f, path, err := config.ReadFile(config.DefaultConfigFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			f = config.Template()
		case err != nil:
			return err
		}
		if path == "" {
			path = config.DefaultConfigFile
		}

		if err := f.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", strings.ToLower(args[0]), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

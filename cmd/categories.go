package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/model"
)

var categoriesSub bool

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"category"},
	Short:   "List announcement types usable as --category",
	Long: `List the announcement types (or, with --sub, announcement families)
known to the API, in French alphabetical order.

If the API cannot supply the list a built-in one is shown instead and a
warning explains why.`,
	Example: `  bodacc categories
  bodacc categories --sub --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		start := time.Now()
		var l model.Lookup
		if categoriesSub {
			l = deps.Engine.GetSubCategories(cmd.Context())
		} else {
			l = deps.Engine.GetCategories(cmd.Context())
		}
		result := newResult(model.KindLookup, cmd.CommandPath(), l, len(l.Values), start)
		if l.Fallback {
			result.Warnings = append(result.Warnings, "showing the built-in list: "+l.Reason)
		}
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, result)
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().BoolVar(&categoriesSub, "sub", false, "list announcement families (sub-categories)")
}

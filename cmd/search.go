package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/model"
)

var searchFlags model.SearchFilters

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search BODACC announcements",
	Long: `Search announcements by free text and structured filters.

Free text is matched across all fields; structured filters match exactly.
Results are paginated (default 20 per page, at most 100).`,
	Example: `  bodacc search dupont --department 75
  bodacc search "boulangerie" --category "Ventes et cessions" --from 2024-01-01
  bodacc search --tribunal "GREFFE DU TRIBUNAL DE COMMERCE DE LYON" --page 2 --format json`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		f := searchFlags
		f.Query = strings.Join(args, " ")
		start := time.Now()

		resp, err := deps.Engine.Search(cmd.Context(), &f)
		if err != nil {
			return err
		}
		result := newResult(model.KindSearch, searchCommandLine(&f), resp, len(resp.Results), start)
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, result)
	},
}

func searchCommandLine(f *model.SearchFilters) string {
	if f.Query == "" {
		return "search"
	}
	return fmt.Sprintf("search %q", f.Query)
}

// addFilterFlags registers the structured filter flags shared by search
// and stats.
func addFilterFlags(cmd *cobra.Command, department, category, subCategory, tribunal, from, to *string) {
	fl := cmd.Flags()
	fl.StringVar(department, "department", "", "department code (e.g. 75, 2A, 971)")
	fl.StringVar(category, "category", "", "announcement type (see 'bodacc categories')")
	fl.StringVar(subCategory, "sub-category", "", "announcement family (see 'bodacc categories --sub')")
	fl.StringVar(tribunal, "tribunal", "", "registry or tribunal name")
	fl.StringVar(from, "from", "", "earliest publication date (YYYY-MM-DD)")
	fl.StringVar(to, "to", "", "latest publication date (YYYY-MM-DD)")
}

func init() {
	rootCmd.AddCommand(searchCmd)
	f := &searchFlags
	addFilterFlags(searchCmd, &f.Department, &f.Category, &f.SubCategory, &f.Tribunal, &f.DateFrom, &f.DateTo)
	searchCmd.Flags().IntVar(&f.Page, "page", 1, "result page, starting at 1")
	searchCmd.Flags().IntVar(&f.Limit, "limit", 20, "results per page (max 100)")
	searchCmd.Flags().StringVar(&f.Sort, "sort", "", "sort field, '-' prefix for descending (date, -date, name, department)")
}

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/store"
	"github.com/derickschaefer/bodacc/internal/util"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the local archive",
	Long: `Commands for the local bbolt database.

Statistics and weather results are archived only when a command is run
with --store. Nothing expires: data persists until you clear it.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived statistics and weather reports",
	Example: `  bodacc store list
  bodacc store list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var errs util.MultiError
		stats, err := deps.Store.ListStatistics()
		errs.Add(err)
		reports, err := deps.Store.ListWeather()
		errs.Add(err)
		if err := errs.Err(); err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if len(stats) == 0 && len(reports) == 0 && deps.Config.Format == "table" {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing archived yet.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: bodacc stats ... --store  or  bodacc weather --store")
			return nil
		}

		var rows [][]string
		for _, s := range stats {
			rows = append(rows, []string{
				store.BucketStatistics, s.Key, describeFilters(s.Filters),
				strconv.Itoa(s.Data.TotalCount), s.SavedAt.Format("2006-01-02 15:04"),
			})
		}
		for _, w := range reports {
			rows = append(rows, []string{
				store.BucketWeather, w.Month,
				fmt.Sprintf("%s → %s", w.Report.ReferenceFrom, w.Report.ReferenceTo),
				strconv.Itoa(len(w.Report.Departments)), w.SavedAt.Format("2006-01-02 15:04"),
			})
		}
		res := tableResult("store list", "Database: "+deps.Store.Path(),
			[]string{"BUCKET", "KEY", "SCOPE", "COUNT", "SAVED"}, rows)
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, res)
	},
}

func describeFilters(f model.StatisticsFilters) string {
	s := fmt.Sprintf("%s..%s %s", f.DateFrom, f.DateTo, f.Periodicity)
	for _, kv := range [][2]string{
		{"dept", f.Department}, {"cat", f.Category}, {"sub", f.SubCategory}, {"tribunal", f.Tribunal},
	} {
		if kv[1] != "" {
			s += fmt.Sprintf(" %s=%s", kv[0], kv[1])
		}
	}
	return s
}

// ─── store show ───────────────────────────────────────────────────────────────

var storeShowCmd = &cobra.Command{
	Use:   "show <KEY|MONTH>",
	Short: "Render an archived statistics result or weather report",
	Long: `Show an archived entry. A YYYY-MM argument selects the weather report
for that month; anything else is looked up as a statistics key (see
'bodacc store list').`,
	Example: `  bodacc store show 2024-06
  bodacc store show 'statistics:{"dateFrom":"2024-01-01",...}' --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		key := args[0]
		if _, err := time.Parse("2006-01", key); err == nil {
			w, ok, err := deps.Store.GetWeather(key)
			if err != nil {
				return fmt.Errorf("reading store: %w", err)
			}
			if !ok {
				return fmt.Errorf("no weather report archived for %s", key)
			}
			res := newResult(model.KindWeather, "store show "+key, w.Report, len(w.Report.Departments), time.Now())
			res.GeneratedAt = w.SavedAt
			return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, res)
		}

		s, ok, err := deps.Store.GetStatistics(key)
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			return fmt.Errorf("no statistics archived under %q", key)
		}
		res := newResult(model.KindStatistics, "store show", s.Data, len(s.Data.Periods), time.Now())
		res.GeneratedAt = s.SavedAt
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, res)
	},
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  bodacc store stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}
		version, err := deps.Store.SchemaVersion()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		rows := make([][]string, len(stats))
		for i, s := range stats {
			rows[i] = []string{s.Name, strconv.Itoa(s.Count), humanBytes(s.Bytes)}
		}
		title := fmt.Sprintf("Database: %s (schema v%s)", deps.Store.Path(), version)
		res := tableResult("store stats", title, []string{"BUCKET", "ROWS", "SIZE"}, rows)
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, res)
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var (
	storeClearAll    bool
	storeClearBucket string
)

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local store",
	Long: `Delete entries from one or all buckets.

bbolt does not shrink the database file after clearing; free pages are
reused on later writes. Run 'bodacc store compact' to reclaim disk space.`,
	Example: `  bodacc store clear --all
  bodacc store clear --bucket weather`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearAll && storeClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <name>\n\nBuckets: %v", store.AllBuckets)
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if storeClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
		} else {
			if err := deps.Store.ClearBucket(storeClearBucket); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", storeClearBucket)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "  Run 'bodacc store compact' to reclaim disk space.")
		return nil
	},
}

// ─── store compact ────────────────────────────────────────────────────────────

var storeCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact copies all live data into a fresh file and swaps it in place of
the original, recovering space freed by earlier 'store clear' runs.`,
	Example: `  bodacc store compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Compacting %s ...\n", deps.Store.Path())
		before, after, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Compaction complete\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  Before: %s\n", humanBytes(before))
		fmt.Fprintf(cmd.OutOrStdout(), "  After:  %s\n", humanBytes(after))
		if saved := before - after; saved > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  Saved:  %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeCompactCmd)

	storeClearCmd.Flags().BoolVar(&storeClearAll, "all", false, "clear all buckets")
	storeClearCmd.Flags().StringVar(&storeClearBucket, "bucket", "", "clear one bucket: statistics|weather|snapshots")
}

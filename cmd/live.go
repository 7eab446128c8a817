package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/cache"
	"github.com/derickschaefer/bodacc/internal/debounce"
	"github.com/derickschaefer/bodacc/internal/engine"
	"github.com/derickschaefer/bodacc/internal/model"
)

var (
	liveFlags model.SearchFilters
	liveQuiet time.Duration
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Search as you type: one query per input line",
	Long: `Read queries from stdin, one per line, and search once input has been
quiet for a moment. A newer line cancels a search still in flight, so
only results for the latest query are printed.

Repeating a query within the cache TTL is answered locally.`,
	Example: `  bodacc live --department 75
  printf 'dup\ndupo\ndupont\n' | bodacc live --limit 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		var outMu sync.Mutex
		ctx := cmd.Context()
		run := func(f model.SearchFilters) {
			start := time.Now()
			resp, err := deps.Engine.SearchLatest(ctx, &f)
			if errors.Is(err, engine.ErrSuperseded) {
				return
			}
			outMu.Lock()
			defer outMu.Unlock()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return
			}
			result := newResult(model.KindSearch, searchCommandLine(&f), resp, len(resp.Results), start)
			if err := emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, result); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
		}

		d := debounce.New(liveQuiet)
		defer d.Stop()

		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			f := liveFlags
			f.Query = strings.TrimSpace(sc.Text())
			d.Trigger(func() { run(f) })
		}
		d.Flush()
		if err := sc.Err(); err != nil {
			return err
		}
		if deps.Config.Verbose {
			return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, cacheStatsResult(deps.Engine.CacheStats()))
		}
		return nil
	},
}

// cacheStatsResult tabulates in-memory cache activity.
func cacheStatsResult(stats map[string]cache.Stats) *model.Result {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := stats[name]
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d/%d", s.Size, s.MaxSize),
			strconv.FormatInt(s.Hits, 10),
			strconv.FormatInt(s.Misses, 10),
			strconv.FormatInt(s.Evictions, 10),
			strconv.FormatInt(s.Expirations, 10),
		})
	}
	return tableResult("live", "Cache", []string{"CACHE", "SIZE", "HITS", "MISSES", "EVICTIONS", "EXPIRED"}, rows)
}

func init() {
	rootCmd.AddCommand(liveCmd)
	f := &liveFlags
	addFilterFlags(liveCmd, &f.Department, &f.Category, &f.SubCategory, &f.Tribunal, &f.DateFrom, &f.DateTo)
	liveCmd.Flags().IntVar(&f.Limit, "limit", 10, "results per query (max 100)")
	liveCmd.Flags().DurationVar(&liveQuiet, "debounce", 300*time.Millisecond, "quiet period before a query is sent")
}

package cmd

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/analyze"
	"github.com/derickschaefer/bodacc/internal/app"
	"github.com/derickschaefer/bodacc/internal/chart"
	"github.com/derickschaefer/bodacc/internal/engine"
	"github.com/derickschaefer/bodacc/internal/model"
)

var (
	statsFlags   model.StatisticsFilters
	statsStore   bool
	statsAnalyze bool
	statsTrend   string
	statsChart   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Per-period announcement statistics",
	Long: `Split a date range into months, quarters or years and count the
announcements published in each period, with category, sub-category and
department breakdowns, period-over-period and year-over-year evolution.

Periods are aligned to calendar boundaries: a range starting on the 31st
still produces whole months.`,
	Example: `  bodacc stats --from 2024-01-01 --to 2024-12-31
  bodacc stats --from 2022-01-01 --to 2024-12-31 --periodicity quarter --department 69
  bodacc stats --from 2020-01-01 --to 2024-12-31 --periodicity year --analyze --store
  bodacc stats --from 2024-01-01 --to 2024-12-31 --chart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		f := statsFlags
		start := time.Now()
		data, err := deps.Engine.GetStatistics(cmd.Context(), &f)
		slog.Debug("statistics load finished", "state", deps.Engine.StatisticsState(), "elapsed", time.Since(start))
		if err != nil {
			return err
		}

		result := newResult(model.KindStatistics, "stats", data, len(data.Periods), start)
		if statsStore {
			if err := storeStatistics(deps, f, data); err != nil {
				result.Warnings = append(result.Warnings, err.Error())
			}
		}
		if err := emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, result); err != nil {
			return err
		}
		if statsChart && len(data.Periods) > 0 && wantsChart(deps) {
			fmt.Fprintln(cmd.OutOrStdout())
			if err := chart.PeriodCounts(cmd.OutOrStdout(), data, chart.BarOptions{}); err != nil {
				return err
			}
		}
		if !statsAnalyze {
			return nil
		}
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, analysisResult(data, analyze.TrendMethod(statsTrend)))
	},
}

// storeStatistics archives data under the same key the engine caches it by.
func storeStatistics(deps *app.Deps, f model.StatisticsFilters, data *model.StatisticsData) error {
	if err := deps.RequireStore(); err != nil {
		return err
	}
	key, err := engine.StatisticsKey(f)
	if err != nil {
		return err
	}
	if err := deps.Store.PutStatistics(key, f, data); err != nil {
		return fmt.Errorf("storing statistics: %w", err)
	}
	return nil
}

// analysisResult summarises and fits a trend through the period counts.
func analysisResult(data *model.StatisticsData, method analyze.TrendMethod) *model.Result {
	s := analyze.Summarize(data.Periods)
	rows := [][]string{
		{"periods", fmt.Sprintf("%d", s.Periods)},
		{"total", fmt.Sprintf("%d", s.Total)},
		{"mean", fmtStat(s.Mean)},
		{"std", fmtStat(s.Std)},
		{"min", fmtStat(s.Min)},
		{"median", fmtStat(s.Median)},
		{"max", fmtStat(s.Max)},
		{"busiest", s.Busiest},
		{"quietest", s.Quietest},
		{"change", fmtStat(s.Change)},
		{"change_pct", fmtStatPct(s.ChangePct)},
	}
	if tr, err := analyze.Trend(data.Periods, method); err == nil {
		rows = append(rows,
			[]string{"trend", fmt.Sprintf("%s (%s)", tr.Direction, tr.Method)},
			[]string{"slope", fmtStat(tr.Slope) + " / period"},
			[]string{"slope_pct", fmtStatPct(tr.SlopePct)},
			[]string{"r2", fmtStat(tr.R2)},
		)
	}
	return tableResult("stats --analyze", "Analysis", []string{"METRIC", "VALUE"}, rows)
}

func fmtStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "—"
	}
	return fmt.Sprintf("%.2f", v)
}

func fmtStatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "—"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

func init() {
	rootCmd.AddCommand(statsCmd)
	f := &statsFlags
	addFilterFlags(statsCmd, &f.Department, &f.Category, &f.SubCategory, &f.Tribunal, &f.DateFrom, &f.DateTo)
	statsCmd.Flags().StringVar(&f.Periodicity, "periodicity", "month", "period length: month|quarter|year")
	statsCmd.Flags().BoolVar(&statsStore, "store", false, "archive the result in the local database")
	statsCmd.Flags().BoolVar(&statsAnalyze, "analyze", false, "add a summary and trend of the period counts")
	statsCmd.Flags().BoolVar(&statsChart, "chart", false, "draw a bar chart of the period counts (table format only)")
	statsCmd.Flags().StringVar(&statsTrend, "trend", string(analyze.TrendLinear), "trend method: linear|theil-sen")
	statsCmd.MarkFlagRequired("from")
	statsCmd.MarkFlagRequired("to")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/analyze"
	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/pipeline"
)

var analyzeTrend string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarise statistics periods piped in as JSONL",
	Long: `Read the periods written by 'bodacc stats --format jsonl' (or
'bodacc store show <key> --format jsonl') from stdin and print a summary
of the counts with a fitted trend.

Useful for re-analysing an archived result without calling the API.`,
	Example: `  bodacc stats --from 2022-01-01 --to 2024-12-31 --format jsonl | bodacc analyze
  bodacc store show <key> --format jsonl | bodacc analyze --trend theil-sen`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && pipeline.IsTerminal(f) {
			return fmt.Errorf("analyze reads JSONL from stdin; pipe in 'bodacc stats --format jsonl'")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		periods, err := pipeline.ReadPeriods(in)
		if err != nil {
			return err
		}
		data := &model.StatisticsData{Periods: periods}
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, analysisResult(data, analyze.TrendMethod(analyzeTrend)))
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeTrend, "trend", string(analyze.TrendLinear), "trend method: linear|theil-sen")
}

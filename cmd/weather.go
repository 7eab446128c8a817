package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/chart"
	"github.com/derickschaefer/bodacc/internal/config"
	"github.com/derickschaefer/bodacc/internal/model"
)

var (
	weatherStore bool
	weatherMonth string
	weatherChart bool
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Economic weather: business creations by department",
	Long: `Compare business creations (registrations and incorporations) per
department between a reference month and the month before it.

Each department is classed sunny (growth above the positive threshold),
rainy (decline below the negative threshold) or cloudy. A department with
no creations in the earlier month and some in the reference month counts
as +100%.

The reference month defaults to the last complete month; override it with
--month or weather_reference_month in config.json.`,
	Example: `  bodacc weather
  bodacc weather --month 2024-06 --format md
  bodacc weather --store
  bodacc weather --chart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(func(cfg *config.Config) {
			if weatherMonth != "" {
				cfg.ReferenceMonth = weatherMonth
			}
		})
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		report, err := deps.Engine.GetEconomicWeather(cmd.Context())
		if err != nil {
			return err
		}
		result := newResult(model.KindWeather, "weather", report, len(report.Departments), start)
		if weatherStore {
			if err := deps.RequireStore(); err != nil {
				result.Warnings = append(result.Warnings, err.Error())
			} else if err := deps.Store.PutWeather(report); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("storing weather: %v", err))
			}
		}
		if err := emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, result); err != nil {
			return err
		}
		if !weatherChart || !wantsChart(deps) {
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout())
		err = chart.DepartmentEvolution(cmd.OutOrStdout(), report, chart.BarOptions{})
		if err != nil {
			// Nothing to draw when no department had activity.
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ ", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
	weatherCmd.Flags().BoolVar(&weatherStore, "store", false, "archive the report in the local database")
	weatherCmd.Flags().BoolVar(&weatherChart, "chart", false, "draw the evolution per department (table format only)")
	weatherCmd.Flags().StringVar(&weatherMonth, "month", "", "reference month (YYYY-MM)")
}

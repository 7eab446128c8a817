// Package cmd implements the bodacc CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bodacc/internal/app"
	"github.com/derickschaefer/bodacc/internal/config"
	"github.com/derickschaefer/bodacc/internal/render"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format      string
	Out         string
	Timeout     string
	Concurrency int
	Rate        float64
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `bodacc` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "bodacc",
	Short: "bodacc — search and aggregate BODACC legal announcements",
	Long: `bodacc queries the BODACC (Bulletin officiel des annonces civiles et
commerciales) open-data API: search announcements, build per-period
statistics and compare business creations across departments.

Data sourced from BODACC via the DILA open-data portal;
https://bodacc-datadila.opendatasoft.com/

Quick start:
  bodacc search dupont --department 75
  bodacc stats --from 2024-01-01 --to 2024-12-31 --periodicity quarter
  bodacc weather`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler on stderr.
func setupLogging() {
	level := slog.LevelWarn
	switch {
	case globalFlags.Debug:
		level = slog.LevelDebug
	case globalFlags.Quiet:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE; overrides carry
// command-specific flags and run after the global ones.
func buildDeps(overrides ...func(*config.Config)) (*app.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}

// applyFlags layers CLI flag overrides on top of the loaded config.
func applyFlags(cfg *config.Config) error {
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if !render.ValidFormat(cfg.Format) {
		return fmt.Errorf("unknown format %q: use table, json, jsonl or md", cfg.Format)
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"per-request time budget (e.g. 15s, 1m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel period queries for stats (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 5.0)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses")
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/derickschaefer/bodacc/internal/app"
	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/render"
)

// outputWriter returns the --out file if one was given, otherwise def.
// The returned close function is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// newResult wraps data in a Result envelope.
func newResult(kind, command string, data any, items int, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			DurationMs: time.Since(start).Milliseconds(),
			Items:      items,
		},
	}
}

// emit renders result in the configured format to stdout or --out, then
// prints warnings and the verbose footer to stderr.
func emit(stdout, stderr io.Writer, deps *app.Deps, result *model.Result) error {
	if deps.Config.Quiet {
		return nil
	}
	w, closeFn, err := outputWriter(stdout)
	if err != nil {
		return err
	}
	if err := render.Render(w, result, deps.Config.Format); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	render.PrintFooter(stderr, result, deps.Config.Verbose)
	return nil
}

// wantsChart reports whether an ASCII chart may follow the main output:
// only for terminal tables, never when writing to --out.
func wantsChart(deps *app.Deps) bool {
	return deps.Config.Format == render.FormatTable && !deps.Config.Quiet && globalFlags.Out == ""
}

// tableResult builds a generic table Result.
func tableResult(command, title string, headers []string, rows [][]string) *model.Result {
	return newResult(model.KindTable, command, &model.Table{Title: title, Headers: headers, Rows: rows}, len(rows), time.Now())
}

// humanBytes formats a byte count for display.
func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

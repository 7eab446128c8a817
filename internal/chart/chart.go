// Package chart renders horizontal ASCII bar charts for labelled values:
// announcement counts per period, or signed evolutions per department.
//
// Values that cross zero are drawn as bidirectional bars around a │
// baseline. NaN values are skipped.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/derickschaefer/bodacc/internal/model"
)

// Point is one bar: a label and its value.
type Point struct {
	Label string
	Value float64
}

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars keeps only the last MaxBars points. If 0, no limit is applied.
	MaxBars int
	// Suffix is appended to each value label, e.g. "%".
	Suffix string
	// Signed prefixes positive value labels with "+".
	Signed bool
}

// Bar renders a horizontal bar chart of points to w, one bar per point.
//
//	Announcements per month
//	2024-01  1.2K  ████████████
//	2024-02  1.5K  ███████████████
func Bar(w io.Writer, title string, points []Point, opts BarOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	var valid []Point
	for _, p := range points {
		if !math.IsNaN(p.Value) {
			valid = append(valid, p)
		}
	}
	if len(valid) < 1 {
		return fmt.Errorf("chart bar: no values to render")
	}
	if opts.MaxBars > 0 && len(valid) > opts.MaxBars {
		valid = valid[len(valid)-opts.MaxBars:]
	}

	minVal, maxVal := valid[0].Value, valid[0].Value
	for _, p := range valid[1:] {
		minVal = math.Min(minVal, p.Value)
		maxVal = math.Max(maxVal, p.Value)
	}

	labelWidth, valWidth := 0, 0
	labels := make([]string, len(valid))
	for i, p := range valid {
		labels[i] = valueLabel(p.Value, opts)
		labelWidth = max(labelWidth, utf8.RuneCountInString(p.Label))
		valWidth = max(valWidth, len(labels[i]))
	}

	barAreaWidth := max(totalWidth-labelWidth-valWidth-4, 4)

	// Bars start at zero when every value is non-negative.
	lo := math.Min(minVal, 0)
	valRange := maxVal - lo
	if maxVal < 0 {
		valRange = -lo
	}
	if valRange == 0 {
		valRange = 1
	}

	hasNeg := minVal < 0
	var zeroPos int
	if hasNeg {
		zeroPos = int(math.Round((-lo / valRange) * float64(barAreaWidth-1)))
	}

	if title != "" {
		fmt.Fprintln(w, title)
	}
	for i, p := range valid {
		var bar string
		if hasNeg {
			bar = buildBiBar(p.Value, valRange, barAreaWidth, zeroPos)
		} else {
			barLen := int(math.Round(p.Value / valRange * float64(barAreaWidth)))
			barLen = min(max(barLen, 1), barAreaWidth)
			bar = strings.Repeat("█", barLen)
		}
		pad := labelWidth - utf8.RuneCountInString(p.Label)
		fmt.Fprintf(w, "%s%s  %*s  %s\n", p.Label, strings.Repeat(" ", pad), valWidth, labels[i], strings.TrimRight(bar, " "))
	}
	return nil
}

// buildBiBar renders a bar that extends left (negative) or right (positive)
// from a zero baseline at zeroPos within a field of width barAreaWidth.
func buildBiBar(val, valRange float64, barAreaWidth, zeroPos int) string {
	buf := []rune(strings.Repeat(" ", barAreaWidth))
	if zeroPos >= 0 && zeroPos < barAreaWidth {
		buf[zeroPos] = '│'
	}

	n := int(math.Round(math.Abs(val) / valRange * float64(barAreaWidth-1)))
	if val >= 0 {
		for i := zeroPos + 1; i <= zeroPos+n && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	} else {
		for i := max(zeroPos-n, 0); i < zeroPos; i++ {
			buf[i] = '█'
		}
	}
	return string(buf)
}

// ─── Domain adapters ─────────────────────────────────────────────────────────

// PeriodCounts charts announcement counts per period.
func PeriodCounts(w io.Writer, d *model.StatisticsData, opts BarOptions) error {
	points := make([]Point, len(d.Periods))
	for i, p := range d.Periods {
		points[i] = Point{Label: p.Key, Value: float64(p.Count)}
	}
	return Bar(w, fmt.Sprintf("Announcements per %s", d.Periodicity), points, opts)
}

// DepartmentEvolution charts the signed creation evolution per department.
// Departments with no activity in either window are left out.
func DepartmentEvolution(w io.Writer, r *model.WeatherReport, opts BarOptions) error {
	var points []Point
	for _, d := range r.Departments {
		if d.Current == 0 && d.Previous == 0 {
			continue
		}
		points = append(points, Point{Label: d.Code, Value: d.Evolution})
	}
	opts.Suffix, opts.Signed = "%", true
	return Bar(w, fmt.Sprintf("Creations %s vs %s", r.ReferenceFrom[:min(7, len(r.ReferenceFrom))],
		r.ComparisonFrom[:min(7, len(r.ComparisonFrom))]), points, opts)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

func valueLabel(v float64, opts BarOptions) string {
	s := formatFloat(v)
	if opts.Signed && v > 0 {
		s = "+" + s
	}
	return s + opts.Suffix
}

// formatFloat formats a value label: integers as-is up to 9999, compact
// K/M notation above, one decimal for fractions.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case v == math.Trunc(v):
		return strconv.FormatFloat(v, 'f', 0, 64)
	default:
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}

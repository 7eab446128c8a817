package chart_test

import (
	"math"
	"strings"
	"testing"

	"github.com/derickschaefer/bodacc/internal/chart"
	"github.com/derickschaefer/bodacc/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// monthly builds points labelled 2024-01, 2024-02, ... from values.
func monthly(values ...float64) []chart.Point {
	out := make([]chart.Point, len(values))
	for i, v := range values {
		out[i] = chart.Point{Label: "2024-" + twoDigits(i+1), Value: v}
	}
	return out
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// ─── Bar ──────────────────────────────────────────────────────────────────────

func TestBarBasic(t *testing.T) {
	var buf strings.Builder
	if err := chart.Bar(&buf, "Announcements per month", monthly(120, 340, 200, 80), chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("Bar returned error: %v", err)
	}
	out := buf.String()
	lines := nonEmptyLines(out)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines (1 title + 4 bars), got %d:\n%s", len(lines), out)
	}
	if lines[0] != "Announcements per month" {
		t.Errorf("title line = %q", lines[0])
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, "█") {
			t.Errorf("bar line missing block character: %q", line)
		}
	}
	// The largest value fills the bar area.
	if !strings.HasPrefix(lines[2], "2024-02  340  ") {
		t.Errorf("unexpected label layout: %q", lines[2])
	}
	if strings.Count(lines[2], "█") < strings.Count(lines[1], "█") {
		t.Error("340 should draw a longer bar than 120")
	}
}

func TestBarNoValues(t *testing.T) {
	var buf strings.Builder
	err := chart.Bar(&buf, "x", []chart.Point{{Label: "a", Value: math.NaN()}}, chart.BarOptions{Width: 60})
	if err == nil || !strings.Contains(err.Error(), "no values") {
		t.Fatalf("expected no-values error, got %v", err)
	}
	if err := chart.Bar(&buf, "x", nil, chart.BarOptions{}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestBarNaNSkipped(t *testing.T) {
	var buf strings.Builder
	if err := chart.Bar(&buf, "", monthly(3, math.NaN(), 4), chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("Bar returned error: %v", err)
	}
	if lines := nonEmptyLines(buf.String()); len(lines) != 2 {
		t.Errorf("expected 2 bars without a title, got %d:\n%s", len(lines), buf.String())
	}
}

func TestBarMaxBars(t *testing.T) {
	var buf strings.Builder
	err := chart.Bar(&buf, "", monthly(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), chart.BarOptions{Width: 60, MaxBars: 5})
	if err != nil {
		t.Fatalf("Bar returned error: %v", err)
	}
	out := buf.String()
	if lines := nonEmptyLines(out); len(lines) != 5 {
		t.Errorf("expected 5 bars, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "2024-10") || strings.Contains(out, "2024-01") {
		t.Errorf("expected the last 5 points:\n%s", out)
	}
}

func TestBarZeroStillVisible(t *testing.T) {
	var buf strings.Builder
	if err := chart.Bar(&buf, "", monthly(0, 0), chart.BarOptions{Width: 40}); err != nil {
		t.Fatalf("flat series returned error: %v", err)
	}
	for _, line := range nonEmptyLines(buf.String()) {
		if !strings.Contains(line, "█") {
			t.Errorf("zero bar should still show one block: %q", line)
		}
	}
}

func TestBarNegativeValues(t *testing.T) {
	var buf strings.Builder
	points := []chart.Point{{Label: "75", Value: 20}, {Label: "13", Value: -100}, {Label: "33", Value: 0}}
	if err := chart.Bar(&buf, "", points, chart.BarOptions{Width: 60, Suffix: "%", Signed: true}); err != nil {
		t.Fatalf("Bar returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "│") {
		t.Error("bidirectional bar missing zero-line │ character")
	}
	if !strings.Contains(out, "+20%") || !strings.Contains(out, "-100%") {
		t.Errorf("signed labels missing:\n%s", out)
	}
	lines := nonEmptyLines(out)
	neg := lines[1]
	if strings.Index(neg, "█") > strings.Index(neg, "│") {
		t.Errorf("negative bar should extend left of the baseline: %q", neg)
	}
}

func TestBarMultibyteLabels(t *testing.T) {
	var buf strings.Builder
	points := []chart.Point{{Label: "Créations", Value: 10}, {Label: "Ventes", Value: 5}}
	if err := chart.Bar(&buf, "", points, chart.BarOptions{Width: 50}); err != nil {
		t.Fatal(err)
	}
	lines := nonEmptyLines(buf.String())
	if !strings.HasPrefix(lines[1], "Ventes     ") {
		t.Errorf("labels should be padded by rune count: %q", lines[1])
	}
}

// ─── Domain adapters ─────────────────────────────────────────────────────────

func TestPeriodCounts(t *testing.T) {
	d := &model.StatisticsData{
		Periodicity: "quarter",
		Periods: []model.StatisticsPeriod{
			{Key: "2024-T1", Count: 12000},
			{Key: "2024-T2", Count: 9000},
		},
	}
	var buf strings.Builder
	if err := chart.PeriodCounts(&buf, d, chart.BarOptions{Width: 60}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Announcements per quarter", "2024-T1", "12.0K", "9000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDepartmentEvolutionSkipsInactive(t *testing.T) {
	r := &model.WeatherReport{
		ReferenceFrom:  "2024-02-01",
		ComparisonFrom: "2024-01-01",
		Departments: []model.DepartmentWeather{
			{Code: "75", Current: 120, Previous: 100, Evolution: 20},
			{Code: "48", Current: 0, Previous: 0, Evolution: 0},
			{Code: "13", Current: 0, Previous: 10, Evolution: -100},
		},
	}
	var buf strings.Builder
	if err := chart.DepartmentEvolution(&buf, r, chart.BarOptions{Width: 60}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Creations 2024-02 vs 2024-01\n") {
		t.Errorf("unexpected title:\n%s", out)
	}
	if strings.Contains(out, "48") {
		t.Errorf("inactive department should be skipped:\n%s", out)
	}
	if !strings.Contains(out, "+20%") {
		t.Errorf("expected signed percentage label:\n%s", out)
	}
}

// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/util"
	"github.com/derickschaefer/bodacc/internal/weather"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatMD    = "md"
)

// ValidFormat reports whether f is a known --format value.
func ValidFormat(f string) bool {
	switch f {
	case FormatTable, FormatJSON, FormatJSONL, FormatMD:
		return true
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one JSON object per line: one per announcement,
// period, department or lookup value.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch d := result.Data.(type) {
	case *model.SearchResponse:
		for _, a := range d.Results {
			if err := enc.Encode(a); err != nil {
				return err
			}
		}
	case *model.StatisticsData:
		for _, p := range d.Periods {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
	case *model.WeatherReport:
		for _, dw := range d.Departments {
			if err := enc.Encode(dw); err != nil {
				return err
			}
		}
	case model.Lookup:
		for _, v := range d.Values {
			if err := enc.Encode(map[string]any{"field": d.Field, "value": v, "fallback": d.Fallback}); err != nil {
				return err
			}
		}
	case *model.Table:
		for _, row := range d.Rows {
			obj := make(map[string]string, len(d.Headers))
			for i, h := range d.Headers {
				if i < len(row) {
					obj[strings.ToLower(h)] = row[i]
				}
			}
			if err := enc.Encode(obj); err != nil {
				return err
			}
		}
	default:
		return enc.Encode(result.Data)
	}
	return nil
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	switch d := result.Data.(type) {
	case *model.SearchResponse:
		return renderSearchTable(w, d)
	case *model.StatisticsData:
		return renderStatisticsTable(w, d)
	case *model.WeatherReport:
		return renderWeatherTable(w, d)
	case model.Lookup:
		return renderLookupTable(w, d)
	case *model.Table:
		return renderGenericTable(w, d)
	default:
		return renderJSON(w, result)
	}
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func renderSearchTable(w io.Writer, r *model.SearchResponse) error {
	fmt.Fprintf(w, "%d of %d announcements (page %d)\n\n", len(r.Results), r.TotalCount, r.Page)
	tw := newTable(w, []string{"DATE", "TYPE", "NAME", "CITY", "DEPT", "TRIBUNAL"})
	tw.SetColWidth(40)
	for _, a := range r.Results {
		tw.Append(searchRow(a))
	}
	tw.Render()
	return nil
}

func searchRow(a model.Announcement) []string {
	dept := a.DepartmentCode
	if dept == "" {
		dept = a.Department
	}
	return []string{
		a.PublicationDate,
		util.Truncate(a.Category, 28),
		util.Truncate(a.Name, 40),
		util.Truncate(a.City, 24),
		dept,
		util.Truncate(a.Tribunal, 30),
	}
}

func renderStatisticsTable(w io.Writer, d *model.StatisticsData) error {
	fmt.Fprintf(w, "%d announcements over %d %s periods (avg %.1f)\n\n",
		d.TotalCount, len(d.Periods), d.Periodicity, d.AveragePerPeriod)

	tw := newTable(w, []string{"PERIOD", "START", "END", "COUNT", "VS PREV", "", "VS YEAR AGO", ""})
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	evo := evolutionByKey(d)
	for _, p := range d.Periods {
		e := evo[p.Key]
		tw.Append([]string{
			p.Period, p.Start, p.End, strconv.Itoa(p.Count),
			formatPct(e.Evolution), stateIcon(e.State),
			formatPct(e.YearOverYear), stateIcon(e.YearState),
		})
	}
	tw.Render()

	for _, sec := range []struct {
		title  string
		shares []model.FacetShare
	}{
		{"Top categories", d.TopCategories},
		{"Top sub-categories", d.TopSubCategories},
		{"Top departments", d.TopDepartments},
	} {
		if len(sec.shares) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", sec.title)
		st := newTable(w, []string{"NAME", "COUNT", "SHARE"})
		st.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
		for _, s := range sec.shares {
			st.Append([]string{util.Truncate(s.Name, 50), strconv.Itoa(s.Count), fmt.Sprintf("%.1f%%", s.Percentage)})
		}
		st.Render()
	}
	return nil
}

func renderWeatherTable(w io.Writer, r *model.WeatherReport) error {
	fmt.Fprintf(w, "Business creations %s → %s vs %s → %s\n\n",
		r.ReferenceFrom, r.ReferenceTo, r.ComparisonFrom, r.ComparisonTo)
	tw := newTable(w, []string{"CODE", "DEPARTMENT", "CURRENT", "PREVIOUS", "EVOLUTION", "WEATHER"})
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for _, d := range r.Departments {
		tw.Append([]string{
			d.Code, d.Name, strconv.Itoa(d.Current), strconv.Itoa(d.Previous),
			fmt.Sprintf("%+.1f%%", d.Evolution), stateIcon(d.State) + " " + string(d.State),
		})
	}
	tw.Render()

	tally := weather.Tally(r.Departments)
	fmt.Fprintf(w, "\n%s %d sunny   %s %d cloudy   %s %d rainy\n",
		stateIcon(model.Sunny), tally[model.Sunny],
		stateIcon(model.Cloudy), tally[model.Cloudy],
		stateIcon(model.Rainy), tally[model.Rainy])
	return nil
}

func renderLookupTable(w io.Writer, l model.Lookup) error {
	tw := newTable(w, []string{strings.ToUpper(l.Field)})
	for _, v := range l.Values {
		tw.Append([]string{v})
	}
	tw.Render()
	if l.Fallback {
		fmt.Fprintf(w, "(built-in list: %s)\n", l.Reason)
	}
	return nil
}

func renderGenericTable(w io.Writer, t *model.Table) error {
	if t.Title != "" {
		fmt.Fprintf(w, "%s\n\n", t.Title)
	}
	tw := newTable(w, t.Headers)
	tw.SetColWidth(60)
	tw.AppendBulk(t.Rows)
	tw.Render()
	return nil
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch d := result.Data.(type) {
	case *model.SearchResponse:
		rows := make([][]string, len(d.Results))
		for i, a := range d.Results {
			rows[i] = searchRow(a)
		}
		mdTable(w, []string{"DATE", "TYPE", "NAME", "CITY", "DEPT", "TRIBUNAL"}, rows)
	case *model.StatisticsData:
		evo := evolutionByKey(d)
		rows := make([][]string, len(d.Periods))
		for i, p := range d.Periods {
			e := evo[p.Key]
			rows[i] = []string{p.Period, strconv.Itoa(p.Count), formatPct(e.Evolution), formatPct(e.YearOverYear)}
		}
		mdTable(w, []string{"PERIOD", "COUNT", "VS PREV", "VS YEAR AGO"}, rows)
		fmt.Fprintf(w, "\n**Total:** %d\n", d.TotalCount)
	case *model.WeatherReport:
		rows := make([][]string, len(d.Departments))
		for i, dw := range d.Departments {
			rows[i] = []string{dw.Code, dw.Name, strconv.Itoa(dw.Current), strconv.Itoa(dw.Previous),
				fmt.Sprintf("%+.1f%%", dw.Evolution), string(dw.State)}
		}
		mdTable(w, []string{"CODE", "DEPARTMENT", "CURRENT", "PREVIOUS", "EVOLUTION", "WEATHER"}, rows)
	case model.Lookup:
		rows := make([][]string, len(d.Values))
		for i, v := range d.Values {
			rows[i] = []string{v}
		}
		mdTable(w, []string{strings.ToUpper(d.Field)}, rows)
	case *model.Table:
		mdTable(w, d.Headers, d.Rows)
	default:
		return renderJSON(w, result)
	}
	return nil
}

func mdTable(w io.Writer, headers []string, rows [][]string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(headers, " | "))
	fmt.Fprintf(w, "|%s\n", strings.Repeat("----|", len(headers)))
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and, in verbose mode, timing stats to w.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "live"
		if result.Stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func evolutionByKey(d *model.StatisticsData) map[string]model.PeriodEvolution {
	m := make(map[string]model.PeriodEvolution, len(d.Evolution))
	for _, e := range d.Evolution {
		m[e.Key] = e
	}
	return m
}

// formatPct renders a signed percentage, or "—" when there is nothing to
// compare against.
func formatPct(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "—"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

func stateIcon(s model.WeatherState) string {
	switch s {
	case model.Sunny:
		return "☀"
	case model.Cloudy:
		return "☁"
	case model.Rainy:
		return "☂"
	}
	return ""
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

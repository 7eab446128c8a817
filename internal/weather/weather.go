// Package weather computes "economic weather": the percentage change
// between two counts, classified as sunny, cloudy or rainy.
package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/refdata"
	"github.com/derickschaefer/bodacc/internal/util"
)

// NewGrowth is the evolution reported when the comparison count is zero
// and the current count is not.
const NewGrowth = 100.0

// EvolutionPercent returns (current-previous)/previous*100. With no
// previous activity it returns NewGrowth when current is positive and 0
// otherwise.
func EvolutionPercent(current, previous int) float64 {
	if previous > 0 {
		return float64(current-previous) * 100 / float64(previous)
	}
	if current > 0 {
		return NewGrowth
	}
	return 0
}

// ─── Classification ───────────────────────────────────────────────────────────

// Thresholds are the exclusive bounds of the cloudy band.
type Thresholds struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
}

// DefaultThresholds is ±10%.
var DefaultThresholds = Thresholds{Positive: 10, Negative: -10}

// Validate requires Positive > Negative.
func (t Thresholds) Validate() error {
	if t.Positive <= t.Negative {
		return fmt.Errorf("weather thresholds: positive (%g) must be greater than negative (%g)", t.Positive, t.Negative)
	}
	return nil
}

// Classify maps an evolution onto a state. Values equal to a threshold
// are cloudy.
func (t Thresholds) Classify(evolution float64) model.WeatherState {
	switch {
	case evolution > t.Positive:
		return model.Sunny
	case evolution < t.Negative:
		return model.Rainy
	default:
		return model.Cloudy
	}
}

// Classify uses DefaultThresholds.
func Classify(evolution float64) model.WeatherState {
	return DefaultThresholds.Classify(evolution)
}

// ─── Windows ──────────────────────────────────────────────────────────────────

// Window is an inclusive YYYY-MM-DD date span.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Windows returns the reference month and the month before it. ref is
// "YYYY-MM"; when empty the reference is the last complete month before
// now.
func Windows(ref string, now time.Time) (current, previous Window, err error) {
	var start time.Time
	if ref = strings.TrimSpace(ref); ref != "" {
		start, err = time.Parse("2006-01", ref)
		if err != nil {
			return Window{}, Window{}, fmt.Errorf("reference month %q: expected YYYY-MM", ref)
		}
	} else {
		start = util.FirstOfMonth(now.UTC()).AddDate(0, -1, 0)
	}
	prev := start.AddDate(0, -1, 0)
	current = Window{From: util.FormatDate(start), To: util.FormatDate(util.LastOfMonth(start))}
	previous = Window{From: util.FormatDate(prev), To: util.FormatDate(util.LastOfMonth(prev))}
	return current, previous, nil
}

// ─── Per-department readings ──────────────────────────────────────────────────

// Compute produces one reading per department, in table order. Counts
// missing from either map are zero.
func Compute(departments []refdata.Department, current, previous map[string]int, th Thresholds) []model.DepartmentWeather {
	out := make([]model.DepartmentWeather, 0, len(departments))
	for _, d := range departments {
		cur, prev := current[d.Code], previous[d.Code]
		evo := EvolutionPercent(cur, prev)
		out = append(out, model.DepartmentWeather{
			Code:      d.Code,
			Name:      d.Name,
			Current:   cur,
			Previous:  prev,
			Evolution: evo,
			State:     th.Classify(evo),
		})
	}
	return out
}

// Tally counts readings per state.
func Tally(readings []model.DepartmentWeather) map[model.WeatherState]int {
	out := map[model.WeatherState]int{model.Sunny: 0, model.Cloudy: 0, model.Rainy: 0}
	for _, r := range readings {
		out[r.State]++
	}
	return out
}

// Package analyze computes summaries, trends and period-over-period
// evolution over statistics periods. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/period"
	"github.com/derickschaefer/bodacc/internal/weather"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics of the per-period counts.
type Summary struct {
	Periods   int     `json:"periods"`
	Total     int     `json:"total"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	P25       float64 `json:"p25"`
	Median    float64 `json:"median"`
	P75       float64 `json:"p75"`
	Max       float64 `json:"max"`
	Skew      float64 `json:"skew"`
	First     float64 `json:"first"`
	Last      float64 `json:"last"`
	Change    float64 `json:"change"`     // Last - First
	ChangePct float64 `json:"change_pct"` // (Last-First)/First * 100
	Busiest   string  `json:"busiest"`    // label of the highest period
	Quietest  string  `json:"quietest"`   // label of the lowest period
}

// Summarize computes descriptive statistics over the period counts, in
// the order given.
func Summarize(periods []model.StatisticsPeriod) Summary {
	s := Summary{Periods: len(periods)}
	if len(periods) == 0 {
		return s
	}

	vals := make([]float64, len(periods))
	hi, lo := 0, 0
	for i, p := range periods {
		vals[i] = float64(p.Count)
		s.Total += p.Count
		if p.Count > periods[hi].Count {
			hi = i
		}
		if p.Count < periods[lo].Count {
			lo = i
		}
	}
	s.Busiest, s.Quietest = periods[hi].Period, periods[lo].Period

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = sumF(vals) / float64(len(vals))
	s.Std = stddevF(vals, s.Mean)
	s.Median = percentile(sorted, 50)
	s.P25 = percentile(sorted, 25)
	s.P75 = percentile(sorted, 75)
	s.Skew = skewness(vals, s.Mean, s.Std)

	s.First = vals[0]
	s.Last = vals[len(vals)-1]
	s.Change = s.Last - s.First
	if s.First != 0 {
		s.ChangePct = s.Change / math.Abs(s.First) * 100
	} else {
		s.ChangePct = math.NaN()
	}
	return s
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendMethod selects the regression algorithm.
type TrendMethod string

const (
	TrendLinear   TrendMethod = "linear"
	TrendTheilSen TrendMethod = "theil-sen"
)

// TrendResult holds the output of a trend analysis. X is the period
// index, so Slope is announcements per period.
type TrendResult struct {
	Method    TrendMethod `json:"method"`
	Slope     float64     `json:"slope"`
	Intercept float64     `json:"intercept"`
	R2        float64     `json:"r2"`
	Direction string      `json:"direction"` // "up", "down", "flat"
	SlopePct  float64     `json:"slope_pct"` // slope as a share of the mean count
}

// Trend fits a line through the period counts.
func Trend(periods []model.StatisticsPeriod, method TrendMethod) (TrendResult, error) {
	tr := TrendResult{Method: method}
	if len(periods) < 2 {
		return tr, fmt.Errorf("trend: need at least 2 periods, got %d", len(periods))
	}

	pts := make([]point, len(periods))
	for i, p := range periods {
		pts[i] = point{float64(i), float64(p.Count)}
	}

	switch method {
	case TrendTheilSen:
		tr.Slope = theilSenSlope(pts)
		// OLS intercept with Theil-Sen slope
		xMean := meanPts(pts, func(p point) float64 { return p.x })
		yMean := meanPts(pts, func(p point) float64 { return p.y })
		tr.Intercept = yMean - tr.Slope*xMean
	default:
		tr.Slope, tr.Intercept = olsRegress(pts)
	}

	tr.R2 = r2(pts, tr.Slope, tr.Intercept)
	if mean := meanPts(pts, func(p point) float64 { return p.y }); mean != 0 {
		tr.SlopePct = tr.Slope / mean * 100
	}

	switch {
	case tr.Slope > 0.01:
		tr.Direction = "up"
	case tr.Slope < -0.01:
		tr.Direction = "down"
	default:
		tr.Direction = "flat"
	}
	return tr, nil
}

// ─── Evolution ────────────────────────────────────────────────────────────────

// Evolutions compares every period with the one before it and with the
// same period one year earlier, when those are part of the series.
// periods must be chronological, as the aggregator returns them.
func Evolutions(periods []model.StatisticsPeriod, g period.Granularity, th weather.Thresholds) []model.PeriodEvolution {
	counts := make(map[string]int, len(periods))
	for _, p := range periods {
		counts[p.Key] = p.Count
	}

	out := make([]model.PeriodEvolution, len(periods))
	for i, p := range periods {
		ev := model.PeriodEvolution{Key: p.Key, Period: p.Period, Count: p.Count}

		if prevKey, err := period.Previous(p.Key, g, 1); err == nil {
			if prev, ok := counts[prevKey]; ok {
				evo := weather.EvolutionPercent(p.Count, prev)
				ev.Previous, ev.Evolution, ev.State = &prev, &evo, th.Classify(evo)
			}
		}
		if yearKey, err := period.Previous(p.Key, g, period.PerYear(g)); err == nil {
			if ago, ok := counts[yearKey]; ok {
				evo := weather.EvolutionPercent(p.Count, ago)
				ev.YearAgo, ev.YearOverYear, ev.YearState = &ago, &evo, th.Classify(evo)
			}
		}
		out[i] = ev
	}
	return out
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func skewness(vals []float64, mean, std float64) float64 {
	n := float64(len(vals))
	if n < 3 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range vals {
		d := (v - mean) / std
		s += d * d * d
	}
	return s * n / ((n - 1) * (n - 2))
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

func theilSenSlope(pts []point) float64 {
	var slopes []float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dx := pts[j].x - pts[i].x
			if dx == 0 {
				continue
			}
			slopes = append(slopes, (pts[j].y-pts[i].y)/dx)
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return percentile(slopes, 50)
}

func r2(pts []point, slope, intercept float64) float64 {
	yMean := meanPts(pts, func(p point) float64 { return p.y })
	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func meanPts(pts []point, f func(point) float64) float64 {
	var s float64
	for _, p := range pts {
		s += f(p)
	}
	return s / float64(len(pts))
}

// Package stats builds time-series statistics by splitting a date range
// into periods, running one facet query per period, and merging the
// per-period counts into global totals.
package stats

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/period"
	"github.com/derickschaefer/bodacc/internal/query"
)

// DefaultConcurrency bounds in-flight period queries when none is given.
const DefaultConcurrency = 4

// DefaultTopN is the number of buckets kept in each top-N share list.
const DefaultTopN = 10

// FacetSource runs one zero-row facet query.
type FacetSource interface {
	PeriodFacets(ctx context.Context, p query.Params) (model.FacetCounts, error)
}

// State is the lifecycle of the most recent Load.
type State int32

const (
	Idle State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	source      FacetSource
	concurrency int
	topN        int

	mu    sync.Mutex
	seq   uint64 // bumped by every Load; only the newest one sets state
	state State
}

// New returns an Aggregator issuing at most concurrency period queries at
// once. concurrency 1 runs the periods sequentially.
func New(source FacetSource, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{source: source, concurrency: concurrency, topN: DefaultTopN}
}

// State reports the state of the most recent Load.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Aggregator) begin() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	a.state = Running
	return a.seq
}

// finish records st unless a newer Load started after seq.
func (a *Aggregator) finish(seq uint64, st State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seq == seq {
		a.state = st
	}
}

// Load validates f, queries every period and merges the results. Periods
// are returned in chronological order whatever order the queries finish
// in. If any period fails the whole call fails and no partial data is
// returned; cancelling ctx aborts the queries still in flight.
func (a *Aggregator) Load(ctx context.Context, f *model.StatisticsFilters) (*model.StatisticsData, error) {
	seq := a.begin()
	data, err := a.load(ctx, f)
	if err != nil {
		a.finish(seq, Failed)
		return nil, err
	}
	a.finish(seq, Succeeded)
	return data, nil
}

func (a *Aggregator) load(ctx context.Context, f *model.StatisticsFilters) (*model.StatisticsData, error) {
	if f == nil {
		return nil, &query.InvalidFiltersError{Reason: "filters must not be nil"}
	}
	tf := trimFilters(*f)
	if err := query.Validate(&tf); err != nil {
		return nil, err
	}
	if err := query.AssertValidRange(tf.DateFrom, tf.DateTo); err != nil {
		return nil, err
	}
	g, err := period.ParseGranularity(tf.Periodicity)
	if err != nil {
		return nil, &query.InvalidFiltersError{Field: "periodicity", Reason: err.Error()}
	}
	keys, err := period.Generate(tf.DateFrom, tf.DateTo, g)
	if err != nil {
		return nil, err
	}

	// Build every request up front so bad input fails before any I/O.
	ranges := make([]period.Range, len(keys))
	params := make([]query.Params, len(keys))
	for i, k := range keys {
		r, err := period.DateRange(k, g)
		if err != nil {
			return nil, err
		}
		p, err := query.BuildStatisticsParams(&tf, r.StartString(), r.EndString())
		if err != nil {
			return nil, err
		}
		ranges[i], params[i] = r, p
	}

	slog.Debug("statistics fan-out", "periods", len(keys), "periodicity", g, "concurrency", a.concurrency)

	results := make([]model.StatisticsPeriod, len(keys))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)
	for i := range keys {
		eg.Go(func() error {
			fc, err := a.source.PeriodFacets(egCtx, params[i])
			if err != nil {
				return fmt.Errorf("period %s: %w", keys[i], err)
			}
			results[i] = model.StatisticsPeriod{
				Key:           keys[i],
				Period:        period.Label(keys[i], g),
				Start:         ranges[i].StartString(),
				End:           ranges[i].EndString(),
				Count:         fc.Total,
				Categories:    orEmpty(fc.Categories),
				SubCategories: orEmpty(fc.SubCategories),
				Departments:   orEmpty(fc.Departments),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	data := Merge(results)
	data.Periodicity = string(g)
	data.TopCategories = TopShares(data.Categories, data.TotalCount, a.topN)
	data.TopSubCategories = TopShares(data.SubCategories, data.TotalCount, a.topN)
	data.TopDepartments = TopShares(data.Departments, data.TotalCount, a.topN)
	return data, nil
}

// ─── Merge ────────────────────────────────────────────────────────────────────

// Merge sums per-period counts and facet maps into global totals. The
// periods slice is kept as given.
func Merge(periods []model.StatisticsPeriod) *model.StatisticsData {
	data := &model.StatisticsData{
		Periods:       periods,
		Categories:    map[string]int{},
		SubCategories: map[string]int{},
		Departments:   map[string]int{},
	}
	for _, p := range periods {
		data.TotalCount += p.Count
		addInto(data.Categories, p.Categories)
		addInto(data.SubCategories, p.SubCategories)
		addInto(data.Departments, p.Departments)
	}
	if len(periods) > 0 {
		data.AveragePerPeriod = float64(data.TotalCount) / float64(len(periods))
	}
	return data
}

// TopShares returns the n largest buckets of counts, largest first, ties
// broken by name. Percentages are relative to total.
func TopShares(counts map[string]int, total, n int) []model.FacetShare {
	out := make([]model.FacetShare, 0, len(counts))
	for name, c := range counts {
		share := model.FacetShare{Name: name, Count: c}
		if total > 0 {
			share.Percentage = float64(c) / float64(total) * 100
		}
		out = append(out, share)
	}
	slices.SortFunc(out, func(a, b model.FacetShare) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func addInto(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}

func orEmpty(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func trimFilters(f model.StatisticsFilters) model.StatisticsFilters {
	f.Department = strings.TrimSpace(f.Department)
	f.Category = strings.TrimSpace(f.Category)
	f.SubCategory = strings.TrimSpace(f.SubCategory)
	f.Tribunal = strings.TrimSpace(f.Tribunal)
	f.DateFrom = strings.TrimSpace(f.DateFrom)
	f.DateTo = strings.TrimSpace(f.DateTo)
	f.Periodicity = strings.TrimSpace(f.Periodicity)
	return f
}

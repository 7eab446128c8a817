// Package engine is the programmatic entry point for searching and
// aggregating BODACC announcements. It ties the query builder, HTTP
// backend, statistics aggregator, weather calculator and result caches
// together and owns request time budgets.
//
// Values returned from the caches are shared between callers and must be
// treated as read-only.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/derickschaefer/bodacc/internal/analyze"
	"github.com/derickschaefer/bodacc/internal/bodacc"
	"github.com/derickschaefer/bodacc/internal/cache"
	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/period"
	"github.com/derickschaefer/bodacc/internal/query"
	"github.com/derickschaefer/bodacc/internal/refdata"
	"github.com/derickschaefer/bodacc/internal/stats"
	"github.com/derickschaefer/bodacc/internal/weather"
)

// ErrSuperseded is returned by SearchLatest when a newer call replaced it
// before it finished.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Backend is the set of upstream queries the engine needs.
// *bodacc.Client implements it.
type Backend interface {
	Search(ctx context.Context, p query.Params) (*model.SearchResponse, error)
	PeriodFacets(ctx context.Context, p query.Params) (model.FacetCounts, error)
	DepartmentCounts(ctx context.Context, p query.Params) (map[string]int, error)
	FacetValues(ctx context.Context, field string) ([]string, error)
}

var _ Backend = (*bodacc.Client)(nil)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Timeout        time.Duration // per request; statistics get twice this
	Concurrency    int           // in-flight period queries
	CacheTTL       time.Duration
	CacheMaxSize   int
	Thresholds     weather.Thresholds
	ReferenceMonth string // YYYY-MM; empty means the last complete month
	CreationsOnly  bool   // weather counts only registrations and incorporations
	Logger         *slog.Logger
	Now            func() time.Time
}

// DefaultTimeout is the budget of a single request.
const DefaultTimeout = 15 * time.Second

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Timeout:       DefaultTimeout,
		Concurrency:   stats.DefaultConcurrency,
		CacheTTL:      cache.DefaultTTL,
		CacheMaxSize:  cache.DefaultMaxSize,
		Thresholds:    weather.DefaultThresholds,
		CreationsOnly: true,
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	backend Backend
	opts    Options
	log     *slog.Logger
	agg     *stats.Aggregator

	searches   *cache.Cache[*model.SearchResponse]
	statistics *cache.Cache[*model.StatisticsData]
	lookups    *cache.Cache[[]string]
	reports    *cache.Cache[*model.WeatherReport]

	mu           sync.Mutex
	cancelLatest context.CancelCauseFunc
	latestSeq    uint64
}

// New returns an Engine querying backend. Invalid weather thresholds are
// replaced by the defaults with a warning.
func New(backend Backend, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Thresholds == (weather.Thresholds{}) {
		opts.Thresholds = weather.DefaultThresholds
	} else if err := opts.Thresholds.Validate(); err != nil {
		opts.Logger.Warn("ignoring weather thresholds, using defaults", "err", err)
		opts.Thresholds = weather.DefaultThresholds
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		backend:    backend,
		opts:       opts,
		log:        opts.Logger,
		agg:        stats.New(backend, opts.Concurrency),
		searches:   cache.New[*model.SearchResponse](opts.CacheTTL, opts.CacheMaxSize),
		statistics: cache.New[*model.StatisticsData](opts.CacheTTL, opts.CacheMaxSize),
		lookups:    cache.New[[]string](opts.CacheTTL, opts.CacheMaxSize),
		reports:    cache.New[*model.WeatherReport](opts.CacheTTL, opts.CacheMaxSize),
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// ─── Search ───────────────────────────────────────────────────────────────────

// Search returns one page of announcements. Invalid filters fail before
// any request is made.
func (e *Engine) Search(ctx context.Context, f *model.SearchFilters) (*model.SearchResponse, error) {
	p, err := query.BuildSearchParams(f)
	if err != nil {
		return nil, err
	}
	key, err := cache.Key("search", p)
	if err != nil {
		return nil, err
	}
	return shared(ctx, e.searches, key, "search", e.opts.Timeout, func(ctx context.Context) (*model.SearchResponse, error) {
		return e.backend.Search(ctx, p)
	})
}

// SearchLatest is Search with last-request-wins ordering: starting a call
// cancels any SearchLatest still in flight, which then returns
// ErrSuperseded instead of its (stale) result.
func (e *Engine) SearchLatest(ctx context.Context, f *model.SearchFilters) (*model.SearchResponse, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	e.mu.Lock()
	if e.cancelLatest != nil {
		e.cancelLatest(ErrSuperseded)
	}
	e.cancelLatest = cancel
	e.latestSeq++
	seq := e.latestSeq
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.latestSeq == seq {
			e.cancelLatest = nil
		}
		e.mu.Unlock()
		cancel(nil)
	}()

	resp, err := e.Search(ctx, f)
	if errors.Is(context.Cause(ctx), ErrSuperseded) {
		return nil, ErrSuperseded
	}
	return resp, err
}

// ─── Statistics ───────────────────────────────────────────────────────────────

// GetStatistics loads per-period statistics for f, with period-over-period
// and year-over-year evolution attached. The whole fan-out shares a budget
// of twice the request timeout.
func (e *Engine) GetStatistics(ctx context.Context, f *model.StatisticsFilters) (*model.StatisticsData, error) {
	if f == nil {
		return nil, &query.InvalidFiltersError{Reason: "filters must not be nil"}
	}
	g, err := period.ParseGranularity(f.Periodicity)
	if err != nil {
		return nil, &query.InvalidFiltersError{Field: "periodicity", Reason: err.Error()}
	}
	norm := *f
	norm.Periodicity = string(g)
	key, err := cache.Key("statistics", norm)
	if err != nil {
		return nil, err
	}

	return shared(ctx, e.statistics, key, "statistics", 2*e.opts.Timeout, func(ctx context.Context) (*model.StatisticsData, error) {
		data, err := e.agg.Load(ctx, &norm)
		if err != nil {
			return nil, err
		}
		data.Evolution = analyze.Evolutions(data.Periods, g, e.opts.Thresholds)
		return data, nil
	})
}

// StatisticsState reports the lifecycle state of the latest statistics
// load.
func (e *Engine) StatisticsState() stats.State {
	return e.agg.State()
}

// StatisticsKey is the cache key GetStatistics uses for f.
func StatisticsKey(f model.StatisticsFilters) (string, error) {
	g, err := period.ParseGranularity(f.Periodicity)
	if err != nil {
		return "", err
	}
	f.Periodicity = string(g)
	return cache.Key("statistics", f)
}

// ─── Lookups ──────────────────────────────────────────────────────────────────

// GetCategories lists announcement types. It never fails: when the API
// cannot supply the list the built-in one is returned with Fallback set.
func (e *Engine) GetCategories(ctx context.Context) model.Lookup {
	return e.lookup(ctx, query.FieldCategory, refdata.DefaultCategories)
}

// GetSubCategories lists announcement families, with the same fallback
// behaviour as GetCategories.
func (e *Engine) GetSubCategories(ctx context.Context) model.Lookup {
	return e.lookup(ctx, query.FieldSubCategory, refdata.DefaultSubCategories)
}

func (e *Engine) lookup(ctx context.Context, field string, fallback func() []string) model.Lookup {
	vals, err := shared(ctx, e.lookups, "lookup:"+field, "facet values", e.opts.Timeout, func(ctx context.Context) ([]string, error) {
		vals, err := e.backend.FacetValues(ctx, field)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, &bodacc.MalformedResponseError{Endpoint: "facets", Reason: "empty value list for " + field}
		}
		return sortFrench(vals), nil
	})
	if err != nil {
		e.log.Warn("facet values unavailable, using built-in list", "field", field, "err", err)
		return model.Lookup{Field: field, Values: sortFrench(fallback()), Fallback: true, Reason: err.Error()}
	}
	return model.Lookup{Field: field, Values: append([]string(nil), vals...)}
}

// sortFrench orders values the way a French reader expects, so accented
// initials sort with their base letter.
func sortFrench(vals []string) []string {
	out := append([]string(nil), vals...)
	collate.New(language.French, collate.Loose).SortStrings(out)
	return out
}

// ─── Weather ──────────────────────────────────────────────────────────────────

// GetEconomicWeather compares per-department creation counts for the
// reference month against the month before it.
func (e *Engine) GetEconomicWeather(ctx context.Context) (*model.WeatherReport, error) {
	cur, prev, err := weather.Windows(e.opts.ReferenceMonth, e.opts.Now())
	if err != nil {
		return nil, &query.InvalidFiltersError{Field: "referenceMonth", Reason: err.Error()}
	}
	curParams, err := query.BuildCreationsParams(cur.From, cur.To, e.opts.CreationsOnly)
	if err != nil {
		return nil, err
	}
	prevParams, err := query.BuildCreationsParams(prev.From, prev.To, e.opts.CreationsOnly)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("weather:%s:%t", cur.From, e.opts.CreationsOnly)
	return shared(ctx, e.reports, key, "weather", e.opts.Timeout, func(ctx context.Context) (*model.WeatherReport, error) {
		var curCounts, prevCounts map[string]int
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() (err error) {
			curCounts, err = e.backend.DepartmentCounts(egCtx, curParams)
			return err
		})
		eg.Go(func() (err error) {
			prevCounts, err = e.backend.DepartmentCounts(egCtx, prevParams)
			return err
		})
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		return &model.WeatherReport{
			ReferenceFrom:  cur.From,
			ReferenceTo:    cur.To,
			ComparisonFrom: prev.From,
			ComparisonTo:   prev.To,
			Departments: weather.Compute(refdata.Departments(),
				normalizeCodes(curCounts), normalizeCodes(prevCounts), e.opts.Thresholds),
		}, nil
	})
}

func normalizeCodes(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for code, n := range counts {
		out[refdata.NormalizeDepartmentCode(code)] += n
	}
	return out
}

// ─── Cache control ────────────────────────────────────────────────────────────

// ClearCache drops every cached result.
func (e *Engine) ClearCache() {
	e.searches.Clear()
	e.statistics.Clear()
	e.lookups.Clear()
	e.reports.Clear()
}

// CacheStats reports activity per cache.
func (e *Engine) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"search":     e.searches.Stats(),
		"statistics": e.statistics.Stats(),
		"lookups":    e.lookups.Stats(),
		"weather":    e.reports.Stats(),
	}
}

// ─── Budgets ──────────────────────────────────────────────────────────────────

// shared fetches key through c. The fetch runs once for all concurrent
// callers under the engine's budget for op, detached from any single
// caller; ctx only bounds how long this caller waits for it.
func shared[T any](ctx context.Context, c *cache.Cache[T], key, op string, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	wait := budget
	if dl, ok := ctx.Deadline(); ok {
		wait = min(wait, time.Until(dl))
	}
	v, _, err := c.FetchWithCache(ctx, key, func(fctx context.Context) (T, error) {
		return withBudget(fctx, op, budget, fn)
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		var zero T
		return zero, budgetError(ctx, op, wait, err)
	}
	return v, err
}

// withBudget runs fn under a timeout and maps context failures onto the
// error taxonomy: ctx being cancelled yields ErrCanceled, the budget
// running out yields a single *bodacc.TimeoutError.
func withBudget[T any](ctx context.Context, op string, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	scoped, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	v, err := fn(scoped)
	if err == nil {
		return v, nil
	}
	var zero T
	if ctx.Err() != nil || errors.Is(scoped.Err(), context.DeadlineExceeded) {
		return zero, budgetError(ctx, op, budget, err)
	}
	return zero, err
}

func budgetError(ctx context.Context, op string, budget time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		if errors.Is(err, bodacc.ErrCanceled) {
			return err
		}
		return fmt.Errorf("%s: %w", op, bodacc.ErrCanceled)
	}
	return &bodacc.TimeoutError{Op: op, Budget: budget}
}

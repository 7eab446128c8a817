// Package model defines the canonical data types used throughout bodacc.
// These types are the single source of truth for BODACC announcements,
// statistics and weather readings, and the result envelope that every
// command returns.
package model

import (
	"time"
)

// ─── Filters ──────────────────────────────────────────────────────────────────

// SearchFilters describes one search request. The engine never mutates it.
// Empty or all-whitespace string fields are treated as absent.
type SearchFilters struct {
	Query       string `json:"query,omitempty" validate:"max=256"`
	Department  string `json:"department,omitempty" validate:"max=8"`
	Category    string `json:"category,omitempty" validate:"max=128"`
	SubCategory string `json:"subCategory,omitempty" validate:"max=128"`
	Tribunal    string `json:"tribunal,omitempty" validate:"max=256"`
	DateFrom    string `json:"dateFrom,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateTo      string `json:"dateTo,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Page        int    `json:"page,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Sort        string `json:"sort,omitempty" validate:"omitempty,sortfield"`
}

// StatisticsFilters describes one statistics request.
type StatisticsFilters struct {
	Department  string `json:"department,omitempty" validate:"max=8"`
	Category    string `json:"category,omitempty" validate:"max=128"`
	SubCategory string `json:"subCategory,omitempty" validate:"max=128"`
	Tribunal    string `json:"tribunal,omitempty" validate:"max=256"`
	DateFrom    string `json:"dateFrom" validate:"required,datetime=2006-01-02"`
	DateTo      string `json:"dateTo" validate:"required,datetime=2006-01-02"`
	Periodicity string `json:"periodicity" validate:"required"`
}

// ─── Announcements ────────────────────────────────────────────────────────────

// UnknownName is the display name used when a record carries no
// company or trader name.
const UnknownName = "Dénomination non spécifiée"

// Announcement is one published legal notice, normalised from whichever
// field-name generation the upstream API returned. ID is never empty.
type Announcement struct {
	ID                 string `json:"id"`
	Tribunal           string `json:"tribunal"`
	ParutionNumber     string `json:"parution_number"`
	AnnouncementNumber string `json:"announcement_number"`
	PublicationDate    string `json:"publication_date"`
	JudgmentDate       string `json:"judgment_date,omitempty"`
	Category           string `json:"category"`
	SubCategory        string `json:"sub_category"`
	Label              string `json:"label"`
	Type               string `json:"type"`
	Name               string `json:"name"`
	Address            string `json:"address"`
	PostalCode         string `json:"postal_code"`
	City               string `json:"city"`
	DepartmentCode     string `json:"department_code,omitempty"`
	Department         string `json:"department"`
	Region             string `json:"region"`
	Activity           string `json:"activity"`
	Capital            string `json:"capital"`
	Currency           string `json:"currency"`
	Detail             string `json:"detail"`
}

// SearchResponse is one page of search results. Results keep the order
// returned by the upstream API.
type SearchResponse struct {
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Results    []Announcement `json:"results"`
}

// ─── Statistics ───────────────────────────────────────────────────────────────

// FacetCounts is the raw per-period aggregate returned by the facet query.
type FacetCounts struct {
	Total         int            `json:"total"`
	Categories    map[string]int `json:"categories"`
	SubCategories map[string]int `json:"sub_categories"`
	Departments   map[string]int `json:"departments"`
}

// StatisticsPeriod is one period's aggregate.
type StatisticsPeriod struct {
	Key           string         `json:"key"`
	Period        string         `json:"period"` // display label
	Start         string         `json:"start"`
	End           string         `json:"end"`
	Count         int            `json:"count"`
	Categories    map[string]int `json:"categories"`
	SubCategories map[string]int `json:"sub_categories"`
	Departments   map[string]int `json:"departments"`
}

// FacetShare is one bucket of a global facet total with its share of the
// overall count.
type FacetShare struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PeriodEvolution compares one period with the previous period and with
// the same period one year earlier.
type PeriodEvolution struct {
	Key          string       `json:"key"`
	Period       string       `json:"period"`
	Count        int          `json:"count"`
	Previous     *int         `json:"previous,omitempty"`
	Evolution    *float64     `json:"evolution,omitempty"`
	State        WeatherState `json:"state,omitempty"`
	YearAgo      *int         `json:"year_ago,omitempty"`
	YearOverYear *float64     `json:"year_over_year,omitempty"`
	YearState    WeatherState `json:"year_state,omitempty"`
}

// StatisticsData is the full statistics result. TotalCount always equals
// the sum of every period's Count.
type StatisticsData struct {
	Periodicity      string             `json:"periodicity"`
	Periods          []StatisticsPeriod `json:"periods"`
	TotalCount       int                `json:"total_count"`
	AveragePerPeriod float64            `json:"average_per_period"`
	Categories       map[string]int     `json:"categories"`
	SubCategories    map[string]int     `json:"sub_categories"`
	Departments      map[string]int     `json:"departments"`
	TopCategories    []FacetShare       `json:"top_categories"`
	TopSubCategories []FacetShare       `json:"top_sub_categories"`
	TopDepartments   []FacetShare       `json:"top_departments"`
	Evolution        []PeriodEvolution  `json:"evolution,omitempty"`
}

// ─── Weather ──────────────────────────────────────────────────────────────────

// WeatherState is the three-state evolution indicator.
type WeatherState string

const (
	Sunny  WeatherState = "sunny"
	Cloudy WeatherState = "cloudy"
	Rainy  WeatherState = "rainy"
)

// DepartmentWeather is one department's economic-weather reading.
type DepartmentWeather struct {
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Current   int          `json:"current"`
	Previous  int          `json:"previous"`
	Evolution float64      `json:"evolution"`
	State     WeatherState `json:"state"`
}

// WeatherReport bundles the per-department readings with the two month
// windows that were compared.
type WeatherReport struct {
	ReferenceFrom  string              `json:"reference_from"`
	ReferenceTo    string              `json:"reference_to"`
	ComparisonFrom string              `json:"comparison_from"`
	ComparisonTo   string              `json:"comparison_to"`
	Departments    []DepartmentWeather `json:"departments"`
}

// ─── Lookups ──────────────────────────────────────────────────────────────────

// Lookup is a list of filter values (categories or sub-categories).
// Fallback is true when the values come from the built-in static list
// because the upstream facet endpoint could not be used; Reason says why.
type Lookup struct {
	Field    string   `json:"field"`
	Values   []string `json:"values"`
	Fallback bool     `json:"fallback"`
	Reason   string   `json:"reason,omitempty"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSearch     = "search"
	KindStatistics = "statistics"
	KindWeather    = "weather"
	KindLookup     = "lookup"
	KindTable      = "table"
)

// Table is a generic titled grid for listings that have no dedicated
// kind (store contents, snapshots, cache activity, configuration).
type Table struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

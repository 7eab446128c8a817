// Package period splits date ranges into month, quarter or year buckets
// and converts bucket keys back into calendar ranges.
//
// Keys are "2024-03" (month), "2024-T1" (quarter) and "2024" (year). Keys
// of one granularity sort chronologically as plain strings.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/derickschaefer/bodacc/internal/query"
	"github.com/derickschaefer/bodacc/internal/util"
)

// Granularity is the bucket size.
type Granularity string

const (
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// ParseGranularity accepts the canonical names and their common aliases.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month", "monthly", "m":
		return Month, nil
	case "quarter", "quarterly", "q":
		return Quarter, nil
	case "year", "yearly", "annual", "y":
		return Year, nil
	}
	return "", fmt.Errorf("unknown periodicity %q: use month, quarter, or year", s)
}

// Range is the inclusive calendar span of one period.
type Range struct {
	Start time.Time
	End   time.Time
}

// StartString returns Start as YYYY-MM-DD.
func (r Range) StartString() string { return util.FormatDate(r.Start) }

// EndString returns End as YYYY-MM-DD.
func (r Range) EndString() string { return util.FormatDate(r.End) }

// ─── Generation ───────────────────────────────────────────────────────────────

// Generate returns the keys of every period that overlaps [from, to], in
// ascending order. Iteration starts from the first day of the unit that
// contains from, so day-of-month differences never skip or repeat a
// period.
func Generate(from, to string, g Granularity) ([]string, error) {
	if err := query.AssertValidRange(from, to); err != nil {
		return nil, err
	}
	start, err := util.ParseDate(from)
	if err != nil {
		return nil, &query.InvalidFiltersError{Field: "dateFrom", Reason: err.Error()}
	}
	end, err := util.ParseDate(to)
	if err != nil {
		return nil, &query.InvalidFiltersError{Field: "dateTo", Reason: err.Error()}
	}
	step, err := months(g)
	if err != nil {
		return nil, err
	}

	var keys []string
	for cur := anchor(start, g); !cur.After(end); cur = cur.AddDate(0, step, 0) {
		keys = append(keys, keyOf(cur, g))
	}
	return keys, nil
}

// KeyOf returns the key of the period containing t.
func KeyOf(t time.Time, g Granularity) string {
	return keyOf(t, g)
}

func keyOf(t time.Time, g Granularity) string {
	switch g {
	case Quarter:
		return fmt.Sprintf("%04d-T%d", t.Year(), quarterOf(t.Month()))
	case Year:
		return fmt.Sprintf("%04d", t.Year())
	default:
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
	}
}

// anchor returns the first day of the unit containing t.
func anchor(t time.Time, g Granularity) time.Time {
	m := t.Month()
	switch g {
	case Quarter:
		m = time.Month((quarterOf(m)-1)*3 + 1)
	case Year:
		m = time.January
	}
	return time.Date(t.Year(), m, 1, 0, 0, 0, 0, time.UTC)
}

func months(g Granularity) (int, error) {
	switch g {
	case Month:
		return 1, nil
	case Quarter:
		return 3, nil
	case Year:
		return 12, nil
	}
	return 0, fmt.Errorf("unknown periodicity %q", g)
}

func quarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}

// ─── Key → Range ──────────────────────────────────────────────────────────────

// DateRange returns the first and last calendar day of the period named by
// key.
func DateRange(key string, g Granularity) (Range, error) {
	start, err := parseKey(key, g)
	if err != nil {
		return Range{}, err
	}
	step, _ := months(g)
	return Range{Start: start, End: start.AddDate(0, step, -1)}, nil
}

// parseKey returns the first day of the period named by key.
func parseKey(key string, g Granularity) (time.Time, error) {
	bad := fmt.Errorf("invalid %s period key %q", g, key)
	switch g {
	case Month:
		t, err := time.Parse("2006-01", key)
		if err != nil {
			return time.Time{}, bad
		}
		return t, nil
	case Quarter:
		y, q, ok := strings.Cut(key, "-T")
		if !ok || len(y) != 4 {
			return time.Time{}, bad
		}
		year, err1 := strconv.Atoi(y)
		n, err2 := strconv.Atoi(q)
		if err1 != nil || err2 != nil || n < 1 || n > 4 {
			return time.Time{}, bad
		}
		return time.Date(year, time.Month((n-1)*3+1), 1, 0, 0, 0, 0, time.UTC), nil
	case Year:
		if len(key) != 4 {
			return time.Time{}, bad
		}
		year, err := strconv.Atoi(key)
		if err != nil {
			return time.Time{}, bad
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unknown periodicity %q", g)
}

// Previous returns the key n periods before key. A negative n moves
// forward.
func Previous(key string, g Granularity, n int) (string, error) {
	start, err := parseKey(key, g)
	if err != nil {
		return "", err
	}
	step, _ := months(g)
	return keyOf(start.AddDate(0, -n*step, 0), g), nil
}

// PerYear is the number of periods of g in one year.
func PerYear(g Granularity) int {
	switch g {
	case Month:
		return 12
	case Quarter:
		return 4
	default:
		return 1
	}
}

// ─── Labels ───────────────────────────────────────────────────────────────────

var monthLabels = [12]string{"Jan", "Fév", "Mar", "Avr", "Mai", "Jun", "Jul", "Aoû", "Sep", "Oct", "Nov", "Déc"}

// Label formats key for display: "Mar 2024", "T1 2024", "2024". A key
// that does not parse is returned unchanged.
func Label(key string, g Granularity) string {
	start, err := parseKey(key, g)
	if err != nil {
		return key
	}
	switch g {
	case Month:
		return fmt.Sprintf("%s %d", monthLabels[start.Month()-1], start.Year())
	case Quarter:
		return fmt.Sprintf("T%d %d", quarterOf(start.Month()), start.Year())
	default:
		return strconv.Itoa(start.Year())
	}
}

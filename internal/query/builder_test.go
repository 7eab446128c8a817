package query_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/query"
)

func TestBuildSearchParamsScenario(t *testing.T) {
	p, err := query.BuildSearchParams(&model.SearchFilters{
		Query:      "dupont",
		Department: "75",
		DateFrom:   "2024-01-01",
		DateTo:     "2024-01-31",
		Page:       1,
		Limit:      20,
	})
	require.NoError(t, err)

	v := p.Values()
	assert.Equal(t, "20", v.Get("limit"))
	assert.Equal(t, "0", v.Get("offset"))
	assert.Equal(t, "dupont", v.Get("q"))

	where := v.Get("where")
	assert.Contains(t, where, "numerodepartement = '75'")
	assert.Contains(t, where, "dateparution >= date'2024-01-01'")
	assert.Contains(t, where, "dateparution <= date'2024-01-31'")
	assert.Equal(t, 3, strings.Count(where, " AND ")+1)

	enc := p.Encode()
	assert.Contains(t, enc, "limit=20")
	assert.Contains(t, enc, "offset=0")
}

func TestBuildSearchParamsPagination(t *testing.T) {
	cases := []struct {
		name        string
		page, limit int
		wantLimit   int
		wantOffset  int
	}{
		{"defaults", 0, 0, 20, 0},
		{"third page", 3, 25, 25, 50},
		{"limit clamped high", 2, 500, 100, 100},
		{"limit clamped low", 1, -4, 1, 0},
		{"page clamped", -2, 10, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := query.BuildSearchParams(&model.SearchFilters{Page: tc.page, Limit: tc.limit})
			require.NoError(t, err)
			assert.Equal(t, tc.wantLimit, p.Limit)
			assert.Equal(t, tc.wantOffset, p.Offset)
		})
	}
}

func TestBuildSearchParamsSort(t *testing.T) {
	p, err := query.BuildSearchParams(&model.SearchFilters{Sort: "-dateparution"})
	require.NoError(t, err)
	assert.Equal(t, "dateparution DESC", p.OrderBy)

	p, err = query.BuildSearchParams(&model.SearchFilters{Sort: "tribunal"})
	require.NoError(t, err)
	assert.Equal(t, "tribunal ASC", p.OrderBy)

	p, err = query.BuildSearchParams(&model.SearchFilters{Sort: "-date"})
	require.NoError(t, err)
	assert.Equal(t, "dateparution DESC", p.OrderBy)

	_, err = query.BuildSearchParams(&model.SearchFilters{Sort: "dateparution; DROP"})
	var filtersErr *query.InvalidFiltersError
	require.True(t, errors.As(err, &filtersErr))
	assert.Equal(t, "sort", filtersErr.Field)
}

func TestBuildSearchParamsWhitespaceIsAbsent(t *testing.T) {
	p, err := query.BuildSearchParams(&model.SearchFilters{
		Query:       "   ",
		Department:  "\t",
		Category:    " ",
		SubCategory: "",
		Tribunal:    "  ",
		DateFrom:    "  ",
	})
	require.NoError(t, err)
	assert.Empty(t, p.Where)
	assert.Empty(t, p.Query)
	assert.False(t, p.Values().Has("where"))
	assert.False(t, p.Values().Has("q"))
}

func TestBuildSearchParamsEscapesStructuredValues(t *testing.T) {
	p, err := query.BuildSearchParams(&model.SearchFilters{
		Category: "Vente d'un fonds",
		Tribunal: " Greffe d'Ajaccio ",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"typeavis_lib = 'Vente d''un fonds'",
		"tribunal = 'Greffe d''Ajaccio'",
	}, p.Where)
}

func TestBuildSearchParamsAllClauses(t *testing.T) {
	p, err := query.BuildSearchParams(&model.SearchFilters{
		Department:  "2A",
		Category:    "Modification",
		SubCategory: "Modifications diverses",
		Tribunal:    "Ajaccio",
		DateFrom:    "2024-01-01",
		DateTo:      "2024-06-30",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"numerodepartement = '2A' AND typeavis_lib = 'Modification' AND "+
			"familleavis_lib = 'Modifications diverses' AND tribunal = 'Ajaccio' AND "+
			"dateparution >= date'2024-01-01' AND dateparution <= date'2024-06-30'",
		p.WhereClause())
}

func TestBuildSearchParamsInvalid(t *testing.T) {
	_, err := query.BuildSearchParams(nil)
	var filtersErr *query.InvalidFiltersError
	require.True(t, errors.As(err, &filtersErr))

	_, err = query.BuildSearchParams(&model.SearchFilters{DateFrom: "2024-13-45"})
	require.True(t, errors.As(err, &filtersErr))
	assert.Equal(t, "dateFrom", filtersErr.Field)

	_, err = query.BuildSearchParams(&model.SearchFilters{Department: "123456789"})
	require.True(t, errors.As(err, &filtersErr))
	assert.Equal(t, "department", filtersErr.Field)

	_, err = query.BuildSearchParams(&model.SearchFilters{DateFrom: "2024-03-01", DateTo: "2024-02-01"})
	var rangeErr *query.InvalidRangeError
	assert.True(t, errors.As(err, &rangeErr))
}

func TestBuildSearchParamsDoesNotMutateFilters(t *testing.T) {
	f := &model.SearchFilters{Query: "  dupont ", Department: " 75 "}
	_, err := query.BuildSearchParams(f)
	require.NoError(t, err)
	assert.Equal(t, "  dupont ", f.Query)
	assert.Equal(t, " 75 ", f.Department)
}

func TestBuildStatisticsParams(t *testing.T) {
	f := &model.StatisticsFilters{Department: "13", Category: "Radiation"}
	p, err := query.BuildStatisticsParams(f, "2024-04-01", "2024-06-30")
	require.NoError(t, err)

	v := p.Values()
	assert.Equal(t, "0", v.Get("limit"))
	assert.False(t, v.Has("offset"))
	assert.False(t, v.Has("q"))
	assert.Equal(t, []string{"typeavis_lib", "familleavis_lib", "departement_nom_officiel"}, v["facet"])
	assert.Equal(t,
		"dateparution >= date'2024-04-01' AND dateparution <= date'2024-06-30' AND "+
			"numerodepartement = '13' AND typeavis_lib = 'Radiation'",
		v.Get("where"))

	_, err = query.BuildStatisticsParams(f, "2024-07-01", "2024-06-30")
	var rangeErr *query.InvalidRangeError
	assert.True(t, errors.As(err, &rangeErr))

	_, err = query.BuildStatisticsParams(nil, "2024-01-01", "2024-01-31")
	var filtersErr *query.InvalidFiltersError
	assert.True(t, errors.As(err, &filtersErr))
}

func TestBuildCreationsParams(t *testing.T) {
	p, err := query.BuildCreationsParams("2024-12-01", "2024-12-31", true)
	require.NoError(t, err)
	v := p.Values()
	assert.False(t, v.Has("limit"))
	assert.Equal(t, "numerodepartement, count(*) as count", v.Get("select"))
	assert.Equal(t, "numerodepartement", v.Get("group_by"))
	assert.Contains(t, v.Get("where"), "typeavis_lib IN ('Immatriculation','Avis de constitution')")

	p, err = query.BuildCreationsParams("2024-12-01", "2024-12-31", false)
	require.NoError(t, err)
	assert.NotContains(t, p.WhereClause(), "typeavis_lib")
}

// Package query turns search and statistics filters into request
// parameters for the Opendatasoft records, facets and aggregates
// endpoints. Every user-supplied value passes through exactly one of
// EscapeFreeText or EscapeStructuredValue before it reaches a clause.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/derickschaefer/bodacc/internal/model"
)

// Dataset field names used in clauses and facets.
const (
	FieldDepartmentCode = "numerodepartement"
	FieldDepartmentName = "departement_nom_officiel"
	FieldCategory       = "typeavis_lib"
	FieldSubCategory    = "familleavis_lib"
	FieldTribunal       = "tribunal"
	FieldPublished      = "dateparution"
	FieldName           = "commercant"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// creationsClause restricts aggregates to company creations.
const creationsClause = `typeavis_lib IN ('Immatriculation','Avis de constitution')`

// sortAliases maps friendly sort names to dataset fields.
var sortAliases = map[string]string{
	"date":        FieldPublished,
	"published":   FieldPublished,
	"name":        FieldName,
	"department":  FieldDepartmentCode,
	"category":    FieldCategory,
	"subcategory": FieldSubCategory,
	"tribunal":    FieldTribunal,
}

var sortPattern = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_]*$`)

// ─── Params ───────────────────────────────────────────────────────────────────

// Params is the full set of query parameters for one request.
type Params struct {
	Limit   int // -1 omits limit and offset
	Offset  int // sent whenever Limit > 0
	OrderBy string
	Query   string
	Where   []string
	Facets  []string
	Select  string
	GroupBy string
}

// WhereClause joins the structured clauses with AND.
func (p Params) WhereClause() string {
	return strings.Join(p.Where, " AND ")
}

// Values converts p to URL query values.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Limit >= 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Limit > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.OrderBy != "" {
		v.Set("order_by", p.OrderBy)
	}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if len(p.Where) > 0 {
		v.Set("where", p.WhereClause())
	}
	for _, f := range p.Facets {
		v.Add("facet", f)
	}
	if p.Select != "" {
		v.Set("select", p.Select)
	}
	if p.GroupBy != "" {
		v.Set("group_by", p.GroupBy)
	}
	return v
}

// Encode returns the URL-encoded query string.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// ─── Builders ─────────────────────────────────────────────────────────────────

// BuildSearchParams builds pagination, sort, free-text and structured
// clauses for a records search.
func BuildSearchParams(f *model.SearchFilters) (Params, error) {
	if f == nil {
		return Params{}, &InvalidFiltersError{Reason: "filters must not be nil"}
	}
	tf := trimSearchFilters(*f)
	f = &tf
	if err := Validate(f); err != nil {
		return Params{}, err
	}
	if err := AssertValidRange(f.DateFrom, f.DateTo); err != nil {
		return Params{}, err
	}

	limit := f.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	limit = max(1, min(MaxLimit, limit))
	page := max(1, f.Page)

	p := Params{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	orderBy, err := buildOrderBy(f.Sort)
	if err != nil {
		return Params{}, err
	}
	p.OrderBy = orderBy

	if q := strings.TrimSpace(f.Query); q != "" {
		p.Query = EscapeFreeText(q)
	}

	p.Where = structuredClauses(f.Department, f.Category, f.SubCategory, f.Tribunal)
	if d := strings.TrimSpace(f.DateFrom); d != "" {
		p.Where = append(p.Where, fmt.Sprintf("%s >= date'%s'", FieldPublished, EscapeStructuredValue(d)))
	}
	if d := strings.TrimSpace(f.DateTo); d != "" {
		p.Where = append(p.Where, fmt.Sprintf("%s <= date'%s'", FieldPublished, EscapeStructuredValue(d)))
	}
	return p, nil
}

// BuildStatisticsParams builds a zero-row facet query for one period.
func BuildStatisticsParams(f *model.StatisticsFilters, start, end string) (Params, error) {
	if f == nil {
		return Params{}, &InvalidFiltersError{Reason: "filters must not be nil"}
	}
	where, err := dateClauses(start, end)
	if err != nil {
		return Params{}, err
	}
	where = append(where, structuredClauses(f.Department, f.Category, f.SubCategory, f.Tribunal)...)
	return Params{
		Limit:  0,
		Where:  where,
		Facets: []string{FieldCategory, FieldSubCategory, FieldDepartmentName},
	}, nil
}

// BuildCreationsParams builds an aggregate query counting announcements
// per department code between from and to. With creationsOnly set, only
// registrations and incorporation notices are counted.
func BuildCreationsParams(from, to string, creationsOnly bool) (Params, error) {
	where, err := dateClauses(from, to)
	if err != nil {
		return Params{}, err
	}
	if creationsOnly {
		where = append(where, creationsClause)
	}
	return Params{
		Limit:   -1,
		Where:   where,
		Select:  FieldDepartmentCode + ", count(*) as count",
		GroupBy: FieldDepartmentCode,
	}, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// trimSearchFilters returns a copy of f with surrounding whitespace removed
// from every string, so all-whitespace values validate as absent.
func trimSearchFilters(f model.SearchFilters) model.SearchFilters {
	f.Query = strings.TrimSpace(f.Query)
	f.Department = strings.TrimSpace(f.Department)
	f.Category = strings.TrimSpace(f.Category)
	f.SubCategory = strings.TrimSpace(f.SubCategory)
	f.Tribunal = strings.TrimSpace(f.Tribunal)
	f.DateFrom = strings.TrimSpace(f.DateFrom)
	f.DateTo = strings.TrimSpace(f.DateTo)
	f.Sort = strings.TrimSpace(f.Sort)
	return f
}

func dateClauses(start, end string) ([]string, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, &InvalidFiltersError{Field: "period", Reason: "start and end dates are required"}
	}
	if err := AssertValidRange(start, end); err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("%s >= date'%s'", FieldPublished, EscapeStructuredValue(start)),
		fmt.Sprintf("%s <= date'%s'", FieldPublished, EscapeStructuredValue(end)),
	}, nil
}

func structuredClauses(department, category, subCategory, tribunal string) []string {
	var where []string
	add := func(field, value string) {
		if value = strings.TrimSpace(value); value != "" {
			where = append(where, fmt.Sprintf("%s = '%s'", field, EscapeStructuredValue(value)))
		}
	}
	add(FieldDepartmentCode, department)
	add(FieldCategory, category)
	add(FieldSubCategory, subCategory)
	add(FieldTribunal, tribunal)
	return where
}

// buildOrderBy turns "-field" into "field DESC" and "field" into
// "field ASC". Field names cannot be quoted in order_by, so anything other
// than a plain identifier is rejected.
func buildOrderBy(sort string) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return "", nil
	}
	if !sortPattern.MatchString(sort) {
		return "", &InvalidFiltersError{Field: "sort", Reason: fmt.Sprintf("%q is not a field name", sort)}
	}
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	field := strings.ToLower(sort)
	if alias, ok := sortAliases[field]; ok {
		field = alias
	}
	return field + " " + dir, nil
}

// ─── Validation ───────────────────────────────────────────────────────────────

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag == "" || tag == "-" {
			return fld.Name
		}
		return tag
	})

	_ = v.RegisterValidation("sortfield", func(fl validator.FieldLevel) bool {
		return sortPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

// Validate checks a filter struct against its validate tags and reports
// the first failure as *InvalidFiltersError.
func Validate(filters any) error {
	err := validate.Struct(filters)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InvalidFiltersError{Field: fe.Field(), Reason: describe(fe)}
	}
	return &InvalidFiltersError{Reason: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "datetime":
		return fmt.Sprintf("%v is not a YYYY-MM-DD date", fe.Value())
	case "sortfield":
		return fmt.Sprintf("%v is not a field name optionally prefixed with '-'", fe.Value())
	default:
		return "failed " + fe.Tag() + " check"
	}
}

package bodacc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/query"
)

// ─── Search ───────────────────────────────────────────────────────────────────

type rawFacet struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

func (f rawFacet) label() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Value
}

type rawFacetGroup struct {
	Name   string     `json:"name"`
	Facets []rawFacet `json:"facets"`
}

// rawRecordsResponse covers both the v2 envelope (records[].record) and
// the flat v2.1 shape (results[]).
type rawRecordsResponse struct {
	TotalCount *int `json:"total_count"`
	Records    *[]struct {
		Record map[string]any `json:"record"`
	} `json:"records"`
	Results     *[]map[string]any `json:"results"`
	FacetGroups []rawFacetGroup   `json:"facet_groups"`
}

// Search fetches one page of announcements. Results keep the order the
// API returned them in.
func (c *Client) Search(ctx context.Context, p query.Params) (*model.SearchResponse, error) {
	var raw rawRecordsResponse
	if err := c.get(ctx, c.recordsEndpoint(), p.Values(), &raw); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var records []map[string]any
	switch {
	case raw.Records != nil:
		records = make([]map[string]any, 0, len(*raw.Records))
		for _, r := range *raw.Records {
			records = append(records, r.Record)
		}
	case raw.Results != nil:
		records = *raw.Results
	default:
		return nil, fmt.Errorf("search: %w", &MalformedResponseError{
			Endpoint: "records", Reason: "neither records nor results present",
		})
	}

	out := &model.SearchResponse{
		Limit:   p.Limit,
		Page:    1,
		Results: make([]model.Announcement, 0, len(records)),
	}
	if p.Limit > 0 {
		out.Page = p.Offset/p.Limit + 1
	}
	if raw.TotalCount != nil {
		out.TotalCount = *raw.TotalCount
	} else {
		out.TotalCount = len(records)
	}
	for _, r := range records {
		out.Results = append(out.Results, MapRecord(r))
	}
	return out, nil
}

// ─── Statistics ───────────────────────────────────────────────────────────────

// PeriodFacets runs a zero-row facet query and returns the total and the
// category, sub-category and department breakdowns.
func (c *Client) PeriodFacets(ctx context.Context, p query.Params) (model.FacetCounts, error) {
	var raw rawRecordsResponse
	if err := c.get(ctx, c.recordsEndpoint(), p.Values(), &raw); err != nil {
		return model.FacetCounts{}, fmt.Errorf("period facets: %w", err)
	}
	if raw.TotalCount == nil && raw.FacetGroups == nil {
		return model.FacetCounts{}, fmt.Errorf("period facets: %w", &MalformedResponseError{
			Endpoint: "records", Reason: "neither total_count nor facet_groups present",
		})
	}

	fc := model.FacetCounts{
		Categories:    map[string]int{},
		SubCategories: map[string]int{},
		Departments:   map[string]int{},
	}
	if raw.TotalCount != nil {
		fc.Total = *raw.TotalCount
	}
	for _, g := range raw.FacetGroups {
		var dst map[string]int
		switch g.Name {
		case query.FieldCategory:
			dst = fc.Categories
		case query.FieldSubCategory:
			dst = fc.SubCategories
		case query.FieldDepartmentName:
			dst = fc.Departments
		default:
			continue
		}
		for _, f := range g.Facets {
			if name := f.label(); name != "" {
				dst[name] += f.Count
			}
		}
	}
	return fc, nil
}

// DepartmentCounts runs an aggregate query grouped by department code.
func (c *Client) DepartmentCounts(ctx context.Context, p query.Params) (map[string]int, error) {
	var raw struct {
		Results *[]map[string]any `json:"results"`
	}
	if err := c.get(ctx, c.aggregatesEndpoint(), p.Values(), &raw); err != nil {
		return nil, fmt.Errorf("department counts: %w", err)
	}
	if raw.Results == nil {
		return nil, fmt.Errorf("department counts: %w", &MalformedResponseError{
			Endpoint: "aggregates", Reason: "results missing",
		})
	}
	out := make(map[string]int, len(*raw.Results))
	for _, row := range *raw.Results {
		code, ok := stringOf(row[query.FieldDepartmentCode])
		if !ok {
			continue
		}
		n, _ := intOf(row["count"])
		out[code] += n
	}
	return out, nil
}

// ─── Facet values ─────────────────────────────────────────────────────────────

// FacetValues lists the distinct values of field. The dedicated facets
// endpoint is tried first, then a zero-row records query with the facet
// requested. The first recognised shape wins.
func (c *Client) FacetValues(ctx context.Context, field string) ([]string, error) {
	var direct map[string]any
	if err := c.get(ctx, c.facetsEndpoint(field), url.Values{}, &direct); err == nil {
		for _, k := range []string{"buckets", "facets"} {
			if vals, ok := direct[k].([]any); ok {
				return facetNames(vals), nil
			}
		}
	} else if ctx.Err() != nil {
		return nil, fmt.Errorf("facet values %s: %w", field, err)
	}

	params := url.Values{}
	params.Set("limit", "0")
	params.Add("facet", field)
	var raw map[string]any
	if err := c.get(ctx, c.recordsEndpoint(), params, &raw); err != nil {
		return nil, fmt.Errorf("facet values %s: %w", field, err)
	}

	if groups, ok := raw["facet_groups"].([]any); ok {
		for _, g := range groups {
			gm, _ := g.(map[string]any)
			if name, _ := gm["name"].(string); name == field {
				if vals, ok := gm["facets"].([]any); ok {
					return facetNames(vals), nil
				}
			}
		}
	}
	if pm, ok := raw["parameters"].(map[string]any); ok {
		if facets, ok := pm["facets"].(map[string]any); ok {
			if vals, ok := facets[field].([]any); ok {
				return facetNames(vals), nil
			}
		}
	}
	if vals, ok := raw["facets"].([]any); ok {
		return facetNames(vals), nil
	}
	if vals, ok := raw[field].([]any); ok {
		return facetNames(vals), nil
	}
	return nil, fmt.Errorf("facet values %s: %w", field, &MalformedResponseError{
		Endpoint: "records", Reason: "no facet container found for " + field,
	})
}

// facetNames extracts non-empty names from facet entries, which may be
// objects carrying name or value, or bare strings.
func facetNames(vals []any) []string {
	seen := make(map[string]bool, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		var name string
		switch t := v.(type) {
		case string:
			name = t
		case map[string]any:
			if s, ok := stringOf(t["name"]); ok {
				name = s
			} else if s, ok := stringOf(t["value"]); ok {
				name = s
			}
		}
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func intOf(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case int:
		return t, true
	}
	return 0, false
}

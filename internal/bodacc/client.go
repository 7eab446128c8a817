// Package bodacc implements the HTTP client for the BODACC datasets
// published on Opendatasoft. All methods are context-aware and respect the
// shared rate limiter. Requests are attempted once; retry is left to the
// caller.
package bodacc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://bodacc-datadila.opendatasoft.com/api/"
	DefaultDataset = "annonces-commerciales"

	userAgent = "bodacc-cli/1.0"
)

// Client is the Opendatasoft API HTTP client for one dataset.
type Client struct {
	baseURL    string
	dataset    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
}

// NewClient creates a Client. An empty baseURL or dataset selects the
// public BODACC defaults.
func NewClient(baseURL, dataset string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if dataset == "" {
		dataset = DefaultDataset
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	return &Client{
		baseURL: baseURL,
		dataset: dataset,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		debug:   debug,
	}
}

// ─── Endpoints ────────────────────────────────────────────────────────────────

func (c *Client) recordsEndpoint() string {
	return "v2/catalog/datasets/" + url.PathEscape(c.dataset) + "/records"
}

func (c *Client) facetsEndpoint(field string) string {
	return "v2/catalog/datasets/" + url.PathEscape(c.dataset) + "/facets/" + url.PathEscape(field)
}

func (c *Client) aggregatesEndpoint() string {
	return "explore/v2.1/catalog/datasets/" + url.PathEscape(c.dataset) + "/aggregates"
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// get performs one GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	op := opName(endpoint)
	if err := c.limiter.Wait(ctx); err != nil {
		return classify(ctx, op, c.timeout, err)
	}

	reqURL := c.baseURL + endpoint
	if enc := params.Encode(); enc != "" {
		reqURL += "?" + enc
	}
	if c.debug {
		slog.Debug("bodacc request", "url", reqURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(ctx, op, c.timeout, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return classify(ctx, op, c.timeout, fmt.Errorf("reading body: %w", err))
	}

	if c.debug {
		slog.Debug("bodacc response", "status", resp.StatusCode, "bytes", len(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamHTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &MalformedResponseError{Endpoint: op, Reason: err.Error()}
	}
	return nil
}

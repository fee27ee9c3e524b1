// Package freightapi provides a client for the air-freight-cost safety-sheet endpoint.
package freightapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theirongolddev/freightdash/internal/model"
)

const (
	// DefaultBaseURL is the production host of the freight-cost API.
	DefaultBaseURL = "https://pel.quadworld.in"
	// DefaultClientID is the client the dashboard was built for.
	DefaultClientID = model.DefaultClientID
	// DefaultType is the aggregation type requested by the dashboard.
	DefaultType = model.DefaultType

	safetySheetPath = "/air-freight-cost/aggregate/safety-sheet"
	requestTimeout  = 30 * time.Second
	maxBodySize     = 16 << 20 // 16 MB
	userAgent       = "freightdash/1.0"
)

var (
	// ErrNoToken indicates no bearer token is configured.
	ErrNoToken = errors.New("freightapi: no token found")
	// ErrUnauthorized indicates the token is expired or invalid.
	ErrUnauthorized = errors.New("freightapi: unauthorized (token expired or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("freightapi: rate limited")
)

// StatusError is returned for any other non-success response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "freightapi: network response was not ok: " + e.Status
}

// Client fetches safety-sheet reports with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL and token.
// An empty base URL selects DefaultBaseURL.
func NewClient(baseURL, token string) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("freightapi: invalid base url %q: %w", baseURL, err)
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{},
	}, nil
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch fetches and decodes the report for q.
func (c *Client) Fetch(ctx context.Context, q model.Query) ([]model.ReportItem, error) {
	body, err := c.FetchRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// FetchRaw fetches the raw JSON body for q so callers can cache it as-is.
func (c *Client) FetchRaw(ctx context.Context, q model.Query) ([]byte, error) {
	return c.get(ctx, safetySheetPath, queryValues(q))
}

// RequestURL returns the full request URL for q.
func (c *Client) RequestURL(q model.Query) string {
	return c.baseURL + safetySheetPath + "?" + queryValues(q).Encode()
}

// Decode parses a safety-sheet response body. A JSON null decodes to an
// empty report.
func Decode(body []byte) ([]model.ReportItem, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var items []model.ReportItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("freightapi: parsing report: %w", err)
	}
	return items, nil
}

func queryValues(q model.Query) url.Values {
	q = q.Normalized()
	v := url.Values{}
	v.Set("clientId", q.ClientID)
	v.Set("invoiceDate", q.InvoiceDate())
	v.Set("type", q.Type)
	v.Set("plant", q.Plant)
	return v
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("freightapi: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	//nolint:gosec // URL host comes from local configuration
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freightapi: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("freightapi: reading response: %w", err)
	}
	return body, nil
}

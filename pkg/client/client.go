package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kurihiro0119/rum-count/internal/report"
)

// Client is the API client for the rum-count report server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// a report triggers a full collection run on the server
			Timeout: 10 * time.Minute,
		},
	}
}

// GetReport retrieves the full report, optionally restricted to one organization
func (c *Client) GetReport(ctx context.Context, org string) (*report.Document, error) {
	var response struct {
		Data *report.Document `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/report", orgParams(org), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetSummary retrieves the per-organization subtotals and the grand total
func (c *Client) GetSummary(ctx context.Context, org string) (*report.Summary, error) {
	var response struct {
		Data *report.Summary `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/report/summary", orgParams(org), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func orgParams(org string) url.Values {
	if org == "" {
		return nil
	}
	return url.Values{"org": {org}}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

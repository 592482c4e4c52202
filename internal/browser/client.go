// Package browser provides a client for the headless browser sidecar that
// renders listing pages and extracts structured details from them.
package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oneviewsg/rental-ai-platform/internal/properties"
	"github.com/oneviewsg/rental-ai-platform/pkg/logging"
)

// ScrapeRequest asks the sidecar to render a listing page and extract its
// details.
type ScrapeRequest struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout,omitempty"` // milliseconds, default 30000
}

// ScrapeResponse is the sidecar's extraction result for a single listing.
type ScrapeResponse struct {
	Success   bool              `json:"success"`
	URL       string            `json:"url"`
	Title     string            `json:"title,omitempty"`
	Address   string            `json:"address,omitempty"`
	Facts     map[string]string `json:"facts,omitempty"`
	ScrapedAt string            `json:"scrapedAt"`
	Error     string            `json:"error,omitempty"`
}

// HealthResponse is the health check response from the sidecar.
type HealthResponse struct {
	Status       string `json:"status"` // ok, degraded, error
	Version      string `json:"version"`
	BrowserReady bool   `json:"browserReady"`
	Uptime       int    `json:"uptime"` // seconds
}

// Client is an HTTP client for the browser sidecar service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new browser sidecar client.
// baseURL should be the sidecar service URL (e.g., "http://localhost:3000").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Health checks the health of the browser sidecar.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("browser: create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("browser: health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("browser: health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("browser: decode health response: %w", err)
	}

	return &health, nil
}

// IsReady checks if the browser sidecar is ready to accept requests.
func (c *Client) IsReady(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ScrapeListing renders a listing page and extracts its details.
func (c *Client) ScrapeListing(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("browser: url is required")
	}
	if req.Timeout == 0 {
		req.Timeout = 30000
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("browser: marshal request: %w", err)
	}

	c.logger.Debug("scraping listing", "url", req.URL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("browser: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("browser: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("browser: decode response: %w", err)
	}

	if !result.Success {
		c.logger.Warn("listing scrape failed", "error", result.Error, "url", req.URL)
	} else {
		c.logger.Info("listing scraped", "url", req.URL, "title", result.Title, "facts", len(result.Facts))
	}

	return &result, nil
}

// Scrape implements properties.Scraper on top of the sidecar.
func (c *Client) Scrape(ctx context.Context, url string) (*properties.Listing, error) {
	resp, err := c.ScrapeListing(ctx, ScrapeRequest{URL: url})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("browser: scrape failed: %s", resp.Error)
	}
	return &properties.Listing{
		Title:   resp.Title,
		Address: resp.Address,
		Facts:   resp.Facts,
	}, nil
}

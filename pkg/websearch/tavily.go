// Package websearch provides a Tavily-backed web search client.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config configures the Tavily client.
type Config struct {
	// APIKey for the Tavily API (required).
	APIKey string

	// BaseURL for the API (default: https://api.tavily.com).
	BaseURL string

	// MaxResults caps the number of returned snippets (default: 3).
	MaxResults int

	// Timeout for API requests (default: 15s).
	Timeout time.Duration
}

// Client searches the web via Tavily.
type Client struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	maxResults int
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Content string `json:"content"`
	} `json:"results"`
}

// New creates a Tavily client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Tavily")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		client:     &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
	}, nil
}

// Search returns the content snippets of the top web hits. Search never
// fails: any transport or decoding problem is logged and yields an empty
// slice, so a web outage degrades retrieval instead of breaking the turn.
func (c *Client) Search(ctx context.Context, query string) []string {
	req := tavilyRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  c.maxResults,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		slog.Warn("web search request marshal failed", "error", err)
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		slog.Warn("web search request creation failed", "error", err)
		return nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		slog.Warn("web search request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("web search response read failed", "error", err)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("web search returned non-OK status", "status", resp.StatusCode)
		return nil
	}

	var decoded tavilyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		slog.Warn("web search response decode failed", "error", err)
		return nil
	}

	snippets := make([]string, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if len(snippets) >= c.maxResults {
			break
		}
		snippets = append(snippets, r.Content)
	}
	return snippets
}

package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://en.wikipedia.org"

// Result is one article summary.
type Result struct {
	Title   string
	Summary string
	URL     string
}

// Client fetches article summaries from the Wikipedia REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL points the client at a different endpoint, used in tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Content struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Summary looks up the article summary for a query. The query is used
// as the page title with spaces folded to underscores.
func (c *Client) Summary(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("wiki: query required")
	}

	title := url.PathEscape(strings.ReplaceAll(query, " ", "_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rest_v1/page/summary/"+title, nil)
	if err != nil {
		return nil, fmt.Errorf("wiki: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiki: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("wiki: no article for %q", query)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki: unexpected status %d", resp.StatusCode)
	}

	var body summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("wiki: decode response: %w", err)
	}
	if body.Extract == "" {
		return nil, fmt.Errorf("wiki: empty summary for %q", query)
	}

	return &Result{
		Title:   body.Title,
		Summary: body.Extract,
		URL:     body.Content.Desktop.Page,
	}, nil
}

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const duckDuckGoEndpoint = "https://api.duckduckgo.com/"

// WebSearch queries the DuckDuckGo instant answer API and returns abstract
// text plus related topic snippets.
type WebSearch struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
}

// WebSearchOption customizes the search tool.
type WebSearchOption func(*WebSearch)

// WithSearchEndpoint overrides the upstream URL (for tests).
func WithSearchEndpoint(endpoint string) WebSearchOption {
	return func(w *WebSearch) {
		if strings.TrimSpace(endpoint) != "" {
			w.endpoint = endpoint
		}
	}
}

// WithSearchHTTPClient injects a custom HTTP client.
func WithSearchHTTPClient(hc *http.Client) WebSearchOption {
	return func(w *WebSearch) {
		if hc != nil {
			w.httpClient = hc
		}
	}
}

// NewWebSearch builds the web search tool. maxResults bounds how many
// snippets one invocation returns; values <= 0 default to 5.
func NewWebSearch(maxResults int, opts ...WebSearchOption) *WebSearch {
	if maxResults <= 0 {
		maxResults = 5
	}
	search := &WebSearch{
		endpoint:   duckDuckGoEndpoint,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(search)
	}
	return search
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Description() string {
	return "Search the web for current information, research, and examples. Input is a search query."
}

type duckDuckGoTopic struct {
	Text   string            `json:"Text"`
	Topics []duckDuckGoTopic `json:"Topics"`
}

type duckDuckGoResponse struct {
	AbstractText  string            `json:"AbstractText"`
	AbstractURL   string            `json:"AbstractURL"`
	RelatedTopics []duckDuckGoTopic `json:"RelatedTopics"`
}

// Invoke performs one search. An empty result set is reported as an error so
// the invocation record shows the tool produced nothing.
func (w *WebSearch) Invoke(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search upstream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search upstream: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	var parsed duckDuckGoResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	snippets := make([]string, 0, w.maxResults)
	if text := strings.TrimSpace(parsed.AbstractText); text != "" {
		snippets = append(snippets, text)
	}
	snippets = appendTopics(snippets, parsed.RelatedTopics, w.maxResults)
	if len(snippets) == 0 {
		return "", fmt.Errorf("no results for %q", query)
	}
	return strings.Join(snippets, "\n\n"), nil
}

func appendTopics(snippets []string, topics []duckDuckGoTopic, max int) []string {
	for _, topic := range topics {
		if len(snippets) >= max {
			break
		}
		if text := strings.TrimSpace(topic.Text); text != "" {
			snippets = append(snippets, text)
		}
		if len(topic.Topics) > 0 {
			snippets = appendTopics(snippets, topic.Topics, max)
		}
	}
	return snippets
}

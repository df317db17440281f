package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EndpointSearcher queries an external retrieval service over HTTP. The
// service owns ingestion, chunking, and embedding; this side only sends the
// query and maps the hits back into snippets.
type EndpointSearcher struct {
	endpoint   string
	httpClient *http.Client
}

// EndpointSearcherOption customizes an EndpointSearcher.
type EndpointSearcherOption func(*EndpointSearcher)

// WithSearcherHTTPClient overrides the HTTP client.
func WithSearcherHTTPClient(hc *http.Client) EndpointSearcherOption {
	return func(s *EndpointSearcher) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// NewEndpointSearcher builds a searcher for the given retrieval endpoint.
func NewEndpointSearcher(endpoint string, opts ...EndpointSearcherOption) (*EndpointSearcher, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("tool: retrieval endpoint is required")
	}
	searcher := &EndpointSearcher{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(searcher)
	}
	return searcher, nil
}

type retrievalRequest struct {
	Query string `json:"query"`
}

type retrievalDocument struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

type retrievalResponse struct {
	Documents []retrievalDocument `json:"documents"`
}

// Search posts the query and returns the service's document hits.
func (s *EndpointSearcher) Search(ctx context.Context, query string) ([]Snippet, error) {
	body, err := json.Marshal(retrievalRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("tool: encode retrieval request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tool: build retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool: retrieval request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tool: retrieval endpoint returned status %d", resp.StatusCode)
	}

	var parsed retrievalResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("tool: decode retrieval response: %w", err)
	}
	snippets := make([]Snippet, 0, len(parsed.Documents))
	for _, doc := range parsed.Documents {
		snippets = append(snippets, Snippet{Source: doc.Source, Content: doc.Content})
	}
	return snippets, nil
}

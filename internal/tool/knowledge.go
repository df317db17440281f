package tool

import (
	"context"
	"fmt"
	"strings"
)

// Snippet is one chunk returned by the retrieval subsystem.
type Snippet struct {
	Source  string
	Content string
}

// Searcher is the only surface of the retrieval/ingestion subsystem this
// repo consumes. Chunking, embedding, and vector storage live behind it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
}

// KnowledgeBase exposes a Searcher as an agent tool.
type KnowledgeBase struct {
	searcher Searcher
}

// NewKnowledgeBase wraps the retrieval collaborator.
func NewKnowledgeBase(searcher Searcher) *KnowledgeBase {
	return &KnowledgeBase{searcher: searcher}
}

func (k *KnowledgeBase) Name() string { return "knowledge_base_search" }

func (k *KnowledgeBase) Description() string {
	return "Search the internal knowledge base of previously ingested documents. Input is a search query."
}

// Invoke retrieves matching chunks and formats them for the model.
func (k *KnowledgeBase) Invoke(ctx context.Context, query string) (string, error) {
	if k.searcher == nil {
		return "", fmt.Errorf("knowledge base is not available")
	}
	snippets, err := k.searcher.Search(ctx, strings.TrimSpace(query))
	if err != nil {
		return "", fmt.Errorf("knowledge base: %w", err)
	}
	if len(snippets) == 0 {
		return "", fmt.Errorf("no relevant documents for %q", query)
	}
	var b strings.Builder
	for i, snippet := range snippets {
		source := snippet.Source
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&b, "[Document %d - Source: %s]\n%s\n\n", i+1, source, snippet.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

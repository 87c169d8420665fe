// Package search provides shared search types and logic for semantic search
// over ingested documents. It is used by both the REST API endpoint and the
// MCP server tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

// DefaultTopK is used when a request does not ask for a specific count.
const DefaultTopK = 5

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query is required")

// Retriever embeds query text and returns the most similar documents.
type Retriever interface {
	Retrieve(ctx context.Context, text string, k int) ([]vector.QueryResult, error)
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search runs a semantic search. A non-positive topK selects DefaultTopK.
func Search(
	ctx context.Context,
	query string,
	topK int,
	retriever Retriever,
	logger *slog.Logger,
) (*SearchOutput, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger.Debug("search request",
		"query", query,
		"top_k", topK,
	)

	matches, err := retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	return &SearchOutput{
		Query:   query,
		Results: Results(matches),
		Count:   len(matches),
	}, nil
}

// Results converts vector matches into search results, keeping their order.
func Results(matches []vector.QueryResult) []SearchResult {
	out := make([]SearchResult, len(matches))
	for i, m := range matches {
		out[i] = SearchResult{ID: m.ID, Score: m.Score, Text: m.Text}
	}
	return out
}

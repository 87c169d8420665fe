package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/ragloop/api/search"
)

var (
	searchToolName    = "search"
	searchDescription = "Search the knowledge base using semantic search. Returns the most relevant document chunks for the query text with their similarity scores."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant documents"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, apisearch.SearchOutput, error) {
	logger := s.config.Logger

	output, err := apisearch.Search(ctx, input.Query, input.TopK, s.config.Loop, logger)
	if err != nil {
		logger.Error("MCP search failed", "error", err)
		return toolError(fmt.Sprintf("Search failed: %v", err)), apisearch.SearchOutput{}, nil
	}

	// Tools returning structured content also return it serialized as text
	// for clients that only read TextContent.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), apisearch.SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, *output, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/ragloop/api/search"
	"github.com/papercomputeco/ragloop/pkg/rag"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a question using the knowledge base. Retrieves relevant documents, passes them to the language model as context, and returns the answer along with the documents used."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of documents to retrieve as context"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer  string                   `json:"answer"`
	TraceID string                   `json:"trace_id"`
	Context []apisearch.SearchResult `json:"context"`
}

// handleAsk runs one exchange of the conversation loop with no history.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	var opts []rag.RespondOption
	if input.TopK > 0 {
		opts = append(opts, rag.WithTopK(input.TopK))
	}

	reply, err := s.config.Loop.Respond(ctx, input.Question, nil, opts...)
	if err != nil {
		logger.Error("MCP ask failed", "error", err)
		return toolError(fmt.Sprintf("Failed to answer: %v", err)), AskOutput{}, nil
	}

	output := AskOutput{
		Answer:  reply.Text,
		TraceID: reply.TraceID,
		Context: apisearch.Results(reply.Matches),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize answer: %v", err)), AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

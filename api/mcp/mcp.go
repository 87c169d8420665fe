// Package mcp provides an MCP (Model Context Protocol) server exposing
// ragloop's retrieval and question answering as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/rag"
	"github.com/papercomputeco/ragloop/pkg/utils"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// Responder is the conversation loop the tools run against.
type Responder interface {
	Retrieve(ctx context.Context, text string, k int) ([]vector.QueryResult, error)
	Respond(ctx context.Context, userText string, history []llm.ConversationTurn, opts ...rag.RespondOption) (*rag.Reply, error)
}

type Config struct {
	// Loop answers questions and retrieves documents.
	Loop Responder

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the search and ask tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "ragloop",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Loop == nil {
			return nil, errors.New("conversation loop is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        askToolName,
			Description: askDescription,
		}, s.handleAsk)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

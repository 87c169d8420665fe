// Package api provides the HTTP API server for chatting with, searching, and
// loading the knowledge base.
package api

import (
	apisearch "github.com/papercomputeco/ragloop/api/search"
	"github.com/papercomputeco/ragloop/pkg/ingest"
	"github.com/papercomputeco/ragloop/pkg/rag"
	"github.com/papercomputeco/ragloop/pkg/session"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Loop serves chat. The chat and session routes return 503 without it.
	Loop *rag.Loop

	// Retriever serves search and defaults to Loop. It lets a server built
	// without a completion provider still answer search requests.
	Retriever apisearch.Retriever

	// Index backs the document count and clear routes.
	Index vector.Driver

	// Ingester backs document uploads.
	Ingester *ingest.Ingester

	// Sessions enables server-side conversation history. Optional.
	Sessions *session.Store

	// EnableMCP mounts the MCP server at /mcp.
	EnableMCP bool

	// Tracing wraps every request in an OpenTelemetry span.
	Tracing bool
}

package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"

	apimcp "github.com/papercomputeco/ragloop/api/mcp"
)

// Server is the API server for the ragloop service
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// Components are injected so the caller owns their lifecycle.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Retriever == nil && config.Loop != nil {
		config.Retriever = config.Loop
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	if config.Tracing {
		app.Use(otelfiber.Middleware())
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/chat", s.handleChat)
	v1.Post("/sessions", s.handleStartSession)
	v1.Get("/sessions/:id", s.handleGetSession)
	v1.Delete("/sessions/:id", s.handleEndSession)
	v1.Post("/documents", s.handleAddDocument)
	v1.Get("/documents/count", s.handleCountDocuments)
	v1.Delete("/documents", s.handleClearDocuments)
	v1.Get("/search", s.handleSearchEndpoint)

	if config.EnableMCP && config.Loop != nil {
		mcpServer, err := apimcp.NewServer(apimcp.Config{
			Loop:   config.Loop,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

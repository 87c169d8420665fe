// Package servecmder provides the serve command that runs the ragloop API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragloop/api"
	"github.com/papercomputeco/ragloop/pkg/config"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/session"
	"github.com/papercomputeco/ragloop/pkg/stack"
)

type serveCommander struct {
	flags serveFlags

	ingestDir string
	watch     bool
	jsonLogs  bool
	debug     bool

	cfg    *config.Config
	logger *slog.Logger
}

// serveFlags are bound into the config through the shared flag registry.
type serveFlags struct {
	listen          string
	provider        string
	upstream        string
	model           string
	embeddingProv   string
	embeddingTarget string
	embeddingModel  string
	embeddingDims   uint
	vectorProv      string
	vectorTarget    string
	topK            int
	chunkSize       int
	chunkOverlap    int
	telemetryProv   string
	telemetryTarget string
	traceStore      string
	logFile         string
}

var boundFlags = []string{
	config.FlagAPIListen,
	config.FlagCompletionProv,
	config.FlagCompletionTgt,
	config.FlagCompletionModel,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagTopK,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagTelemetryProv,
	config.FlagTelemetryTgt,
	config.FlagTraceStore,
	config.FlagLogFile,
}

const serveLongDesc string = `Run the ragloop API server.

The server answers chat requests with retrieval-augmented generation over the
configured vector store, exposes document upload and search routes, and mounts
an MCP server at /mcp.

Use --ingest to bulk load a directory of .txt and .md files before serving,
and --watch to keep loading files that appear in it afterwards.

Examples:
  ragloop serve --ingest ./docs
  ragloop serve --provider anthropic --embedding-provider openai
  ragloop serve --vector-store-provider sqlite --vector-store-target ./vectors.db`

const serveShortDesc string = "Run the ragloop API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.cfg, err = config.ResolveCommand(cmd, config.Flags, boundFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.watch && cmder.ingestDir == "" {
				return fmt.Errorf("--watch requires --ingest")
			}
			cmder.logger = cmder.newLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx)
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionProv, &f.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionTgt, &f.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionModel, &f.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &f.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &f.vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &f.topK)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &f.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &f.chunkOverlap)
	config.AddStringFlag(cmd, config.Flags, config.FlagTelemetryProv, &f.telemetryProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagTelemetryTgt, &f.telemetryTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagTraceStore, &f.traceStore)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &f.logFile)

	cmd.Flags().StringVarP(&cmder.ingestDir, "ingest", "i", "", "Directory of .txt and .md files to load before serving")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep loading new files from the --ingest directory")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json", false, "Emit JSON logs")

	return cmd
}

func (c *serveCommander) newLogger() *slog.Logger {
	opts := []logger.Option{
		logger.WithDebug(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(!c.jsonLogs),
	}
	if c.cfg.Logging.File != "" {
		opts = append(opts, logger.WithFile(logger.FileConfig{Path: c.cfg.Logging.File}))
	}
	return logger.New(opts...)
}

func (c *serveCommander) run(ctx context.Context) error {
	server, s, err := c.build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			c.logger.Warn("closing components", "error", err)
		}
	}()

	if c.ingestDir != "" {
		results, err := s.Ingester.IngestDir(ctx, c.ingestDir)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", c.ingestDir, err)
		}
		c.logger.Info("ingested directory", "dir", c.ingestDir, "files", len(results))
	}

	errChan := make(chan error, 2)

	if c.watch {
		go func() {
			if err := s.Ingester.Watch(ctx, c.ingestDir); err != nil {
				errChan <- fmt.Errorf("watching %s: %w", c.ingestDir, err)
			}
		}()
	}

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
		return server.Shutdown()
	}
}

// build creates every component and the API server from the resolved config.
func (c *serveCommander) build(ctx context.Context) (*api.Server, *stack.Stack, error) {
	ttl, err := c.cfg.Session.TTLDuration()
	if err != nil {
		return nil, nil, err
	}

	s, err := stack.New(ctx, c.cfg, c.logger, stack.Options{})
	if err != nil {
		return nil, nil, err
	}

	sessions := session.NewStore(session.Config{
		TTL:       ttl,
		EndPhrase: c.cfg.Session.EndPhrase,
	}, c.logger)

	server, err := api.NewServer(api.Config{
		ListenAddr: c.cfg.API.Listen,
		Loop:       s.Loop,
		Retriever:  s.Retriever,
		Index:      s.Index,
		Ingester:   s.Ingester,
		Sessions:   sessions,
		EnableMCP:  c.cfg.API.MCP,
		Tracing:    c.cfg.API.Tracing,
	}, c.logger)
	if err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("creating API server: %w", err)
	}

	return server, s, nil
}

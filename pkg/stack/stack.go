// Package stack assembles the configured ragloop components: the embedder,
// vector index, completer, telemetry sink, retriever, conversation loop, and
// ingester.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/papercomputeco/ragloop/pkg/config"
	"github.com/papercomputeco/ragloop/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/ragloop/pkg/embeddings/utils"
	"github.com/papercomputeco/ragloop/pkg/ingest"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/llm/provider"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/rag"
	"github.com/papercomputeco/ragloop/pkg/telemetry"
	telemetryutils "github.com/papercomputeco/ragloop/pkg/telemetry/utils"
	"github.com/papercomputeco/ragloop/pkg/vector"
	vectorutils "github.com/papercomputeco/ragloop/pkg/vector/utils"
)

// Environment variables holding secrets that are never written to config.toml.
const (
	EnvTelemetryAPIKey = "RAGLOOP_TELEMETRY_API_KEY"
	EnvVectorAPIKey    = "RAGLOOP_VECTOR_STORE_API_KEY"
)

// Options selects which components New builds.
type Options struct {
	// SkipGeneration builds only the retrieval side (embedder and index),
	// for commands that never call a completion provider.
	SkipGeneration bool

	// SkipTelemetry leaves the sink unset.
	SkipTelemetry bool
}

// Stack holds every component built from a Config.
type Stack struct {
	Embedder  embeddings.Embedder
	Index     vector.Driver
	Completer llm.Completer
	Sink      telemetry.Sink
	Retriever *rag.Retriever
	Loop      *rag.Loop
	Ingester  *ingest.Ingester

	logger  *slog.Logger
	closers []func() error
}

// New builds the components described by cfg. On error every component
// built so far is closed.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*Stack, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Stack{logger: log}

	if err := s.build(ctx, cfg, opts); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stack) build(ctx context.Context, cfg *config.Config, opts Options) error {
	embedder, err := NewEmbedder(cfg, s.logger)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	s.Embedder = embedder
	s.closers = append(s.closers, embedder.Close)

	index, err := NewIndex(ctx, cfg, s.logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	s.Index = index
	s.closers = append(s.closers, index.Close)

	s.Retriever, err = rag.NewRetriever(embedder, index)
	if err != nil {
		return fmt.Errorf("creating retriever: %w", err)
	}

	s.Ingester, err = ingest.New(ingest.Config{
		Embedder:     embedder,
		Index:        index,
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating ingester: %w", err)
	}

	if opts.SkipGeneration {
		return nil
	}

	s.Completer, err = NewCompleter(cfg)
	if err != nil {
		return fmt.Errorf("creating completer: %w", err)
	}

	if !opts.SkipTelemetry {
		sink, err := NewSink(ctx, cfg, s.logger)
		if err != nil {
			return fmt.Errorf("creating telemetry sink: %w", err)
		}
		if sink != nil {
			s.Sink = sink
			s.closers = append(s.closers, sink.Close)
		}
	}

	s.Loop, err = rag.NewLoop(rag.Config{
		Embedder:     embedder,
		Index:        index,
		Completer:    s.Completer,
		Sink:         s.Sink,
		TopK:         cfg.Retrieval.TopK,
		SystemPrompt: cfg.Retrieval.SystemPrompt,
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating conversation loop: %w", err)
	}

	s.logger.Info("components ready",
		"embedding_provider", cfg.Embedding.Provider,
		"completion_provider", s.Completer.Name(),
		"model", s.Completer.Model(),
		"vector_store", cfg.VectorStore.Provider,
		"telemetry", cfg.Telemetry.Provider,
		"top_k", s.Loop.TopK(),
	)
	return nil
}

// Close releases components in reverse build order so the sink drains
// before the index and embedder go away.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewEmbedder builds the configured embedder, wrapped in a fallback chain
// when a fallback provider is set.
func NewEmbedder(cfg *config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	e := cfg.Embedding
	opts := &embeddingutils.NewEmbedderOpts{
		ProviderType:      e.Provider,
		TargetURL:         e.Target,
		Model:             e.Model,
		AzureDeployment:   e.AzureDeployment,
		AzureAPIVersion:   e.AzureAPIVersion,
		Dimensions:        int(e.Dimensions), //nolint:gosec // dimensions are small
		RequestsPerSecond: e.RequestsPerSecond,
		Logger:            log,
	}
	if e.Fallback.Provider != "" {
		opts.Fallback = &embeddingutils.NewEmbedderOpts{
			ProviderType:      e.Fallback.Provider,
			TargetURL:         e.Fallback.Target,
			Model:             e.Fallback.Model,
			AzureDeployment:   e.Fallback.AzureDeployment,
			AzureAPIVersion:   e.Fallback.AzureAPIVersion,
			Dimensions:        int(e.Dimensions), //nolint:gosec // dimensions are small
			RequestsPerSecond: e.RequestsPerSecond,
			Logger:            log,
		}
	}
	return embeddingutils.NewEmbedder(opts)
}

// NewIndex builds the configured vector store.
func NewIndex(ctx context.Context, cfg *config.Config, log *slog.Logger) (vector.Driver, error) {
	return vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		APIKey:       os.Getenv(EnvVectorAPIKey),
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       log,
	})
}

// NewCompleter builds the configured completion provider.
func NewCompleter(cfg *config.Config) (llm.Completer, error) {
	c := cfg.Completion
	return provider.New(provider.Options{
		Provider:        c.Provider,
		BaseURL:         c.Target,
		Model:           c.Model,
		AzureDeployment: c.AzureDeployment,
		AzureAPIVersion: c.AzureAPIVersion,
		MaxTokens:       c.MaxTokens,
	})
}

// NewSink builds the telemetry sink chain, or returns nil when both the
// remote provider and the trace store are disabled.
func NewSink(ctx context.Context, cfg *config.Config, log *slog.Logger) (telemetry.Sink, error) {
	t := cfg.Telemetry
	return telemetryutils.NewSink(ctx, &telemetryutils.NewSinkOpts{
		ProviderType:   t.Provider,
		Target:         t.Target,
		APIKey:         os.Getenv(EnvTelemetryAPIKey),
		Topic:          t.Topic,
		Stream:         t.Stream,
		Insecure:       t.Insecure,
		TraceStorePath: t.TraceStore,
		Workers:        t.Workers,
		QueueSize:      t.QueueSize,
		Logger:         log,
	})
}

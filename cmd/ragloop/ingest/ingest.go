// Package ingestcmder provides the ingest command that loads files into the
// configured vector store.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragloop/pkg/cliui"
	"github.com/papercomputeco/ragloop/pkg/config"
	"github.com/papercomputeco/ragloop/pkg/ingest"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/stack"
	vectorutils "github.com/papercomputeco/ragloop/pkg/vector/utils"
)

// ingester is the part of *ingest.Ingester the command drives.
type ingester interface {
	IngestFile(ctx context.Context, source, path string) ([]string, error)
	IngestDir(ctx context.Context, dir string) ([]ingest.Result, error)
}

type ingestCommander struct {
	embeddingProv   string
	embeddingTarget string
	embeddingModel  string
	embeddingDims   uint
	vectorProv      string
	vectorTarget    string
	chunkSize       int
	chunkOverlap    int

	debug  bool
	cfg    *config.Config
	logger *slog.Logger
}

var boundFlags = []string{
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
}

const ingestLongDesc string = `Load documents into the configured vector store.

Each path may be a file or a directory. Directories are walked recursively
and every .txt and .md file is loaded with its path relative to the
directory as the source name. Files are chunked, embedded, and stored in
order. Documents are immutable: a source that is already in the store is
skipped.

The in-memory vector store does not outlive this command, so point ingest at
a persistent store such as sqlite, pgvector, qdrant, or chroma.

Examples:
  ragloop ingest ./docs --vector-store-provider sqlite --vector-store-target ./vectors.db
  ragloop ingest handbook.md faq.txt`

const ingestShortDesc string = "Load documents into the vector store"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.cfg, err = config.ResolveCommand(cmd, config.Flags, boundFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(true),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, out io.Writer, paths []string) error {
	if c.cfg.VectorStore.Provider == vectorutils.ProviderInMemory {
		fmt.Fprintf(out, "  %s %s\n", cliui.FailMark,
			cliui.DimStyle.Render("in-memory vector store: documents are discarded when this command exits"),
		)
	}

	s, err := stack.New(ctx, c.cfg, c.logger, stack.Options{SkipGeneration: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			c.logger.Warn("closing components", "error", err)
		}
	}()

	return c.ingest(ctx, out, s.Ingester, paths)
}

// ingest loads every path and prints one line per source.
func (c *ingestCommander) ingest(ctx context.Context, out io.Writer, in ingester, paths []string) error {
	var sources, chunks int

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var results []ingest.Result
		if info.IsDir() {
			err = cliui.Step(out, "Loading "+path, func() error {
				var err error
				results, err = in.IngestDir(ctx, path)
				return err
			})
		} else {
			source := filepath.ToSlash(filepath.Clean(path))
			var ids []string
			ids, err = in.IngestFile(ctx, source, path)
			switch {
			case errors.Is(err, ingest.ErrAlreadyIngested):
				fmt.Fprintf(out, "  %s %s %s\n", cliui.DimStyle.Render("-"),
					cliui.NameStyle.Render(source), cliui.DimStyle.Render("already ingested"))
				continue
			case err == nil:
				results = []ingest.Result{{Source: source, IDs: ids}}
			}
		}
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}

		for _, r := range results {
			fmt.Fprintf(out, "  %s %s %s\n", cliui.SuccessMark,
				cliui.NameStyle.Render(r.Source),
				cliui.DimStyle.Render(fmt.Sprintf("(%d chunks)", len(r.IDs))),
			)
			sources++
			chunks += len(r.IDs)
		}
	}

	fmt.Fprintf(out, "\n  Ingested %s documents, %s chunks\n",
		cliui.ValueStyle.Render(fmt.Sprint(sources)),
		cliui.ValueStyle.Render(fmt.Sprint(chunks)),
	)
	return nil
}

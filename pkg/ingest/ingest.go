// Package ingest loads text into a vector index: it chunks documents, embeds
// each chunk, and inserts the chunks in order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragloop/pkg/embeddings"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// DefaultExtensions are the file types IngestDir and Watch pick up.
var DefaultExtensions = []string{".txt", ".md"}

// ErrAlreadyIngested is returned when a source's documents already exist.
// Stored documents are immutable, so a changed file is not re-ingested.
var ErrAlreadyIngested = errors.New("source already ingested")

// Config wires an Ingester.
type Config struct {
	Embedder embeddings.Embedder
	Index    vector.Driver

	ChunkSize    int
	ChunkOverlap int

	// Extensions filters files by suffix. Defaults to DefaultExtensions.
	Extensions []string

	Logger *slog.Logger
}

// Ingester chunks, embeds, and stores text.
type Ingester struct {
	embedder   embeddings.Embedder
	index      vector.Driver
	chunker    Chunker
	extensions []string
	logger     *slog.Logger
}

// Result summarizes one ingested source.
type Result struct {
	Source string   `json:"source,omitempty"`
	IDs    []string `json:"ids"`
}

// New creates an Ingester.
func New(c Config) (*Ingester, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Index == nil {
		return nil, errors.New("vector index is required")
	}
	if c.ChunkSize == 0 && c.ChunkOverlap == 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	exts := make([]string, len(c.Extensions))
	for i, e := range c.Extensions {
		exts[i] = strings.ToLower(e)
	}

	return &Ingester{
		embedder:   c.Embedder,
		index:      c.Index,
		chunker:    NewChunker(c.ChunkSize, c.ChunkOverlap),
		extensions: exts,
		logger:     c.Logger,
	}, nil
}

// Chunker returns the chunker in use.
func (in *Ingester) Chunker() Chunker {
	return in.chunker
}

// ChunkID names the n-th chunk of a source.
func ChunkID(source string, n int) string {
	return fmt.Sprintf("%s#%d", source, n)
}

// IngestText chunks text, embeds every chunk, and adds the chunks to the
// index as a single batch. Chunk IDs are "<source>#<n>" when source is set
// and random UUIDs otherwise. Any embedding failure aborts before the index
// is touched.
func (in *Ingester) IngestText(ctx context.Context, source, text string) ([]string, error) {
	chunks := in.chunker.Split(text)
	if len(chunks) == 0 {
		return []string{}, nil
	}

	docs := make([]vector.Document, len(chunks))
	for i, chunk := range chunks {
		emb, err := in.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %q: %w", i, source, err)
		}

		id := uuid.NewString()
		if source != "" {
			id = ChunkID(source, i)
		}
		docs[i] = vector.Document{ID: id, Text: chunk, Embedding: emb}
	}

	if err := in.index.Add(ctx, docs); err != nil {
		return nil, fmt.Errorf("adding chunks of %q: %w", source, err)
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	in.logger.Debug("ingested text",
		"source", source,
		"chunks", len(ids),
	)
	return ids, nil
}

// IngestFile ingests one file under the given source name, failing with
// ErrAlreadyIngested when the source is already in the index.
func (in *Ingester) IngestFile(ctx context.Context, source, path string) ([]string, error) {
	exists, err := in.ingested(ctx, source)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyIngested, source)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return in.IngestText(ctx, source, string(data))
}

// IngestDir ingests every matching file under dir in lexical path order.
// Sources are paths relative to dir. Already ingested files are skipped.
func (in *Ingester) IngestDir(ctx context.Context, dir string) ([]Result, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && in.matches(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	slices.Sort(paths)

	results := []Result{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		source := sourceName(dir, path)
		ids, err := in.IngestFile(ctx, source, path)
		if errors.Is(err, ErrAlreadyIngested) {
			in.logger.Debug("skipping ingested file", "source", source)
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, Result{Source: source, IDs: ids})
	}

	in.logger.Info("ingested directory",
		"dir", dir,
		"files", len(results),
	)
	return results, nil
}

func (in *Ingester) matches(path string) bool {
	return slices.Contains(in.extensions, strings.ToLower(filepath.Ext(path)))
}

func (in *Ingester) ingested(ctx context.Context, source string) (bool, error) {
	docs, err := in.index.Get(ctx, []string{ChunkID(source, 0)})
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", source, err)
	}
	return len(docs) > 0, nil
}

func sourceName(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

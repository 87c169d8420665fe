// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing ragloop embeddings.
	DefaultCollectionName = "ragloop"

	// DefaultMaxRetries is how many times NewDriver tries to reach Chroma.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the first backoff delay between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 5 * time.Second

	apiPrefix = "/api/v2/tenants/default_tenant/databases/default_database/collections"

	metaSeq = "seq"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds connection attempts while Chroma starts up.
	MaxRetries int

	// RetryDelay is the initial delay between attempts, doubled each time.
	RetryDelay time.Duration

	// MaxRetryDelay caps the delay between attempts.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, retrying with exponential
// backoff until the collection can be fetched or created.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        strings.TrimRight(c.URL, "/"),
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err := d.getOrCreateCollection(context.Background())
		if err == nil {
			d.collectionID = collectionID
			logger.Info("connected to Chroma",
				"url", c.URL,
				"collection", collectionName,
				"collection_id", collectionID,
			)
			return d, nil
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	return nil, fmt.Errorf("%w: collection %q after %d attempts: %w",
		vector.ErrConnection, collectionName, maxRetries, lastErr)
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (d *Driver) do(ctx context.Context, method, path string, in, out any, okStatus ...int) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if len(okStatus) == 0 {
		okStatus = []int{http.StatusOK}
	}
	ok := false
	for _, s := range okStatus {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (d *Driver) collectionPath(suffix string) string {
	return apiPrefix + "/" + d.collectionID + suffix
}

// getOrCreateCollection gets an existing collection or creates a new one
// using cosine distance.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	if err := d.do(ctx, http.MethodGet, apiPrefix+"/"+d.collectionName, nil, &collection); err == nil {
		return collection.ID, nil
	}

	err := d.do(ctx, http.MethodPost, apiPrefix, chromaCreateCollectionRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &collection, http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	return collection.ID, nil
}

// Add stores documents with their text as Chroma documents.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if _, err := vector.ValidateBatch(docs, 0); err != nil {
		return err
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	existing, err := d.Get(ctx, ids)
	if err != nil {
		return fmt.Errorf("checking existing documents: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %q", vector.ErrDuplicateDocument, existing[0].ID)
	}

	base := time.Now().UnixNano()
	reqBody := chromaAddRequest{
		IDs:        ids,
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}
	for i, doc := range docs {
		reqBody.Embeddings[i] = doc.Embedding
		reqBody.Metadatas[i] = map[string]any{metaSeq: base + int64(i)}
		reqBody.Documents[i] = doc.Text
	}

	if err := d.do(ctx, http.MethodPost, d.collectionPath("/add"), reqBody, nil,
		http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	d.logger.Debug("added documents to chroma",
		"count", len(docs),
	)

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.ValidateQuery(embedding, topK, 0); err != nil {
		return nil, err
	}

	var queryResp chromaQueryResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("/query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances", "documents"},
	}, &queryResp)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	results := []vector.QueryResult{}

	// We only query with one embedding, so only the first group matters.
	if len(queryResp.IDs) == 0 {
		return results, nil
	}

	type ranked struct {
		result vector.QueryResult
		seq    float64
	}
	hits := make([]ranked, 0, len(queryResp.IDs[0]))
	for i, id := range queryResp.IDs[0] {
		h := ranked{result: vector.QueryResult{Document: vector.Document{ID: id}}}
		if len(queryResp.Distances) > 0 && i < len(queryResp.Distances[0]) {
			h.result.Score = vector.ScoreFromDistance(queryResp.Distances[0][i])
		}
		if len(queryResp.Documents) > 0 && i < len(queryResp.Documents[0]) {
			h.result.Text = queryResp.Documents[0][i]
		}
		if len(queryResp.Metadatas) > 0 && i < len(queryResp.Metadatas[0]) {
			h.seq, _ = queryResp.Metadatas[0][i][metaSeq].(float64)
		}
		hits = append(hits, h)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].result.Score != hits[j].result.Score {
			return hits[i].result.Score > hits[j].result.Score
		}
		return hits[i].seq < hits[j].seq
	})
	for _, h := range hits {
		results = append(results, h.result)
	}

	d.logger.Debug("queried chroma",
		"results", len(results),
	)

	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var getResp chromaGetResponse
	err := d.do(ctx, http.MethodPost, d.collectionPath("/get"), chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "embeddings"},
	}, &getResp)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i].ID = id
		if i < len(getResp.Documents) {
			docs[i].Text = getResp.Documents[i]
		}
		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}

	return docs, nil
}

// Size returns the collection count.
func (d *Driver) Size(ctx context.Context) (int, error) {
	var n int
	if err := d.do(ctx, http.MethodGet, d.collectionPath("/count"), nil, &n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Clear deletes and recreates the collection.
func (d *Driver) Clear(ctx context.Context) error {
	if err := d.do(ctx, http.MethodDelete, apiPrefix+"/"+d.collectionName, nil, nil,
		http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	collectionID, err := d.getOrCreateCollection(ctx)
	if err != nil {
		return err
	}
	d.collectionID = collectionID

	d.logger.Debug("cleared chroma collection",
		"collection", d.collectionName,
	)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

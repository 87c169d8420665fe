// Package qdrant provides a Qdrant vector driver over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for ragloop documents.
	DefaultCollectionName = "ragloop"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	payloadDocID = "doc_id"
	payloadText  = "text"
	payloadSeq   = "seq"
)

// pointNamespace derives stable point UUIDs from document IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/papercomputeco/ragloop"))

// QdrantDriver implements vector.Driver using a Qdrant collection with
// cosine distance.
type QdrantDriver struct {
	client     *qdrant.Client
	collection string
	dimensions int
	logger     *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is the collection vector size. Required.
	Dimensions uint
}

// NewQdrantDriver connects to Qdrant and creates the collection when missing.
func NewQdrantDriver(ctx context.Context, c Config, logger *slog.Logger) (*QdrantDriver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d := &QdrantDriver{
		client:     client,
		collection: collection,
		dimensions: int(c.Dimensions),
		logger:     logger,
	}

	if err := d.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to Qdrant",
		"host", c.Host,
		"port", port,
		"collection", collection,
	)
	return d, nil
}

func (d *QdrantDriver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", d.collection, err)
	}
	return nil
}

// PointID returns the Qdrant point UUID used for a document ID.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// Add upserts points after checking that none of the IDs exist yet.
func (d *QdrantDriver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if _, err := vector.ValidateBatch(docs, d.dimensions); err != nil {
		return err
	}

	ids := make([]*qdrant.PointId, len(docs))
	for i, doc := range docs {
		ids[i] = qdrant.NewID(PointID(doc.ID))
	}
	existing, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return fmt.Errorf("checking existing points: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: %q", vector.ErrDuplicateDocument, existing[0].GetPayload()[payloadDocID].GetStringValue())
	}

	base := time.Now().UnixNano()
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      ids[i],
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadDocID: doc.ID,
				payloadText:  doc.Text,
				payloadSeq:   base + int64(i),
			}),
		}
	}

	wait := true
	if _, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant",
		"count", len(docs),
	)
	return nil
}

// Query searches the collection and orders equal scores by insertion stamp.
func (d *QdrantDriver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.ValidateQuery(embedding, topK, d.dimensions); err != nil {
		return nil, err
	}

	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	type ranked struct {
		result vector.QueryResult
		seq    int64
	}
	hits := make([]ranked, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		hits = append(hits, ranked{
			result: vector.QueryResult{
				Document: vector.Document{
					ID:   payload[payloadDocID].GetStringValue(),
					Text: payload[payloadText].GetStringValue(),
				},
				Score: clampScore(p.GetScore()),
			},
			seq: payload[payloadSeq].GetIntegerValue(),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].result.Score != hits[j].result.Score {
			return hits[i].result.Score > hits[j].result.Score
		}
		return hits[i].seq < hits[j].seq
	})

	results := make([]vector.QueryResult, len(hits))
	for i, h := range hits {
		results[i] = h.result
	}

	d.logger.Debug("queried qdrant",
		"results", len(results),
	)
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *QdrantDriver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(PointID(id))
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		docs = append(docs, vector.Document{
			ID:        payload[payloadDocID].GetStringValue(),
			Text:      payload[payloadText].GetStringValue(),
			Embedding: p.GetVectors().GetVector().GetData(),
		})
	}
	return docs, nil
}

// Size returns the exact number of points in the collection.
func (d *QdrantDriver) Size(ctx context.Context) (int, error) {
	exact := true
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Clear drops and recreates the collection.
func (d *QdrantDriver) Clear(ctx context.Context) error {
	if err := d.client.DeleteCollection(ctx, d.collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", d.collection, err)
	}
	if err := d.ensureCollection(ctx); err != nil {
		return err
	}
	d.logger.Debug("cleared qdrant collection", "collection", d.collection)
	return nil
}

// Close closes the gRPC connection.
func (d *QdrantDriver) Close() error {
	return d.client.Close()
}

func clampScore(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

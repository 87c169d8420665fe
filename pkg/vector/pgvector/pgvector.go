// Package pgvector provides a PostgreSQL vector driver using the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

const (
	// DefaultTable is the table documents are stored in.
	DefaultTable = "ragloop_documents"

	uniqueViolation = "23505"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PgVectorDriver implements vector.Driver against PostgreSQL with pgvector.
type PgVectorDriver struct {
	db         *sql.DB
	table      string
	dimensions int
	logger     *slog.Logger
}

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Table overrides DefaultTable.
	Table string

	// Dimensions is the width of the vector column. Required.
	Dimensions uint
}

// NewPgVectorDriver connects, enables the vector extension, and creates the
// documents table when missing.
func NewPgVectorDriver(ctx context.Context, c Config, logger *slog.Logger) (*PgVectorDriver, error) {
	if c.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("pgvector embedding dimensions cannot be 0, must be configured")
	}

	table := c.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open("pgx", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	d := &PgVectorDriver{
		db:         db,
		table:      table,
		dimensions: int(c.Dimensions),
		logger:     logger,
	}

	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating: %w", err)
	}

	logger.Info("pgvector driver initialized",
		"table", table,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *PgVectorDriver) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)`, d.table, d.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
			d.table, d.table),
	}

	for _, m := range migrations {
		if _, err := d.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// Add inserts documents in one transaction.
func (d *PgVectorDriver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	if _, err := vector.ValidateBatch(docs, d.dimensions); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	insert := fmt.Sprintf(`INSERT INTO %s (id, text, embedding) VALUES ($1, $2, $3)`, d.table)
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, insert, doc.ID, doc.Text, pgvector.NewVector(doc.Embedding)); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: %q", vector.ErrDuplicateDocument, doc.ID)
			}
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to pgvector",
		"count", len(docs),
	)
	return nil
}

// Query orders by cosine distance and then by insertion sequence.
func (d *PgVectorDriver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if err := vector.ValidateQuery(embedding, topK, d.dimensions); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, text, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance, seq
		LIMIT $2
	`, d.table)

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	results := []vector.QueryResult{}
	for rows.Next() {
		var r vector.QueryResult
		var distance float64
		if err := rows.Scan(&r.ID, &r.Text, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Score = vector.ScoreFromDistance(distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	results = vector.RankStable(results, topK)

	d.logger.Debug("queried pgvector",
		"results", len(results),
	)
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *PgVectorDriver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, text, embedding FROM %s WHERE id = ANY($1) ORDER BY seq`, d.table)
	rows, err := d.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []vector.Document
	for rows.Next() {
		var doc vector.Document
		var emb pgvector.Vector
		if err := rows.Scan(&doc.ID, &doc.Text, &emb); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Embedding = emb.Slice()
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Size returns the number of stored documents.
func (d *PgVectorDriver) Size(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, d.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Clear truncates the table and restarts the insertion sequence.
func (d *PgVectorDriver) Clear(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s RESTART IDENTITY`, d.table)); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	d.logger.Debug("cleared pgvector table", "table", d.table)
	return nil
}

// Close closes the database connection.
func (d *PgVectorDriver) Close() error {
	return d.db.Close()
}

// Package sqlite stores telemetry records in a local SQLite trace store that
// `ragloop traces` reads back.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

const sinkName = "sqlite"

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// Sink writes each record into the records table.
type Sink struct {
	db *sql.DB
}

// New opens (or creates) the trace store at path.
func New(path string) (*Sink, error) {
	if path == "" {
		return nil, errors.New("trace store path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace store: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			trace_id TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			emitted_at TIMESTAMP NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_trace_id ON records(trace_id)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trace index: %w", err)
	}

	return &Sink{db: db}, nil
}

// Record inserts rec. Re-recording the same event ID is a no-op.
func (s *Sink) Record(ctx context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("marshal record: %w", err))
	}

	emitted := rec.EmittedAt
	if emitted.IsZero() {
		emitted = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (event_id, trace_id, session_id, status, emitted_at, duration_ms, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`, rec.EventID, rec.TraceID, rec.SessionID, rec.Status, emitted.UTC(), rec.DurationMs, string(payload))
	if err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("insert record: %w", err))
	}
	return nil
}

// List returns up to limit records, most recent first.
func (s *Sink) List(ctx context.Context, limit int) ([]*telemetry.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM records ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByTrace returns every record for a trace in insertion order.
func (s *Sink) ByTrace(ctx context.Context, traceID string) ([]*telemetry.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM records WHERE trace_id = ? ORDER BY seq`, traceID)
	if err != nil {
		return nil, fmt.Errorf("listing trace %s: %w", traceID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the number of stored records.
func (s *Sink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]*telemetry.Record, error) {
	records := []*telemetry.Record{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec := &telemetry.Record{}
		if err := json.Unmarshal([]byte(payload), rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ telemetry.Sink = (*Sink)(nil)

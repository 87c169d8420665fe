package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragloop/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the record payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchange is emitted once per conversation exchange.
	EventTypeExchange = "ragloop.exchange"

	StatusOK    = "ok"
	StatusError = "error"
)

// Record is a transport-neutral summary of one retrieve-then-generate exchange.
type Record struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	TraceID       string    `json:"trace_id"`
	SessionID     string    `json:"session_id,omitempty"`
	EmittedAt     time.Time `json:"emitted_at"`

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	Input  string `json:"input"`
	Output string `json:"output"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	Retrieval  *Retrieval             `json:"retrieval,omitempty"`
	Generation *Generation            `json:"generation,omitempty"`
	Messages   []llm.ConversationTurn `json:"messages,omitempty"`
	Usage      *llm.Usage             `json:"usage,omitempty"`
}

// Retrieval captures the retrieval step of an exchange.
type Retrieval struct {
	Query      string    `json:"query"`
	TopK       int       `json:"top_k"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Matches    []Match   `json:"matches"`
}

// Generation captures the completion step of an exchange.
type Generation struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Match is one retrieved document and its similarity score.
type Match struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// NewRecord returns a record with the envelope fields populated.
// traceID may be empty, in which case a fresh one is generated.
func NewRecord(traceID string) *Record {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return &Record{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchange,
		EventID:       uuid.NewString(),
		TraceID:       traceID,
		Status:        StatusOK,
	}
}

// Complete stamps the completion time and duration.
func (r *Record) Complete(at time.Time) {
	r.CompletedAt = at
	r.EmittedAt = at
	r.DurationMs = at.Sub(r.StartedAt).Milliseconds()
}

// Fail marks the record as failed with the given cause.
func (r *Record) Fail(err error) {
	r.Status = StatusError
	if err != nil {
		r.Error = err.Error()
	}
}

// Failed reports whether the record describes a failed exchange.
func (r *Record) Failed() bool {
	return r.Status == StatusError
}

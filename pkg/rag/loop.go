// Package rag implements the retrieve-then-generate conversation loop: embed
// the user's message, retrieve the most similar documents, assemble them into
// a system prompt, and ask a completion provider for the reply.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ragloop/pkg/embeddings"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/telemetry"
	"github.com/papercomputeco/ragloop/pkg/telemetry/nop"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

// DefaultTopK is the number of documents retrieved per exchange.
const DefaultTopK = 3

var (
	// ErrEmptyInput is returned when the user's message is blank.
	ErrEmptyInput = errors.New("empty user input")

	// ErrInvalidHistory is returned when a history turn has an unknown role.
	ErrInvalidHistory = errors.New("invalid conversation history")
)

// Config wires a Loop to its collaborators.
type Config struct {
	Embedder  embeddings.Embedder
	Index     vector.Driver
	Completer llm.Completer

	// Sink receives one record per exchange. Optional.
	Sink telemetry.Sink

	// TopK defaults to DefaultTopK.
	TopK int

	// SystemPrompt is a text/template rendered with PromptData.
	SystemPrompt string

	Logger *slog.Logger
}

// Loop runs exchanges. It holds no per-exchange state and is safe for
// concurrent use when its collaborators are.
type Loop struct {
	retriever *Retriever
	completer llm.Completer
	sink      telemetry.Sink
	topK      int
	prompt    *Prompt
	logger    *slog.Logger
	now       func() time.Time
}

// Reply is the outcome of a successful exchange.
type Reply struct {
	// Text is the generated response.
	Text string

	TraceID string

	// Matches are the retrieved documents, most similar first.
	Matches []vector.QueryResult

	Completion *llm.Completion
}

// RespondOption customizes a single exchange.
type RespondOption func(*respondOptions)

type respondOptions struct {
	sessionID string
	traceID   string
	topK      int
}

// WithSessionID tags the telemetry record with a session.
func WithSessionID(id string) RespondOption {
	return func(o *respondOptions) { o.sessionID = id }
}

// WithTraceID sets the trace ID instead of generating one.
func WithTraceID(id string) RespondOption {
	return func(o *respondOptions) { o.traceID = id }
}

// WithTopK overrides the configured retrieval depth for one exchange.
func WithTopK(k int) RespondOption {
	return func(o *respondOptions) { o.topK = k }
}

// NewLoop validates c and builds a Loop.
func NewLoop(c Config) (*Loop, error) {
	retriever, err := NewRetriever(c.Embedder, c.Index)
	if err != nil {
		return nil, err
	}
	if c.Completer == nil {
		return nil, errors.New("completer is required")
	}
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	if c.TopK < 0 {
		return nil, fmt.Errorf("%w: %d", vector.ErrInvalidTopK, c.TopK)
	}
	if c.Sink == nil {
		c.Sink = nop.NewSink()
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	prompt, err := ParsePrompt(c.SystemPrompt)
	if err != nil {
		return nil, err
	}

	return &Loop{
		retriever: retriever,
		completer: c.Completer,
		sink:      c.Sink,
		topK:      c.TopK,
		prompt:    prompt,
		logger:    c.Logger,
		now:       time.Now,
	}, nil
}

// TopK returns the configured retrieval depth.
func (l *Loop) TopK() int {
	return l.topK
}

// Retrieve embeds text and returns the k most similar documents.
func (l *Loop) Retrieve(ctx context.Context, text string, k int) ([]vector.QueryResult, error) {
	return l.retriever.Retrieve(ctx, text, k)
}

// Respond runs one exchange: Idle, Retrieving, Assembling, Generating, then
// Completed, or Failed from any of them. Embedding and completion errors are
// returned to the caller unretried. When a sink is configured every exchange
// that reaches Retrieving produces a record, with failures flagged as errors.
// Sink errors are logged and never returned.
func (l *Loop) Respond(ctx context.Context, userText string, history []llm.ConversationTurn, opts ...RespondOption) (*Reply, error) {
	o := respondOptions{topK: l.topK}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyInput
	}
	for i, t := range history {
		if !t.Role.Valid() {
			return nil, fmt.Errorf("%w: turn %d has role %q", ErrInvalidHistory, i, t.Role)
		}
	}

	traceID := o.traceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	log := l.logger.With("trace_id", traceID)

	rec := telemetry.NewRecord(traceID)
	rec.SessionID = o.sessionID
	rec.Input = userText
	rec.Provider = l.completer.Name()
	rec.Model = l.completer.Model()
	rec.StartedAt = l.now()

	state := StateIdle
	transition := func(next State) {
		log.Debug("exchange state", "from", state.String(), "to", next.String())
		state = next
	}
	fail := func(err error) (*Reply, error) {
		log.Debug("exchange failed", "state", state.String(), "error", err)
		transition(StateFailed)
		rec.Fail(err)
		l.emit(ctx, rec)
		return nil, err
	}

	// Retrieving
	transition(StateRetrieving)
	retrieval := &telemetry.Retrieval{Query: userText, TopK: o.topK, StartedAt: l.now()}
	rec.Retrieval = retrieval
	matches, err := l.Retrieve(ctx, userText, o.topK)
	retrieval.DurationMs = l.now().Sub(retrieval.StartedAt).Milliseconds()
	if err != nil {
		return fail(err)
	}
	retrieval.Matches = make([]telemetry.Match, len(matches))
	for i, m := range matches {
		retrieval.Matches[i] = telemetry.Match{ID: m.ID, Text: m.Text, Score: m.Score}
	}
	log.Debug("retrieved context", "matches", len(matches))

	// Assembling
	transition(StateAssembling)
	system, err := l.prompt.Render(PromptData{
		Context: AssembleContext(matches),
		Query:   userText,
		Matches: matches,
	})
	if err != nil {
		return fail(err)
	}

	turns := make([]llm.ConversationTurn, 0, len(history)+2)
	if system != "" {
		turns = append(turns, llm.NewTurn(llm.RoleSystem, system))
	}
	turns = append(turns, history...)
	turns = append(turns, llm.NewTurn(llm.RoleUser, userText))
	rec.Messages = turns

	// Generating
	transition(StateGenerating)
	gen := &telemetry.Generation{StartedAt: l.now()}
	rec.Generation = gen
	completion, err := l.completer.Complete(ctx, turns)
	gen.DurationMs = l.now().Sub(gen.StartedAt).Milliseconds()
	if err != nil {
		return fail(fmt.Errorf("generating reply: %w", err))
	}

	// Completed
	transition(StateCompleted)
	rec.Output = completion.Text
	rec.Usage = completion.Usage
	if completion.Model != "" {
		rec.Model = completion.Model
	}
	l.emit(ctx, rec)

	return &Reply{
		Text:       completion.Text,
		TraceID:    traceID,
		Matches:    matches,
		Completion: completion,
	}, nil
}

// emit hands rec to the sink. Failures are logged only.
func (l *Loop) emit(ctx context.Context, rec *telemetry.Record) {
	rec.Complete(l.now())

	// Records of cancelled exchanges are still delivered.
	if err := l.sink.Record(context.WithoutCancel(ctx), rec); err != nil {
		if !errors.Is(err, telemetry.ErrTelemetry) {
			err = telemetry.NewError("sink", err)
		}
		l.logger.Warn("telemetry emission failed",
			"trace_id", rec.TraceID,
			"error", err,
		)
	}
}

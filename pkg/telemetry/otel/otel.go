// Package otel exports telemetry records as OpenTelemetry traces over OTLP/HTTP.
// Each exchange becomes a rag.exchange span with rag.retrieve and llm.complete
// children placed at the recorded timestamps.
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

const (
	sinkName = "otel"

	tracerName = "github.com/papercomputeco/ragloop"

	SpanExchange = "rag.exchange"
	SpanRetrieve = "rag.retrieve"
	SpanComplete = "llm.complete"
)

// Config configures the OTLP exporter.
type Config struct {
	// Endpoint is host:port of the OTLP/HTTP receiver (e.g. "localhost:4318").
	Endpoint string

	// Insecure disables TLS.
	Insecure bool

	// Headers are sent with every export, typically for auth.
	Headers map[string]string

	ServiceName string
}

// Sink converts records into spans.
type Sink struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates an OTLP/HTTP exporter and a batching tracer provider.
func New(ctx context.Context, c Config) (*Sink, error) {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.ServiceName == "" {
		c.ServiceName = "ragloop"
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(c.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(c.Headers))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(c.ServiceName),
		)),
	)
	return NewWithProvider(tp), nil
}

// NewWithProvider creates a sink over an existing tracer provider. The sink
// owns the provider and shuts it down on Close.
func NewWithProvider(tp *sdktrace.TracerProvider) *Sink {
	return &Sink{provider: tp, tracer: tp.Tracer(tracerName)}
}

// Record emits the exchange as a span tree.
func (s *Sink) Record(ctx context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}

	ctx, root := s.tracer.Start(ctx, SpanExchange,
		trace.WithTimestamp(rec.StartedAt),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("ragloop.trace_id", rec.TraceID),
			attribute.String("ragloop.event_id", rec.EventID),
			attribute.String("ragloop.session_id", rec.SessionID),
			attribute.String("ragloop.input", rec.Input),
			attribute.String("ragloop.output", rec.Output),
		),
	)

	if r := rec.Retrieval; r != nil {
		_, span := s.tracer.Start(ctx, SpanRetrieve,
			trace.WithTimestamp(r.StartedAt),
			trace.WithAttributes(
				attribute.String("rag.query", r.Query),
				attribute.Int("rag.top_k", r.TopK),
				attribute.Int("rag.matches", len(r.Matches)),
			),
		)
		ids := make([]string, 0, len(r.Matches))
		for _, m := range r.Matches {
			ids = append(ids, m.ID)
		}
		span.SetAttributes(attribute.StringSlice("rag.match_ids", ids))
		span.End(trace.WithTimestamp(endOf(r.StartedAt, r.DurationMs)))
	}

	if g := rec.Generation; g != nil {
		attrs := []attribute.KeyValue{
			attribute.String("llm.provider", rec.Provider),
			attribute.String("llm.model", rec.Model),
		}
		if u := rec.Usage; u != nil {
			attrs = append(attrs,
				attribute.Int("llm.usage.prompt_tokens", u.PromptTokens),
				attribute.Int("llm.usage.completion_tokens", u.CompletionTokens),
				attribute.Int("llm.usage.total_tokens", u.TotalTokens),
			)
		}
		_, span := s.tracer.Start(ctx, SpanComplete,
			trace.WithTimestamp(g.StartedAt),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
		if rec.Failed() {
			span.SetStatus(codes.Error, rec.Error)
		}
		span.End(trace.WithTimestamp(endOf(g.StartedAt, g.DurationMs)))
	}

	if rec.Failed() {
		root.SetStatus(codes.Error, rec.Error)
	} else {
		root.SetStatus(codes.Ok, "")
	}
	root.End(trace.WithTimestamp(rec.CompletedAt))
	return nil
}

// Close flushes pending spans and shuts the provider down.
func (s *Sink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.provider.Shutdown(ctx); err != nil {
		return telemetry.NewError(sinkName, err)
	}
	return nil
}

func endOf(start time.Time, durationMs int64) time.Time {
	return start.Add(time.Duration(durationMs) * time.Millisecond)
}

var _ telemetry.Sink = (*Sink)(nil)

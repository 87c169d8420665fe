// Package telemetryutils builds the configured telemetry sink chain.
package telemetryutils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
	"github.com/papercomputeco/ragloop/pkg/telemetry/collector"
	"github.com/papercomputeco/ragloop/pkg/telemetry/kafka"
	"github.com/papercomputeco/ragloop/pkg/telemetry/multi"
	"github.com/papercomputeco/ragloop/pkg/telemetry/nats"
	"github.com/papercomputeco/ragloop/pkg/telemetry/otel"
	"github.com/papercomputeco/ragloop/pkg/telemetry/sqlite"
	"github.com/papercomputeco/ragloop/pkg/telemetry/worker"
)

// Supported telemetry providers.
const (
	ProviderNone      = "none"
	ProviderCollector = "collector"
	ProviderKafka     = "kafka"
	ProviderNATS      = "nats"
	ProviderOTel      = "otel"
)

type NewSinkOpts struct {
	// ProviderType selects the remote sink. Empty or "none" disables it.
	ProviderType string

	// Target is the collector URL, comma separated Kafka brokers, NATS URL,
	// or OTLP/HTTP endpoint.
	Target string

	APIKey string

	// Topic is the Kafka topic, NATS subject, or collector log stream.
	Topic string

	// Stream enables JetStream publishing for NATS.
	Stream string

	// Insecure disables TLS for OTLP export.
	Insecure bool

	// TraceStorePath, when set, also writes every record to a local
	// SQLite trace store.
	TraceStorePath string

	Workers   uint
	QueueSize uint

	Logger *slog.Logger
}

// NewSink returns an asynchronous sink over every configured backend, or nil
// when telemetry is disabled.
func NewSink(ctx context.Context, o *NewSinkOpts) (telemetry.Sink, error) {
	var sinks []telemetry.Sink
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	remote, err := newRemote(ctx, o)
	if err != nil {
		return nil, err
	}
	if remote != nil {
		sinks = append(sinks, remote)
	}

	if o.TraceStorePath != "" {
		store, err := sqlite.New(o.TraceStorePath)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("opening trace store: %w", err)
		}
		sinks = append(sinks, store)
	}

	if len(sinks) == 0 {
		return nil, nil
	}

	var downstream telemetry.Sink = multi.New(sinks...)
	if len(sinks) == 1 {
		downstream = sinks[0]
	}

	pool, err := worker.NewPool(&worker.Config{
		Sink:       downstream,
		NumWorkers: o.Workers,
		QueueSize:  o.QueueSize,
		Logger:     o.Logger,
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	return pool, nil
}

func newRemote(ctx context.Context, o *NewSinkOpts) (telemetry.Sink, error) {
	switch o.ProviderType {
	case "", ProviderNone:
		return nil, nil

	case ProviderCollector:
		return collector.New(collector.Config{
			Target: o.Target,
			APIKey: o.APIKey,
			Stream: o.Topic,
		})

	case ProviderKafka:
		return kafka.New(kafka.Config{
			Brokers: splitList(o.Target),
			Topic:   o.Topic,
		})

	case ProviderNATS:
		return nats.New(ctx, nats.Config{
			URL:     o.Target,
			Subject: o.Topic,
			Stream:  o.Stream,
			Logger:  o.Logger,
		})

	case ProviderOTel:
		var headers map[string]string
		if o.APIKey != "" {
			headers = map[string]string{"Authorization": "Bearer " + o.APIKey}
		}
		return otel.New(ctx, otel.Config{
			Endpoint: o.Target,
			Insecure: o.Insecure,
			Headers:  headers,
		})

	default:
		return nil, fmt.Errorf("unsupported telemetry provider: %s", o.ProviderType)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package nats publishes telemetry records to a NATS subject, optionally
// through a JetStream stream for durable delivery.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

const (
	sinkName = "nats"

	// DefaultSubject is used when no subject is configured.
	DefaultSubject = "ragloop.exchanges"
)

// Config configures the NATS sink.
type Config struct {
	URL     string
	Subject string

	// Stream, when set, publishes through JetStream and ensures a stream of
	// this name covers Subject.
	Stream string

	Logger *slog.Logger
}

// publishFunc delivers one payload to a subject.
type publishFunc func(ctx context.Context, subject string, data []byte) error

// Sink publishes each record as JSON.
type Sink struct {
	conn    *natsgo.Conn
	publish publishFunc
	subject string
}

// New connects to NATS and returns a sink.
func New(ctx context.Context, c Config) (*Sink, error) {
	if c.URL == "" {
		c.URL = natsgo.DefaultURL
	}
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	nc, err := natsgo.Connect(c.URL,
		natsgo.Name("ragloop"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(5),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	s := &Sink{conn: nc, subject: c.Subject}

	if c.Stream == "" {
		s.publish = func(_ context.Context, subject string, data []byte) error {
			return nc.Publish(subject, data)
		}
		return s, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.Stream,
		Subjects:  []string{c.Subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	})
	if err != nil {
		c.Logger.Warn("failed to ensure jetstream stream", "stream", c.Stream, "error", err)
	}

	s.publish = func(ctx context.Context, subject string, data []byte) error {
		_, err := js.Publish(ctx, subject, data)
		return err
	}
	return s, nil
}

// newWithPublisher builds a sink over an arbitrary publish function.
func newWithPublisher(publish publishFunc, subject string) *Sink {
	return &Sink{publish: publish, subject: subject}
}

// Record publishes rec to the configured subject.
func (s *Sink) Record(ctx context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("marshal record: %w", err))
	}

	if err := s.publish(ctx, s.subject, data); err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("publish to subject %s: %w", s.subject, err))
	}
	return nil
}

// Close drains and closes the connection.
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil && !errors.Is(err, natsgo.ErrConnectionClosed) {
		return err
	}
	return nil
}

var _ telemetry.Sink = (*Sink)(nil)
